package uc

import (
	"context"

	"github.com/google/uuid"

	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/engine/speclib/ingest"
	"github.com/compozy/specmatch/pkg/logger"
)

type UploadInput struct {
	Files []ingest.File
	Mode  speclib.Mode
}

type UploadOutput struct {
	UploadID           string                    `json:"upload_id"`
	Mode               speclib.Mode              `json:"mode"`
	ChunksLearned      int                       `json:"chunks_learned"`
	DocumentsProcessed []string                  `json:"documents_processed"`
	DocumentsSkipped   []string                  `json:"documents_skipped"`
	Failures           []speclib.DocumentFailure `json:"failures"`
	Generation         uint64                    `json:"generation"`
}

type Upload struct {
	library Library
}

func NewUpload(lib Library) *Upload {
	return &Upload{library: lib}
}

// Execute loads the uploaded files. An upload without files changes nothing.
func (uc *Upload) Execute(ctx context.Context, in *UploadInput) (*UploadOutput, error) {
	if in == nil {
		return nil, speclib.InvalidInput("upload", "input is required")
	}
	mode := in.Mode
	if mode == "" {
		mode = speclib.ModeAppend
	}
	uploadID := uuid.NewString()
	log := logger.FromContext(ctx).With("upload_id", uploadID)
	ctx = logger.ContextWithLogger(ctx, log)
	result, err := uc.library.Load(ctx, in.Files, mode)
	if err != nil {
		log.Error("Upload failed", "mode", mode, "files", len(in.Files), "error", err)
		return nil, err
	}
	return &UploadOutput{
		UploadID:           uploadID,
		Mode:               result.Mode,
		ChunksLearned:      result.ChunksLearned,
		DocumentsProcessed: result.Processed,
		DocumentsSkipped:   result.Skipped,
		Failures:           result.Failures,
		Generation:         result.Generation,
	}, nil
}
