package library

import (
	"time"

	"github.com/compozy/specmatch/engine/speclib"
)

// LoadResult summarizes one Load call.
type LoadResult struct {
	Mode          speclib.Mode              `json:"mode"`
	ChunksLearned int                       `json:"chunks_learned"`
	Processed     []string                  `json:"documents_processed"`
	Skipped       []string                  `json:"documents_skipped"`
	Failures      []speclib.DocumentFailure `json:"failures"`
	Generation    uint64                    `json:"generation"`
}

// Match is a similarity hit enriched with its chunk and document identity.
type Match struct {
	ChunkID    string   `json:"chunk_id"`
	DocumentID string   `json:"document_id"`
	Filename   string   `json:"filename"`
	Index      int      `json:"index"`
	Score      float64  `json:"score"`
	Text       string   `json:"text"`
	References []string `json:"references,omitempty"`
}

// DocumentStatus is the per-document line of a Summary.
type DocumentStatus struct {
	ID       string    `json:"id"`
	Filename string    `json:"filename"`
	Chunks   int       `json:"chunks"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Summary describes the current library content.
type Summary struct {
	Documents    int              `json:"documents"`
	Chunks       int              `json:"chunks"`
	Dimension    int              `json:"dimension"`
	Generation   uint64           `json:"generation"`
	LastLoadedAt *time.Time       `json:"last_loaded_at,omitempty"`
	PerDocument  []DocumentStatus `json:"per_document"`
}

func newLoadResult(mode speclib.Mode) *LoadResult {
	return &LoadResult{
		Mode:      mode,
		Processed: make([]string, 0),
		Skipped:   make([]string, 0),
		Failures:  make([]speclib.DocumentFailure, 0),
	}
}
