package uc

import (
	"context"

	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/engine/speclib/ingest"
	"github.com/compozy/specmatch/engine/speclib/library"
	"github.com/compozy/specmatch/engine/speclib/scorer"
)

// Library is the subset of *library.Store the operations need.
type Library interface {
	Load(ctx context.Context, files []ingest.File, mode speclib.Mode) (*library.LoadResult, error)
	Status(ctx context.Context) (*library.Summary, error)
	Clear(ctx context.Context) error
}

// Scorer is the subset of *scorer.Scorer the operations need.
type Scorer interface {
	ScoreBatch(ctx context.Context, queries []string, topK int) ([]*scorer.Result, error)
}

var (
	_ Library = (*library.Store)(nil)
	_ Scorer  = (*scorer.Scorer)(nil)
)
