package uc

import (
	"context"

	"github.com/compozy/specmatch/engine/speclib/library"
)

type Status struct {
	library Library
}

func NewStatus(lib Library) *Status {
	return &Status{library: lib}
}

func (uc *Status) Execute(ctx context.Context) (*library.Summary, error) {
	return uc.library.Status(ctx)
}

type Clear struct {
	library Library
}

func NewClear(lib Library) *Clear {
	return &Clear{library: lib}
}

func (uc *Clear) Execute(ctx context.Context) error {
	return uc.library.Clear(ctx)
}
