package speclib

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Run("Should match the kind sentinel through wrapping", func(t *testing.T) {
		err := fmt.Errorf("library: load: %w", ModelUnavailable("embed", context.DeadlineExceeded))
		assert.ErrorIs(t, err, ErrModelUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrDimensionMismatch)
		assert.Equal(t, KindModelUnavailable, KindOf(err))
		assert.True(t, IsFatal(err))
	})

	t.Run("Should describe op subject and cause", func(t *testing.T) {
		err := DimensionMismatch("vectordb: upsert", 3, 384)
		assert.Equal(t, "vectordb: upsert: embedding dimension mismatch (got 3 want 384)", err.Error())
		assert.True(t, IsFatal(err))
	})

	t.Run("Should classify bare sentinels and unknown errors", func(t *testing.T) {
		assert.Equal(t, KindInvalidInput, KindOf(fmt.Errorf("wrap: %w", ErrInvalidInput)))
		assert.Equal(t, KindLibraryLocked, KindOf(ErrLibraryLocked))
		assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
		assert.Equal(t, Kind(""), KindOf(nil))
	})

	t.Run("Should not treat malformed documents as fatal", func(t *testing.T) {
		err := MalformedDocument("empty.pdf", "no extractable text")
		assert.ErrorIs(t, err, ErrMalformedDocument)
		assert.False(t, IsFatal(err))
		assert.Contains(t, err.Error(), "empty.pdf")
	})
}
