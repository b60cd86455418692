package speclib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	t.Run("Should default to append and ignore case", func(t *testing.T) {
		for raw, want := range map[string]Mode{"": ModeAppend, "append": ModeAppend, " Replace ": ModeReplace} {
			got, err := ParseMode(raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("Should reject unknown modes", func(t *testing.T) {
		_, err := ParseMode("merge")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestNewDocumentFailure(t *testing.T) {
	t.Run("Should carry the kind and message", func(t *testing.T) {
		failure := NewDocumentFailure("scan.pdf", MalformedDocument("scan.pdf", "no extractable text"))
		assert.Equal(t, "scan.pdf", failure.Filename)
		assert.Equal(t, KindMalformedDocument, failure.Kind)
		assert.Contains(t, failure.Reason, "no extractable text")
	})
}
