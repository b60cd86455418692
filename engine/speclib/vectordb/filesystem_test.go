package vectordb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/specmatch/engine/speclib"
)

func TestFileStore(t *testing.T) {
	t.Run("Should round trip records and sequence through the snapshot", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "index.json")
		cfg := &Config{Provider: ProviderFilesystem, Path: path, Dimension: 2}
		store, err := New(t.Context(), cfg)
		require.NoError(t, err)
		require.NoError(t, store.Upsert(t.Context(), []Record{
			{ID: "b", Text: "bravo", Embedding: []float32{1, 0}, Metadata: map[string]any{"document_id": "d1"}},
			{ID: "a", Text: "alpha", Embedding: []float32{1, 0}, Metadata: map[string]any{"document_id": "d2"}},
		}))
		require.NoError(t, store.Close(t.Context()))

		reopened, err := New(t.Context(), cfg)
		require.NoError(t, err)
		count, err := reopened.Count(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		matches, err := reopened.Search(t.Context(), []float32{1, 0}, SearchOptions{TopK: 2})
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "b", matches[0].ID)
		assert.Equal(t, "d1", matches[0].Metadata["document_id"])

		require.NoError(t, reopened.Upsert(t.Context(), []Record{{ID: "c", Embedding: []float32{1, 0}}}))
		matches, err = reopened.Search(t.Context(), []float32{1, 0}, SearchOptions{TopK: 3})
		require.NoError(t, err)
		assert.Equal(t, "c", matches[2].ID)
		assert.Greater(t, matches[2].Seq, matches[1].Seq)
	})

	t.Run("Should reject a snapshot with a different dimension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.json")
		store, err := New(t.Context(), &Config{Provider: ProviderFilesystem, Path: path, Dimension: 2})
		require.NoError(t, err)
		require.NoError(t, store.Upsert(t.Context(), []Record{{ID: "a", Embedding: []float32{1, 0}}}))

		_, err = New(t.Context(), &Config{Provider: ProviderFilesystem, Path: path, Dimension: 3})
		assert.ErrorIs(t, err, speclib.ErrDimensionMismatch)
	})

	t.Run("Should persist deletes and resets", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.json")
		cfg := &Config{Provider: ProviderFilesystem, Path: path, Dimension: 2}
		store, err := New(t.Context(), cfg)
		require.NoError(t, err)
		require.NoError(t, store.Upsert(t.Context(), []Record{
			{ID: "a", Embedding: []float32{1, 0}, Metadata: map[string]any{"document_id": "d1"}},
			{ID: "b", Embedding: []float32{0, 1}, Metadata: map[string]any{"document_id": "d2"}},
		}))
		require.NoError(t, store.Delete(t.Context(), Filter{Metadata: map[string]string{"document_id": "d1"}}))
		reopened, err := New(t.Context(), cfg)
		require.NoError(t, err)
		count, err := reopened.Count(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		require.NoError(t, reopened.Reset(t.Context()))
		again, err := New(t.Context(), cfg)
		require.NoError(t, err)
		count, err = again.Count(t.Context())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("Should not leave a temp file behind", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "index.json")
		store, err := New(t.Context(), &Config{Provider: ProviderFilesystem, Path: path, Dimension: 2})
		require.NoError(t, err)
		require.NoError(t, store.Upsert(t.Context(), []Record{{ID: "a", Embedding: []float32{1, 0}}}))
		_, err = os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Should fail on a corrupt snapshot", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		_, err := New(t.Context(), &Config{Provider: ProviderFilesystem, Path: path, Dimension: 2})
		assert.Error(t, err)
	})

	t.Run("Should keep memory in step with the snapshot when a write fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.json")
		store, err := New(t.Context(), &Config{Provider: ProviderFilesystem, Path: path, Dimension: 2})
		require.NoError(t, err)
		require.NoError(t, store.Upsert(t.Context(), []Record{{ID: "a", Text: "alpha", Embedding: []float32{1, 0}}}))

		// a non-empty directory at the snapshot path makes the rename fail
		require.NoError(t, os.Remove(path))
		require.NoError(t, os.Mkdir(path, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), []byte("x"), 0o600))

		err = store.Upsert(t.Context(), []Record{
			{ID: "a", Text: "changed", Embedding: []float32{0, 1}},
			{ID: "b", Text: "bravo", Embedding: []float32{0, 1}},
		})
		require.Error(t, err)
		require.Error(t, store.Delete(t.Context(), Filter{IDs: []string{"a"}}))
		require.Error(t, store.Reset(t.Context()))

		count, err := store.Count(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		matches, err := store.Search(t.Context(), []float32{1, 0}, SearchOptions{TopK: 5})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "alpha", matches[0].Text)
		assert.Equal(t, int64(1), matches[0].Seq)
		_, err = os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err))

		require.NoError(t, os.RemoveAll(path))
		require.NoError(t, store.Upsert(t.Context(), []Record{{ID: "b", Embedding: []float32{0, 1}}}))
		matches, err = store.Search(t.Context(), []float32{0, 1}, SearchOptions{TopK: 1})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "b", matches[0].ID)
		assert.Equal(t, int64(2), matches[0].Seq)
	})
}
