package upload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("spec"), 0o600))
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.pdf"))
	touch(t, filepath.Join(dir, "div26", "b.pdf"))
	touch(t, filepath.Join(dir, "div26", "notes.txt"))

	t.Run("Should expand recursive globs", func(t *testing.T) {
		paths, err := ExpandPaths([]string{filepath.Join(dir, "**", "*.pdf")})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			filepath.Join(dir, "a.pdf"),
			filepath.Join(dir, "div26", "b.pdf"),
		}, paths)
	})

	t.Run("Should walk directories and drop duplicates", func(t *testing.T) {
		paths, err := ExpandPaths([]string{filepath.Join(dir, "a.pdf"), dir})
		require.NoError(t, err)
		assert.Len(t, paths, 3)
		assert.Equal(t, filepath.Join(dir, "a.pdf"), paths[0])
	})

	t.Run("Should fail when nothing matches", func(t *testing.T) {
		_, err := ExpandPaths([]string{filepath.Join(dir, "*.docx")})
		assert.ErrorContains(t, err, "matched no files")
	})
}
