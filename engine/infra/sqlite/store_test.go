package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	t.Run("Should build DSN for file path with pragmas", func(t *testing.T) {
		d := buildDSN("/tmp/test.db", 5000)
		assert.Contains(t, d, "file:/tmp/test.db")
		assert.Contains(t, d, "_pragma=journal_mode(WAL)")
		assert.Contains(t, d, "_pragma=foreign_keys(ON)")
		assert.Contains(t, d, "_pragma=busy_timeout(5000)")
	})
	t.Run("Should build DSN for in-memory databases without WAL", func(t *testing.T) {
		d := buildDSN(":memory:", 250)
		assert.Contains(t, d, "file::memory:?")
		assert.Contains(t, d, "_pragma=busy_timeout(250)")
		assert.NotContains(t, d, "journal_mode")
	})
}

func TestNewStore(t *testing.T) {
	t.Run("Should create nested directories and apply migrations", func(t *testing.T) {
		ctx := t.Context()
		path := filepath.Join(t.TempDir(), "data", "catalog.db")
		store, err := NewStore(ctx, path)
		require.NoError(t, err)
		defer store.Close(ctx)
		assert.Equal(t, path, store.Path())
		var n int
		require.NoError(t, store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n))
		assert.Zero(t, n)
	})
	t.Run("Should reopen an existing database without reapplying migrations", func(t *testing.T) {
		ctx := t.Context()
		path := filepath.Join(t.TempDir(), "catalog.db")
		first, err := NewStore(ctx, path)
		require.NoError(t, err)
		require.NoError(t, first.Close(ctx))
		second, err := NewStore(ctx, path)
		require.NoError(t, err)
		require.NoError(t, second.Close(ctx))
	})
	t.Run("Should reject a nil config", func(t *testing.T) {
		_, err := NewStoreWithConfig(t.Context(), nil)
		assert.Error(t, err)
	})
	t.Run("Should close a nil store", func(t *testing.T) {
		var s *Store
		assert.NoError(t, s.Close(t.Context()))
	})
}

func TestJSONHelpers(t *testing.T) {
	t.Run("Should marshal and unmarshal JSON TEXT", func(t *testing.T) {
		type S struct {
			A int    `json:"a"`
			B string `json:"b"`
		}
		in := &S{A: 42, B: "x"}
		b, err := ToJSONText(in)
		require.NoError(t, err)
		assert.True(t, b.Valid)
		var out *S
		require.NoError(t, FromJSONText(b, &out))
		require.NotNil(t, out)
		assert.Equal(t, in.A, out.A)
		assert.Equal(t, in.B, out.B)
	})
	t.Run("Should map nil to NULL and back", func(t *testing.T) {
		b, err := ToJSONText(nil)
		require.NoError(t, err)
		assert.False(t, b.Valid)
		var refs []string
		require.NoError(t, FromJSONText(sql.NullString{}, &refs))
		assert.Nil(t, refs)
	})
}
