package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(ctx context.Context, t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", buildDSN(path, 5000))
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))
	return db
}

func names(ctx context.Context, t *testing.T, db *sql.DB, kind string) map[string]bool {
	t.Helper()
	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = ?", kind)
	require.NoError(t, err)
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		out[name] = true
	}
	require.NoError(t, rows.Err())
	return out
}

func TestMigrations(t *testing.T) {
	t.Run("Should create the catalog tables and indexes", func(t *testing.T) {
		ctx := t.Context()
		db := openTestSQLite(ctx, t, filepath.Join(t.TempDir(), "tables.db"))
		defer db.Close()
		require.NoError(t, ApplyMigrations(ctx, db))

		tables := names(ctx, t, db, "table")
		for _, name := range []string{"documents", "chunks", "goose_db_version"} {
			assert.Truef(t, tables[name], "expected table %s to exist", name)
		}
		indexes := names(ctx, t, db, "index")
		for _, name := range []string{"idx_documents_content_hash", "idx_documents_filename", "idx_chunks_document_id"} {
			assert.Truef(t, indexes[name], "expected index %s to exist", name)
		}
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		ctx := t.Context()
		db := openTestSQLite(ctx, t, filepath.Join(t.TempDir(), "twice.db"))
		defer db.Close()
		require.NoError(t, ApplyMigrations(ctx, db))
		require.NoError(t, ApplyMigrations(ctx, db))
	})

	t.Run("Should enforce foreign keys", func(t *testing.T) {
		ctx := t.Context()
		db := openTestSQLite(ctx, t, filepath.Join(t.TempDir(), "fk.db"))
		defer db.Close()
		require.NoError(t, ApplyMigrations(ctx, db))
		_, err := db.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, idx, text, hash) VALUES ('c1', 'missing', 0, 'x', 'h')`,
		)
		require.Error(t, err)
	})

	t.Run("Should enforce check constraints", func(t *testing.T) {
		ctx := t.Context()
		db := openTestSQLite(ctx, t, filepath.Join(t.TempDir(), "check.db"))
		defer db.Close()
		require.NoError(t, ApplyMigrations(ctx, db))
		_, err := db.ExecContext(ctx,
			`INSERT INTO documents (id, filename, content_hash, size, loaded_at) VALUES ('d1', 'a.txt', 'h', -1, '')`,
		)
		require.Error(t, err)
	})
}
