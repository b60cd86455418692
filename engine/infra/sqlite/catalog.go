package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/compozy/specmatch/engine/speclib/chunk"
	"github.com/compozy/specmatch/engine/speclib/library"
	"github.com/compozy/specmatch/pkg/logger"
)

// Catalog implements library.Catalog on top of a SQLite store.
type Catalog struct {
	store *Store
}

var _ library.Catalog = (*Catalog)(nil)

// NewCatalog creates a catalog backed by store. Closing the catalog closes the store.
func NewCatalog(store *Store) *Catalog {
	return &Catalog{store: store}
}

// OpenCatalog opens (or creates) the catalog database at path.
func OpenCatalog(ctx context.Context, path string) (*Catalog, error) {
	store, err := NewStore(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(store), nil
}

func (c *Catalog) Insert(ctx context.Context, entries []library.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return c.withTx(ctx, func(tx *sql.Tx) error {
		return insertEntries(ctx, tx, entries)
	})
}

func (c *Catalog) Replace(ctx context.Context, entries []library.Entry) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if err := clearTables(ctx, tx); err != nil {
			return err
		}
		return insertEntries(ctx, tx, entries)
	})
}

func (c *Catalog) Clear(ctx context.Context) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		return clearTables(ctx, tx)
	})
}

func (c *Catalog) Documents(ctx context.Context) ([]library.Document, error) {
	const q = `SELECT id, filename, content_hash, content_type, size, chunk_count, loaded_at, metadata
FROM documents ORDER BY seq`
	rows, err := c.store.DB().QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list documents: %w", err)
	}
	defer rows.Close()
	out := make([]library.Document, 0)
	for rows.Next() {
		var (
			doc      library.Document
			loadedAt string
			metadata sql.NullString
		)
		if err := rows.Scan(
			&doc.ID,
			&doc.Filename,
			&doc.ContentHash,
			&doc.ContentType,
			&doc.Size,
			&doc.ChunkCount,
			&loadedAt,
			&metadata,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan document: %w", err)
		}
		if doc.LoadedAt, err = time.Parse(time.RFC3339Nano, loadedAt); err != nil {
			return nil, fmt.Errorf("sqlite: parse loaded_at for %s: %w", doc.ID, err)
		}
		if err := FromJSONText(metadata, &doc.Metadata); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iter documents: %w", err)
	}
	return out, nil
}

func (c *Catalog) Chunks(ctx context.Context) ([]chunk.Chunk, error) {
	const q = `SELECT c.id, c.document_id, d.filename, c.idx, c.text, c.hash, c.refs, c.oversized
FROM chunks c JOIN documents d ON d.id = c.document_id
ORDER BY c.seq`
	rows, err := c.store.DB().QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list chunks: %w", err)
	}
	defer rows.Close()
	out := make([]chunk.Chunk, 0)
	for rows.Next() {
		var (
			ch   chunk.Chunk
			refs sql.NullString
		)
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Filename, &ch.Index, &ch.Text, &ch.Hash, &refs, &ch.Oversized); err != nil {
			return nil, fmt.Errorf("sqlite: scan chunk: %w", err)
		}
		if err := FromJSONText(refs, &ch.References); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iter chunks: %w", err)
	}
	return out, nil
}

func (c *Catalog) HasDocument(ctx context.Context, id string) (bool, error) {
	var n int
	err := c.store.DB().QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: lookup document: %w", err)
	}
	return true, nil
}

func (c *Catalog) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}

func (c *Catalog) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.store.DB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rb := tx.Rollback(); rb != nil && !errors.Is(rb, sql.ErrTxDone) {
				logger.FromContext(ctx).Warn("sqlite: rollback failed", "error", rb)
			}
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("sqlite: commit: %w", cerr)
		}
	}()
	return fn(tx)
}

func clearTables(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("sqlite: clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("sqlite: clear documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name IN ('documents', 'chunks')`); err != nil {
		return fmt.Errorf("sqlite: reset sequences: %w", err)
	}
	return nil
}

func insertEntries(ctx context.Context, tx *sql.Tx, entries []library.Entry) error {
	const insertDoc = `INSERT INTO documents
(id, filename, content_hash, content_type, size, chunk_count, loaded_at, metadata)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	const insertChunk = `INSERT INTO chunks (id, document_id, idx, text, hash, refs, oversized)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	docStmt, err := tx.PrepareContext(ctx, insertDoc)
	if err != nil {
		return fmt.Errorf("sqlite: prepare document insert: %w", err)
	}
	defer docStmt.Close()
	chunkStmt, err := tx.PrepareContext(ctx, insertChunk)
	if err != nil {
		return fmt.Errorf("sqlite: prepare chunk insert: %w", err)
	}
	defer chunkStmt.Close()
	for i := range entries {
		doc := entries[i].Document
		metadata, err := ToJSONText(nilIfEmpty(doc.Metadata))
		if err != nil {
			return err
		}
		loadedAt := doc.LoadedAt
		if loadedAt.IsZero() {
			loadedAt = time.Now()
		}
		if _, err := docStmt.ExecContext(
			ctx,
			doc.ID,
			doc.Filename,
			doc.ContentHash,
			doc.ContentType,
			doc.Size,
			doc.ChunkCount,
			loadedAt.UTC().Format(time.RFC3339Nano),
			metadata,
		); err != nil {
			return fmt.Errorf("sqlite: insert document %s: %w", doc.Filename, err)
		}
		for j := range entries[i].Chunks {
			ch := &entries[i].Chunks[j]
			var refs sql.NullString
			if len(ch.References) > 0 {
				if refs, err = ToJSONText(ch.References); err != nil {
					return err
				}
			}
			if _, err := chunkStmt.ExecContext(ctx, ch.ID, doc.ID, ch.Index, ch.Text, ch.Hash, refs, ch.Oversized); err != nil {
				return fmt.Errorf("sqlite: insert chunk %s: %w", ch.ID, err)
			}
		}
	}
	return nil
}

func nilIfEmpty(m map[string]string) any {
	if len(m) == 0 {
		return nil
	}
	return m
}
