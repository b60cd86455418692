package library

import (
	"context"
	"time"

	"github.com/compozy/specmatch/engine/speclib/chunk"
)

// Document describes one loaded specification file. Documents are never
// mutated after load; only Clear or a replace load removes them.
type Document struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`
	ContentHash string            `json:"content_hash"`
	ContentType string            `json:"content_type,omitempty"`
	Size        int64             `json:"size"`
	ChunkCount  int               `json:"chunk_count"`
	LoadedAt    time.Time         `json:"loaded_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Entry pairs a document with its chunks in chunker order.
type Entry struct {
	Document Document
	Chunks   []chunk.Chunk
}

// Catalog persists document and chunk descriptors. Vectors live in the
// similarity index; the catalog only keeps what is needed to enrich matches
// and report status. Implementations must preserve insertion order.
type Catalog interface {
	Insert(ctx context.Context, entries []Entry) error
	// Replace atomically swaps the whole catalog content for entries.
	Replace(ctx context.Context, entries []Entry) error
	Documents(ctx context.Context) ([]Document, error)
	Chunks(ctx context.Context) ([]chunk.Chunk, error)
	HasDocument(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}
