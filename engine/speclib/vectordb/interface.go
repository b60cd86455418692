package vectordb

import (
	"context"
	"strings"

	appconfig "github.com/compozy/specmatch/pkg/config"
)

// Provider enumerates supported vector index backends.
type Provider string

const (
	ProviderMemory     Provider = "memory"
	ProviderFilesystem Provider = "filesystem"
	ProviderPGVector   Provider = "pgvector"
)

const defaultTopK = 5

// Record represents a chunk persisted to the index.
type Record struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// SearchOptions controls similarity search execution.
type SearchOptions struct {
	TopK     int
	MinScore float64
	Filters  map[string]string
}

// Match captures a similarity search result. Seq is the insertion sequence
// used to break score ties.
type Match struct {
	ID       string
	Score    float64
	Text     string
	Metadata map[string]any
	Seq      int64
}

// Filter specifies delete criteria.
type Filter struct {
	IDs      []string
	Metadata map[string]string
}

// Store is the similarity index contract.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error)
	Delete(ctx context.Context, filter Filter) error
	Reset(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Dimension() int
	Close(ctx context.Context) error
}

// PGVectorIndexType represents supported index types for pgvector.
type PGVectorIndexType string

const (
	PGVectorIndexHNSW    PGVectorIndexType = "hnsw"
	PGVectorIndexIVFFlat PGVectorIndexType = "ivfflat"
)

// Config captures connection details for an index.
type Config struct {
	Provider    Provider
	Path        string
	DSN         string
	Table       string
	IndexType   PGVectorIndexType
	EnsureIndex bool
	MaxConns    int32
	Dimension   int
}

// FromAppConfig maps the vector and embedder sections of the application config.
func FromAppConfig(cfg *appconfig.Config) *Config {
	if cfg == nil {
		return nil
	}
	return &Config{
		Provider:    Provider(strings.ToLower(strings.TrimSpace(cfg.Vector.Provider))),
		Path:        cfg.SnapshotFile(),
		DSN:         cfg.Vector.DSN.Value(),
		Table:       cfg.Vector.Table,
		IndexType:   PGVectorIndexType(cfg.Vector.IndexType),
		EnsureIndex: cfg.Vector.EnsureIndex,
		MaxConns:    cfg.Vector.MaxConns,
		Dimension:   cfg.Embedder.Dimension,
	}
}
