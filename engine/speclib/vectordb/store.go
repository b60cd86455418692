package vectordb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

var (
	errMissingProvider  = errors.New("vector index provider is required")
	errMissingDSN       = errors.New("vector index dsn is required")
	errMissingPath      = errors.New("vector index path is required")
	errInvalidDimension = errors.New("vector index dimension must be greater than zero")
)

// New instantiates an index backed by the requested provider.
func New(ctx context.Context, cfg *Config) (Store, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderMemory:
		return newMemoryStore(cfg.Dimension), nil
	case ProviderFilesystem:
		store, err := newFileStore(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case ProviderPGVector:
		return newPGStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("vector index: provider %q is not supported", cfg.Provider)
	}
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("vector index config is required")
	}
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.Path = strings.TrimSpace(cfg.Path)
	if strings.TrimSpace(string(cfg.Provider)) == "" {
		return errMissingProvider
	}
	switch cfg.Provider {
	case ProviderPGVector:
		if cfg.DSN == "" {
			return fmt.Errorf("vector index %q: %w", cfg.Provider, errMissingDSN)
		}
		if cfg.IndexType != "" && cfg.IndexType != PGVectorIndexHNSW && cfg.IndexType != PGVectorIndexIVFFlat {
			return fmt.Errorf("vector index %q: unknown index type %q", cfg.Provider, cfg.IndexType)
		}
	case ProviderFilesystem:
		if cfg.Path == "" {
			return fmt.Errorf("vector index %q: %w", cfg.Provider, errMissingPath)
		}
	}
	if cfg.Dimension <= 0 {
		return fmt.Errorf("vector index %q: %w", cfg.Provider, errInvalidDimension)
	}
	return nil
}

// cosineSimilarity returns 0 when either vector has zero norm.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func metadataMatches(metadata map[string]any, filters map[string]string) bool {
	for key, want := range filters {
		got, ok := metadata[key]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

// rankMatches orders by score descending and insertion sequence ascending.
func rankMatches(matches []Match, topK int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].Seq < matches[j].Seq
		}
		return matches[i].Score > matches[j].Score
	})
	if topK <= 0 {
		topK = defaultTopK
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
