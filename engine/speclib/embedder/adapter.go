package embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/sync/errgroup"

	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/pkg/logger"
)

// Embedder turns texts into fixed-dimension vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Adapter wraps a langchaingo embedder with batching, dimension checks and
// an optional cache. Output order always matches input order.
type Adapter struct {
	provider    Provider
	model       string
	dimension   int
	batchSize   int
	concurrency int
	impl        embeddings.Embedder
	cache       Cache
}

var _ Embedder = (*Adapter)(nil)

// New constructs a provider-backed adapter.
func New(_ context.Context, cfg *Config) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.New("embedder config is required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	client, err := buildClient(cfg)
	if err != nil {
		return nil, err
	}
	impl, err := embeddings.NewEmbedder(
		client,
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(cfg.StripNewLines),
	)
	if err != nil {
		return nil, fmt.Errorf("embedder %q: failed to construct embedder: %w", cfg.Provider, err)
	}
	return Wrap(cfg, impl)
}

// Wrap constructs an adapter around an existing langchaingo embedder.
func Wrap(cfg *Config, impl embeddings.Embedder) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.New("embedder config is required")
	}
	if impl == nil {
		return nil, fmt.Errorf("embedder %q: implementation is required", cfg.Provider)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Adapter{
		provider:    cfg.Provider,
		model:       cfg.Model,
		dimension:   cfg.Dimension,
		batchSize:   cfg.BatchSize,
		concurrency: concurrency,
		impl:        impl,
	}, nil
}

// WithCache attaches a vector cache. Passing nil disables caching.
func (a *Adapter) WithCache(cache Cache) *Adapter {
	a.cache = cache
	return a
}

func (a *Adapter) Dimension() int {
	return a.dimension
}

func (a *Adapter) Provider() Provider {
	return a.provider
}

func (a *Adapter) Model() string {
	return a.model
}

// EmbedDocuments embeds texts in batches of BatchSize with bounded concurrency.
func (a *Adapter) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, speclib.ModelUnavailable("embed documents", err)
	}
	results := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	pending := make(map[string][]int)
	order := make([]string, 0, len(texts))
	hits := 0
	for i, text := range texts {
		keys[i] = CacheKey(a.provider, a.model, text)
		if vec, ok := a.lookup(ctx, keys[i]); ok {
			results[i] = vec
			hits++
			continue
		}
		if _, seen := pending[text]; !seen {
			order = append(order, text)
		}
		pending[text] = append(pending[text], i)
	}
	a.recordCache(ctx, hits, len(texts)-hits)
	if len(order) == 0 {
		return results, nil
	}
	vectors, err := a.embedBatches(ctx, order)
	if err != nil {
		speclib.RecordEmbedderRequest(ctx, string(a.provider), string(speclib.KindOf(err)))
		return nil, err
	}
	speclib.RecordEmbedderRequest(ctx, string(a.provider), "success")
	for i, text := range order {
		idxs := pending[text]
		for _, idx := range idxs {
			results[idx] = cloneVector(vectors[i])
		}
		a.store(ctx, keys[idxs[0]], vectors[i])
	}
	return results, nil
}

// EmbedQuery embeds a single text.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := a.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (a *Adapter) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for start := 0; start < len(texts); start += a.batchSize {
		end := min(start+a.batchSize, len(texts))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return speclib.ModelUnavailable("embed batch", err)
			}
			batch := texts[start:end]
			vectors, err := a.impl.EmbedDocuments(gctx, batch)
			if err != nil {
				return speclib.ModelUnavailable(fmt.Sprintf("embedder %q", a.provider), err)
			}
			if len(vectors) != len(batch) {
				return speclib.ModelUnavailable(
					fmt.Sprintf("embedder %q", a.provider),
					fmt.Errorf("received %d embeddings for %d texts", len(vectors), len(batch)),
				)
			}
			for i, vec := range vectors {
				if len(vec) != a.dimension {
					return speclib.DimensionMismatch(fmt.Sprintf("embedder %q", a.provider), len(vec), a.dimension)
				}
				out[start+i] = vec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Adapter) lookup(ctx context.Context, key string) ([]float32, bool) {
	if a.cache == nil {
		return nil, false
	}
	vec, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		logger.FromContext(ctx).Warn("Embedding cache lookup failed", "provider", a.provider, "error", err)
		return nil, false
	}
	if !ok || len(vec) != a.dimension {
		return nil, false
	}
	return vec, true
}

func (a *Adapter) store(ctx context.Context, key string, vec []float32) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, key, vec); err != nil {
		logger.FromContext(ctx).Warn("Embedding cache store failed", "provider", a.provider, "error", err)
	}
}

func (a *Adapter) recordCache(ctx context.Context, hits, misses int) {
	if a.cache == nil {
		return
	}
	speclib.RecordEmbedderCache(ctx, "hit", hits)
	speclib.RecordEmbedderCache(ctx, "miss", misses)
}

func buildClient(cfg *Config) (embeddings.EmbedderClient, error) {
	switch cfg.Provider {
	case ProviderHash:
		client, err := NewHashClient(cfg.Dimension)
		if err != nil {
			return nil, fmt.Errorf("embedder %q: %w", cfg.Provider, err)
		}
		return client, nil
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithEmbeddingModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("embedder %q: failed to initialize openai client: %w", cfg.Provider, err)
		}
		return client, nil
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		client, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("embedder %q: failed to initialize ollama client: %w", cfg.Provider, err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("embedder %q: provider is not supported", cfg.Provider)
	}
}
