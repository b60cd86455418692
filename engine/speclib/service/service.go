package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/compozy/specmatch/engine/infra/cache"
	"github.com/compozy/specmatch/engine/infra/sqlite"
	"github.com/compozy/specmatch/engine/speclib/chunk"
	"github.com/compozy/specmatch/engine/speclib/embedder"
	"github.com/compozy/specmatch/engine/speclib/library"
	"github.com/compozy/specmatch/engine/speclib/scorer"
	"github.com/compozy/specmatch/engine/speclib/uc"
	"github.com/compozy/specmatch/engine/speclib/vectordb"
	appconfig "github.com/compozy/specmatch/pkg/config"
	"github.com/compozy/specmatch/pkg/logger"
)

const (
	catalogSQLite = "sqlite"
	catalogMemory = "memory"
)

// Options tunes how the service claims the library.
type Options struct {
	// LockWait bounds how long to wait for another process holding the
	// library lock. Zero tries once.
	LockWait time.Duration
}

// Service wires the spec library stack from configuration and exposes the
// library operations.
type Service struct {
	cfg      *appconfig.Config
	library  *library.Store
	scorer   *scorer.Scorer
	embedder *embedder.Adapter
	redis    *cache.Redis
	lock     *library.Lock
	// closers hold the index and catalog until the library takes them over.
	closers  []func(context.Context) error
	once     sync.Once
}

// New builds every component named by cfg. On failure, whatever was already
// opened is closed again.
func New(ctx context.Context, cfg *appconfig.Config, opts Options) (svc *Service, err error) {
	if cfg == nil {
		return nil, errors.New("service: config is required")
	}
	log := logger.FromContext(ctx).With("component", "spec_library")
	ctx = logger.ContextWithLogger(ctx, log)
	s := &Service{cfg: cfg}
	defer func() {
		if err != nil {
			if cerr := s.Close(ctx); cerr != nil {
				log.Warn("Failed to release partially built service", "error", cerr)
			}
		}
	}()
	if err := s.acquireLock(ctx, opts.LockWait); err != nil {
		return nil, err
	}
	if err := s.openRedis(ctx); err != nil {
		return nil, err
	}
	if err := s.buildEmbedder(ctx); err != nil {
		return nil, err
	}
	if err := s.buildLibrary(ctx); err != nil {
		return nil, err
	}
	sc, err := scorer.New(s.embedder, s.library, scorer.PolicyFromConfig(&cfg.Scorer), scorer.Options{
		TopK:    cfg.Scorer.TopK,
		Timeout: cfg.Scorer.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("service: build scorer: %w", err)
	}
	s.scorer = sc
	log.Info("Spec library ready",
		"embedder", cfg.Embedder.Provider,
		"model", cfg.Embedder.Model,
		"dimension", cfg.Embedder.Dimension,
		"vector", cfg.Vector.Provider,
		"catalog", s.catalogKind(),
		"generation", s.library.Generation(),
	)
	return s, nil
}

func (s *Service) acquireLock(ctx context.Context, wait time.Duration) error {
	if !s.cfg.Library.Lock {
		return nil
	}
	lock, err := library.AcquireLock(ctx, s.cfg.Library.LockFile(), wait)
	if err != nil {
		return err
	}
	s.lock = lock
	return nil
}

func (s *Service) openRedis(ctx context.Context) error {
	addr := strings.TrimSpace(s.cfg.Redis.Addr)
	wantCache := strings.EqualFold(s.cfg.Embedder.Cache.Backend, embedder.CacheRedis)
	if addr == "" {
		if wantCache {
			return errors.New("service: redis embedding cache requires redis.addr")
		}
		return nil
	}
	r, err := cache.NewRedis(ctx, cache.FromAppConfig(&s.cfg.Redis))
	if err != nil {
		return fmt.Errorf("service: connect redis: %w", err)
	}
	s.redis = r
	return nil
}

func (s *Service) buildEmbedder(ctx context.Context) error {
	adapter, err := embedder.New(ctx, embedder.FromAppConfig(&s.cfg.Embedder))
	if err != nil {
		return fmt.Errorf("service: build embedder: %w", err)
	}
	if adapter.Provider() == embedder.ProviderHash {
		logger.FromContext(ctx).Warn(
			"Hash embedder matches shared words only; configure openai or ollama for semantic scoring",
			"model", adapter.Model(),
		)
	}
	var client embedder.RedisClient
	if s.redis != nil {
		client = s.redis.Client()
	}
	embCache, err := embedder.NewCache(&s.cfg.Embedder.Cache, client)
	if err != nil {
		return fmt.Errorf("service: build embedding cache: %w", err)
	}
	if embCache != nil {
		adapter = adapter.WithCache(embCache)
	}
	s.embedder = adapter
	return nil
}

func (s *Service) buildLibrary(ctx context.Context) error {
	index, err := vectordb.New(ctx, vectordb.FromAppConfig(s.cfg))
	if err != nil {
		return fmt.Errorf("service: open similarity index: %w", err)
	}
	s.closers = append(s.closers, index.Close)
	catalog, err := s.openCatalog(ctx)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, catalog.Close)
	chunker, err := chunk.NewProcessor(chunk.SettingsFromConfig(&s.cfg.Chunker))
	if err != nil {
		return fmt.Errorf("service: build chunker: %w", err)
	}
	lib, err := library.New(ctx, library.Deps{
		Catalog:  catalog,
		Index:    index,
		Chunker:  chunker,
		Embedder: s.embedder,
	}, library.Options{LoadTimeout: s.cfg.Library.LoadTimeout})
	if err != nil {
		return err
	}
	s.library = lib
	return nil
}

// catalogKind resolves the catalog backend. An in-memory index always gets an
// in-memory catalog.
func (s *Service) catalogKind() string {
	if strings.EqualFold(s.cfg.Vector.Provider, string(vectordb.ProviderMemory)) {
		return catalogMemory
	}
	if strings.EqualFold(s.cfg.Library.Catalog, catalogMemory) {
		return catalogMemory
	}
	return catalogSQLite
}

func (s *Service) openCatalog(ctx context.Context) (library.Catalog, error) {
	if s.catalogKind() == catalogMemory {
		return library.NewMemoryCatalog(), nil
	}
	catalog, err := sqlite.OpenCatalog(ctx, s.cfg.Library.CatalogFile())
	if err != nil {
		return nil, fmt.Errorf("service: open catalog: %w", err)
	}
	return catalog, nil
}

// ApplyConfig installs the scorer policy of a reloaded configuration. Other
// sections require a restart.
func (s *Service) ApplyConfig(ctx context.Context, cfg *appconfig.Config) error {
	if cfg == nil {
		return nil
	}
	policy := scorer.PolicyFromConfig(&cfg.Scorer)
	if err := s.scorer.SetPolicy(policy); err != nil {
		logger.FromContext(ctx).Warn("Rejected scorer policy from reloaded config", "error", err)
		return err
	}
	logger.FromContext(ctx).Info("Scorer policy updated",
		"high", policy.HighThreshold,
		"medium", policy.MediumThreshold,
		"min", policy.MinMatchThreshold,
	)
	return nil
}

func (s *Service) Config() *appconfig.Config { return s.cfg }

func (s *Service) Library() *library.Store { return s.library }

func (s *Service) Scorer() *scorer.Scorer { return s.scorer }

// RedisClient returns the shared client, or nil when redis is not configured.
func (s *Service) RedisClient() *redis.Client {
	if s.redis == nil {
		return nil
	}
	return s.redis.Client()
}

// HealthCheck reports whether the backing services respond.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.HealthCheck(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (s *Service) Upload() *uc.Upload { return uc.NewUpload(s.library) }

func (s *Service) Analyze() *uc.Analyze { return uc.NewAnalyze(s.scorer) }

func (s *Service) Status() *uc.Status { return uc.NewStatus(s.library) }

func (s *Service) Clear() *uc.Clear { return uc.NewClear(s.library) }

// Close releases every component in reverse construction order.
func (s *Service) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var errs []error
	s.once.Do(func() {
		if s.library != nil {
			errs = append(errs, s.library.Close(ctx))
		} else {
			for i := len(s.closers) - 1; i >= 0; i-- {
				errs = append(errs, s.closers[i](ctx))
			}
		}
		if s.redis != nil {
			errs = append(errs, s.redis.Close())
		}
		if s.lock != nil {
			errs = append(errs, s.lock.Release())
		}
	})
	return errors.Join(errs...)
}
