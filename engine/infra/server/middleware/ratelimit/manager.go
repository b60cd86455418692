package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/specmatch/engine/infra/server/router"
	"github.com/compozy/specmatch/pkg/logger"
)

const keyTypeIP = "ip"

// Manager owns the limiter and builds the gin middleware around it.
type Manager struct {
	config  *Config
	limiter *limiter.Limiter
	store   string
}

// NewManager builds a limiter backed by redis when a client is given and by
// process memory otherwise.
func NewManager(cfg *Config, client *redis.Client) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit config: %w", err)
	}
	m := &Manager{config: cfg}
	if cfg.GlobalRate.Disabled {
		return m, nil
	}
	opts := limiter.StoreOptions{Prefix: cfg.Prefix, MaxRetry: cfg.MaxRetry}
	var store limiter.Store
	if client != nil {
		s, err := sredis.NewStoreWithOptions(client, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
		}
		store = s
		m.store = "redis"
	} else {
		opts.CleanUpInterval = limiter.DefaultCleanUpInterval
		store = memory.NewStoreWithOptions(opts)
		m.store = "memory"
	}
	m.limiter = limiter.New(store, cfg.GlobalRate.ToLimiterRate())
	return m, nil
}

// NewManagerWithMetrics is NewManager plus registration of the blocked
// request counter on meter.
func NewManagerWithMetrics(
	ctx context.Context,
	cfg *Config,
	client *redis.Client,
	meter metric.Meter,
) (*Manager, error) {
	m, err := NewManager(cfg, client)
	if err != nil {
		return nil, err
	}
	if err := InitMetrics(meter); err != nil {
		logger.FromContext(ctx).Warn("Failed to register rate limit metrics", "error", err)
	}
	return m, nil
}

// Store names the backing store, empty when limiting is disabled.
func (m *Manager) Store() string {
	return m.store
}

// Middleware returns the request limiting middleware. A disabled manager
// returns a pass-through handler.
func (m *Manager) Middleware() gin.HandlerFunc {
	if m.limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	cfg := m.config
	limited := mgin.NewMiddleware(
		m.limiter,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			IncrementBlockedRequests(c.Request.Context(), c.FullPath(), keyTypeIP)
			router.RespondProblemWithCode(
				c,
				http.StatusTooManyRequests,
				router.ErrRateLimitedCode,
				"rate limit exceeded, retry after "+strconv.FormatInt(int64(cfg.GlobalRate.Period.Seconds()), 10)+"s",
			)
			c.Abort()
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// A broken store must not take the API down with it.
			logger.FromContext(c.Request.Context()).Warn("Rate limiter store failed", "error", err)
			c.Next()
		}),
		mgin.WithExcludedKey(cfg.isExcludedIP),
	)
	return func(c *gin.Context) {
		if cfg.isExcludedPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		limited(c)
	}
}
