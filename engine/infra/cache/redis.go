package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/compozy/specmatch/pkg/logger"
)

const fallbackRedisPingTimeout = 10 * time.Second

// Redis owns a go-redis client and, in embedded mode, the miniredis server
// behind it.
type Redis struct {
	client   *redis.Client
	embedded *miniredis.Miniredis
	once     sync.Once
	ctx      context.Context
}

// NewRedis dials the configured server and pings it.
func NewRedis(ctx context.Context, cfg *Config) (*Redis, error) {
	log := logger.FromContext(ctx).With("component", "infra_redis")
	ctx = logger.ContextWithLogger(ctx, log)
	if cfg == nil {
		return nil, errors.New("redis config is required")
	}
	var embedded *miniredis.Miniredis
	if cfg.Embedded() {
		embedded = miniredis.NewMiniRedis()
		if err := embedded.Start(); err != nil {
			return nil, fmt.Errorf("starting embedded redis: %w", err)
		}
	}
	client, err := buildRedisClient(cfg, embedded)
	if err != nil {
		closeEmbedded(embedded)
		return nil, err
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = fallbackRedisPingTimeout
	}
	if err := pingRedis(ctx, client, timeout); err != nil {
		client.Close()
		closeEmbedded(embedded)
		return nil, err
	}
	log.Info("Redis connection established",
		"addr", client.Options().Addr,
		"db", cfg.DB,
		"embedded", embedded != nil,
	)
	return &Redis{client: client, embedded: embedded, ctx: ctx}, nil
}

func buildRedisClient(cfg *Config, embedded *miniredis.Miniredis) (*redis.Client, error) {
	if embedded != nil {
		return redis.NewClient(&redis.Options{Addr: embedded.Addr()}), nil
	}
	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing Redis URL: %w", err)
		}
		applyConfigToOptions(opt, cfg)
		return redis.NewClient(opt), nil
	}
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	opt := &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	applyConfigToOptions(opt, cfg)
	return redis.NewClient(opt), nil
}

func applyConfigToOptions(opt *redis.Options, cfg *Config) {
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}
}

func pingRedis(ctx context.Context, client *redis.Client, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("pinging Redis server (timeout=%s): %w", timeout, err)
	}
	return nil
}

func closeEmbedded(m *miniredis.Miniredis) {
	if m != nil {
		m.Close()
	}
}

// Client returns the underlying client.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Embedded reports whether the server runs in process.
func (r *Redis) Embedded() bool {
	return r.embedded != nil
}

// HealthCheck pings the server.
func (r *Redis) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close shuts the connection and any embedded server. Safe to call twice.
func (r *Redis) Close() error {
	if r == nil {
		return nil
	}
	var err error
	r.once.Do(func() {
		err = r.client.Close()
		closeEmbedded(r.embedded)
		if err != nil {
			logger.FromContext(r.ctx).Error("Redis connection close failed", "error", err)
			return
		}
		logger.FromContext(r.ctx).Debug("Redis connection closed")
	})
	return err
}
