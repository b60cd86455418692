package embedder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/compozy/specmatch/engine/core"
	appconfig "github.com/compozy/specmatch/pkg/config"
)

const (
	CacheNone  = "none"
	CacheLRU   = "lru"
	CacheRedis = "redis"
)

// Cache stores vectors by key. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vector []float32) error
}

// RedisClient is the subset of go-redis used by RedisCache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// NewCache builds the cache backend named by cfg. It returns nil for "none".
func NewCache(cfg *appconfig.EmbedderCacheConfig, client RedisClient) (Cache, error) {
	if cfg == nil {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", CacheNone:
		return nil, nil
	case CacheLRU:
		cache, err := NewLRUCache(cfg.Size)
		if err != nil {
			return nil, err
		}
		return cache, nil
	case CacheRedis:
		if client == nil {
			return nil, errors.New("embedder cache: redis backend requires a client")
		}
		return NewRedisCache(client, cfg.Prefix, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("embedder cache: unknown backend %q", cfg.Backend)
	}
}

// LRUCache keeps vectors in process memory.
type LRUCache struct {
	cache *lru.Cache[string, []float32]
}

func NewLRUCache(size int) (*LRUCache, error) {
	if size <= 0 {
		return nil, errors.New("embedder cache: size must be greater than zero")
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedder cache: init lru: %w", err)
	}
	return &LRUCache{cache: cache}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	vec, ok := c.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	return cloneVector(vec), true, nil
}

func (c *LRUCache) Set(_ context.Context, key string, vector []float32) error {
	c.cache.Add(key, cloneVector(vector))
	return nil
}

// Len reports the number of cached vectors.
func (c *LRUCache) Len() int {
	return c.cache.Len()
}

// RedisCache shares vectors across processes with an optional TTL.
type RedisCache struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client RedisClient, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "specmatch:emb:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("embedder cache: redis get: %w", err)
	}
	vec, err := decodeVector(raw)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, vector []float32) error {
	if err := c.client.Set(ctx, c.prefix+key, encodeVector(vector), c.ttl).Err(); err != nil {
		return fmt.Errorf("embedder cache: redis set: %w", err)
	}
	return nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("embedder cache: corrupt entry of %d bytes", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec, nil
}

// CacheKey scopes a text to its provider and model.
func CacheKey(provider Provider, model, text string) string {
	return core.SHA256Hex([]byte(string(provider) + "/" + model + "/" + text))
}

func cloneVector(src []float32) []float32 {
	if src == nil {
		return nil
	}
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}
