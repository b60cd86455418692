package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/compozy/specmatch/pkg/config"
)

func TestFromAppConfig(t *testing.T) {
	t.Run("Should split urls from plain addresses", func(t *testing.T) {
		cfg := FromAppConfig(&appconfig.RedisConfig{Addr: "redis://localhost:6379/2"})
		assert.Equal(t, "redis://localhost:6379/2", cfg.URL)
		assert.Empty(t, cfg.Addr)

		cfg = FromAppConfig(&appconfig.RedisConfig{Addr: " localhost:6379 ", Password: "secret", DB: 3})
		assert.Equal(t, "localhost:6379", cfg.Addr)
		assert.Equal(t, "secret", cfg.Password)
		assert.Equal(t, 3, cfg.DB)
		assert.False(t, cfg.Embedded())
	})

	t.Run("Should recognize the embedded address", func(t *testing.T) {
		assert.True(t, FromAppConfig(&appconfig.RedisConfig{Addr: "Embedded"}).Embedded())
		assert.Nil(t, FromAppConfig(nil))
	})
}

func TestNewRedis(t *testing.T) {
	t.Run("Should connect to a running server", func(t *testing.T) {
		server := miniredis.RunT(t)
		r, err := NewRedis(t.Context(), &Config{Addr: server.Addr()})
		require.NoError(t, err)
		defer r.Close()
		require.NoError(t, r.Client().Set(t.Context(), "k", "v", 0).Err())
		got, err := server.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "v", got)
		assert.False(t, r.Embedded())
		assert.NoError(t, r.HealthCheck(t.Context()))
	})

	t.Run("Should start an embedded server", func(t *testing.T) {
		r, err := NewRedis(t.Context(), &Config{Addr: EmbeddedAddr})
		require.NoError(t, err)
		assert.True(t, r.Embedded())
		assert.NoError(t, r.HealthCheck(t.Context()))
		assert.NoError(t, r.Close())
		assert.NoError(t, r.Close())
	})

	t.Run("Should fail when the server is unreachable", func(t *testing.T) {
		server := miniredis.RunT(t)
		addr := server.Addr()
		server.Close()
		_, err := NewRedis(t.Context(), &Config{Addr: addr, PingTimeout: 500 * time.Millisecond})
		assert.Error(t, err)
	})

	t.Run("Should require an address", func(t *testing.T) {
		_, err := NewRedis(t.Context(), &Config{})
		assert.Error(t, err)
		_, err = NewRedis(t.Context(), nil)
		assert.Error(t, err)
		_, err = NewRedis(t.Context(), &Config{URL: "://bad"})
		assert.Error(t, err)
	})
}
