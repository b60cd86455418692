package cache

import (
	"strings"
	"time"

	appconfig "github.com/compozy/specmatch/pkg/config"
)

// EmbeddedAddr runs an in-process miniredis instead of dialing a server.
const EmbeddedAddr = "embedded"

type Config struct {
	URL          string
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingTimeout  time.Duration
}

// FromAppConfig maps the redis section. A value with a scheme is treated as a URL.
func FromAppConfig(cfg *appconfig.RedisConfig) *Config {
	if cfg == nil {
		return nil
	}
	addr := strings.TrimSpace(cfg.Addr)
	out := &Config{Password: cfg.Password.Value(), DB: cfg.DB}
	if strings.Contains(addr, "://") {
		out.URL = addr
	} else {
		out.Addr = addr
	}
	return out
}

// Embedded reports whether the config asks for an in-process server.
func (c *Config) Embedded() bool {
	return c.URL == "" && strings.EqualFold(c.Addr, EmbeddedAddr)
}
