package ratelimit

import (
	"fmt"
	"strings"
	"time"

	"github.com/ulule/limiter/v3"

	appconfig "github.com/compozy/specmatch/pkg/config"
)

// Config represents rate limiting configuration
type Config struct {
	GlobalRate RateConfig `yaml:"global_rate"`

	Prefix   string `yaml:"prefix"`
	MaxRetry int    `yaml:"max_retry"`

	// Paths matched by prefix skip the limiter entirely.
	ExcludedPaths []string `yaml:"excluded_paths"`
	ExcludedIPs   []string `yaml:"excluded_ips"`
}

// RateConfig represents a single rate limit configuration
type RateConfig struct {
	Period   time.Duration `yaml:"period"`
	Limit    int64         `yaml:"limit"`
	Disabled bool          `yaml:"disabled,omitempty"`
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() *Config {
	return &Config{
		GlobalRate: RateConfig{
			Limit:  120,
			Period: time.Minute,
		},
		Prefix:   "specmatch:ratelimit:",
		MaxRetry: 3,
		ExcludedPaths: []string{
			"/health",
			"/metrics",
			"/api/v0/health",
		},
		ExcludedIPs: []string{},
	}
}

// FromAppConfig maps the server rate limit section onto the limiter config.
func FromAppConfig(cfg *appconfig.RateLimitConfig) *Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	out.GlobalRate.Disabled = !cfg.Enabled
	if cfg.Limit > 0 {
		out.GlobalRate.Limit = cfg.Limit
	}
	if cfg.Period > 0 {
		out.GlobalRate.Period = cfg.Period
	}
	if p := strings.TrimSpace(cfg.Prefix); p != "" {
		out.Prefix = p
	}
	return out
}

// ToLimiterRate converts RateConfig to limiter.Rate
func (rc RateConfig) ToLimiterRate() limiter.Rate {
	return limiter.Rate{
		Period: rc.Period,
		Limit:  rc.Limit,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GlobalRate.Disabled {
		return nil
	}
	if c.GlobalRate.Limit <= 0 {
		return fmt.Errorf("global rate limit must be positive")
	}
	if c.GlobalRate.Period <= 0 {
		return fmt.Errorf("global rate period must be positive")
	}
	return nil
}

func (c *Config) isExcludedPath(path string) bool {
	for _, prefix := range c.ExcludedPaths {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (c *Config) isExcludedIP(ip string) bool {
	for _, excluded := range c.ExcludedIPs {
		if excluded == ip {
			return true
		}
	}
	return false
}
