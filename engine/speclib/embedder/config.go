package embedder

import (
	"errors"
	"fmt"
	"strings"

	appconfig "github.com/compozy/specmatch/pkg/config"
)

// Provider enumerates the supported embedding backends.
type Provider string

const (
	ProviderHash   Provider = "hash"
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Config describes how to reach an embedding model.
type Config struct {
	Provider      Provider
	Model         string
	BaseURL       string
	APIKey        string
	Dimension     int
	BatchSize     int
	Concurrency   int
	StripNewLines bool
}

var (
	errMissingProvider  = errors.New("embedder provider is required")
	errMissingModel     = errors.New("embedder model is required")
	errInvalidDimension = errors.New("embedder dimension must be greater than zero")
	errInvalidBatchSize = errors.New("embedder batch size must be greater than zero")
)

// FromAppConfig maps the embedder section of the application config.
func FromAppConfig(cfg *appconfig.EmbedderConfig) *Config {
	if cfg == nil {
		return nil
	}
	return &Config{
		Provider:      Provider(strings.ToLower(strings.TrimSpace(cfg.Provider))),
		Model:         strings.TrimSpace(cfg.Model),
		BaseURL:       strings.TrimSpace(cfg.BaseURL),
		APIKey:        cfg.APIKey.Value(),
		Dimension:     cfg.Dimension,
		BatchSize:     cfg.BatchSize,
		Concurrency:   cfg.Concurrency,
		StripNewLines: cfg.StripNewLines,
	}
}

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(string(cfg.Provider)) == "" {
		return errMissingProvider
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return fmt.Errorf("embedder %q: %w", cfg.Provider, errMissingModel)
	}
	if cfg.Dimension <= 0 {
		return fmt.Errorf("embedder %q: %w", cfg.Provider, errInvalidDimension)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("embedder %q: %w", cfg.Provider, errInvalidBatchSize)
	}
	return nil
}
