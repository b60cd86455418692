package config

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the complete configuration for the specmatch service.
// It provides type-safe access to all configuration values with validation.
type Config struct {
	Server     ServerConfig     `koanf:"server"     validate:"required"`
	Library    LibraryConfig    `koanf:"library"    validate:"required"`
	Chunker    ChunkerConfig    `koanf:"chunker"    validate:"required"`
	Embedder   EmbedderConfig   `koanf:"embedder"   validate:"required"`
	Vector     VectorConfig     `koanf:"vector"     validate:"required"`
	Scorer     ScorerConfig     `koanf:"scorer"     validate:"required"`
	Redis      RedisConfig      `koanf:"redis"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	Runtime    RuntimeConfig    `koanf:"runtime"    validate:"required"`
	CLI        CLIConfig        `koanf:"cli"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host           string          `koanf:"host"             validate:"required"        env:"SPECMATCH_SERVER_HOST"`
	Port           int             `koanf:"port"             validate:"min=1,max=65535" env:"SPECMATCH_SERVER_PORT"`
	Timeout        time.Duration   `koanf:"timeout"          validate:"min=0"           env:"SPECMATCH_SERVER_TIMEOUT"`
	CORSEnabled    bool            `koanf:"cors_enabled"                                env:"SPECMATCH_SERVER_CORS_ENABLED"`
	MaxUploadBytes int64           `koanf:"max_upload_bytes" validate:"min=1"           env:"SPECMATCH_SERVER_MAX_UPLOAD_BYTES"`
	RateLimit      RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig contains request rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool          `koanf:"enabled" env:"SPECMATCH_RATE_LIMIT_ENABLED"`
	Limit   int64         `koanf:"limit"   env:"SPECMATCH_RATE_LIMIT_LIMIT"   validate:"min=0"`
	Period  time.Duration `koanf:"period"  env:"SPECMATCH_RATE_LIMIT_PERIOD"  validate:"min=0"`
	Prefix  string        `koanf:"prefix"  env:"SPECMATCH_RATE_LIMIT_PREFIX"`
}

// LibraryConfig controls where the spec library keeps its state.
type LibraryConfig struct {
	DataDir     string        `koanf:"data_dir"     validate:"required"             env:"SPECMATCH_LIBRARY_DATA_DIR"`
	Catalog     string        `koanf:"catalog"      validate:"oneof=sqlite memory"  env:"SPECMATCH_LIBRARY_CATALOG"`
	CatalogPath string        `koanf:"catalog_path"                                 env:"SPECMATCH_LIBRARY_CATALOG_PATH"`
	LoadTimeout time.Duration `koanf:"load_timeout" validate:"min=0"                env:"SPECMATCH_LIBRARY_LOAD_TIMEOUT"`
	Lock        bool          `koanf:"lock"                                         env:"SPECMATCH_LIBRARY_LOCK"`
}

// ChunkerConfig mirrors the chunk.Settings knobs.
type ChunkerConfig struct {
	Strategy               string   `koanf:"strategy"                 validate:"oneof=protected recursive" env:"SPECMATCH_CHUNKER_STRATEGY"`
	TargetSize             int      `koanf:"target_size"              validate:"min=64,max=16384"          env:"SPECMATCH_CHUNKER_TARGET_SIZE"`
	OverlapRatio           float64  `koanf:"overlap_ratio"            validate:"gte=0,lt=0.5"              env:"SPECMATCH_CHUNKER_OVERLAP_RATIO"`
	ProtectedPatterns      []string `koanf:"protected_patterns"                                            env:"SPECMATCH_CHUNKER_PROTECTED_PATTERNS" envsep:";"`
	ReplaceDefaultPatterns bool     `koanf:"replace_default_patterns"                                      env:"SPECMATCH_CHUNKER_REPLACE_DEFAULT_PATTERNS"`
}

// EmbedderConfig selects and tunes the embedding model.
//
// The default hash provider is a lexical feature-hashing model for offline and
// development use. It scores paraphrases low, so the scoring thresholds are
// tuned for the openai and ollama providers.
type EmbedderConfig struct {
	Provider      string              `koanf:"provider"        validate:"oneof=hash openai ollama" env:"SPECMATCH_EMBEDDER_PROVIDER"`
	Model         string              `koanf:"model"           validate:"required"                 env:"SPECMATCH_EMBEDDER_MODEL"`
	BaseURL       string              `koanf:"base_url"                                            env:"SPECMATCH_EMBEDDER_BASE_URL"`
	APIKey        SensitiveString     `koanf:"api_key"                                             env:"OPENAI_API_KEY"                  sensitive:"true"`
	Dimension     int                 `koanf:"dimension"       validate:"min=1"                    env:"SPECMATCH_EMBEDDER_DIMENSION"`
	BatchSize     int                 `koanf:"batch_size"      validate:"min=1"                    env:"SPECMATCH_EMBEDDER_BATCH_SIZE"`
	Concurrency   int                 `koanf:"concurrency"     validate:"min=1,max=64"             env:"SPECMATCH_EMBEDDER_CONCURRENCY"`
	StripNewLines bool                `koanf:"strip_new_lines"                                     env:"SPECMATCH_EMBEDDER_STRIP_NEW_LINES"`
	Cache         EmbedderCacheConfig `koanf:"cache"`
}

// EmbedderCacheConfig configures the embedding cache.
type EmbedderCacheConfig struct {
	Backend string        `koanf:"backend" validate:"oneof=none lru redis" env:"SPECMATCH_EMBEDDER_CACHE_BACKEND"`
	Size    int           `koanf:"size"    validate:"min=0"                env:"SPECMATCH_EMBEDDER_CACHE_SIZE"`
	TTL     time.Duration `koanf:"ttl"     validate:"min=0"                env:"SPECMATCH_EMBEDDER_CACHE_TTL"`
	Prefix  string        `koanf:"prefix"                                  env:"SPECMATCH_EMBEDDER_CACHE_PREFIX"`
}

// VectorConfig selects the similarity index backend.
type VectorConfig struct {
	Provider    string          `koanf:"provider"     validate:"oneof=memory filesystem pgvector" env:"SPECMATCH_VECTOR_PROVIDER"`
	Path        string          `koanf:"path"                                                     env:"SPECMATCH_VECTOR_PATH"`
	DSN         SensitiveString `koanf:"dsn"                                                      env:"SPECMATCH_VECTOR_DSN"          sensitive:"true"`
	Table       string          `koanf:"table"                                                    env:"SPECMATCH_VECTOR_TABLE"`
	IndexType   string          `koanf:"index_type"   validate:"omitempty,oneof=hnsw ivfflat"     env:"SPECMATCH_VECTOR_INDEX_TYPE"`
	EnsureIndex bool            `koanf:"ensure_index"                                             env:"SPECMATCH_VECTOR_ENSURE_INDEX"`
	MaxConns    int32           `koanf:"max_conns"    validate:"min=0"                            env:"SPECMATCH_VECTOR_MAX_CONNS"`
}

// ScorerConfig holds the match scoring policy and query knobs.
type ScorerConfig struct {
	TopK               int           `koanf:"top_k"               validate:"min=1,max=50"  env:"SPECMATCH_SCORER_TOP_K"`
	Timeout            time.Duration `koanf:"timeout"             validate:"min=0"         env:"SPECMATCH_SCORER_TIMEOUT"`
	HighThreshold      float64       `koanf:"high_threshold"      validate:"gte=0,lte=1"   env:"SPECMATCH_SCORER_HIGH_THRESHOLD"`
	MediumThreshold    float64       `koanf:"medium_threshold"    validate:"gte=0,lte=1"   env:"SPECMATCH_SCORER_MEDIUM_THRESHOLD"`
	MinMatchThreshold  float64       `koanf:"min_match_threshold" validate:"gte=0,lte=1"   env:"SPECMATCH_SCORER_MIN_MATCH_THRESHOLD"`
	ReferenceBoost     float64       `koanf:"reference_boost"     validate:"gte=0,lte=0.15" env:"SPECMATCH_SCORER_REFERENCE_BOOST"`
	CorroborationBoost float64       `koanf:"corroboration_boost" validate:"gte=0,lte=1"   env:"SPECMATCH_SCORER_CORROBORATION_BOOST"`
	CorroborationCount int           `koanf:"corroboration_count" validate:"min=1"         env:"SPECMATCH_SCORER_CORROBORATION_COUNT"`
	MeasurementBoost   float64       `koanf:"measurement_boost"   validate:"gte=0,lte=1"   env:"SPECMATCH_SCORER_MEASUREMENT_BOOST"`
}

// RedisConfig is shared by the embedding cache and the rate limiter.
type RedisConfig struct {
	Addr     string          `koanf:"addr"     env:"SPECMATCH_REDIS_ADDR"`
	Password SensitiveString `koanf:"password" env:"SPECMATCH_REDIS_PASSWORD" sensitive:"true"`
	DB       int             `koanf:"db"       env:"SPECMATCH_REDIS_DB"       validate:"min=0"`
}

// MonitoringConfig toggles the Prometheus exporter.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"SPECMATCH_MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"SPECMATCH_MONITORING_PATH"    validate:"omitempty,startswith=/"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production" env:"SPECMATCH_RUNTIME_ENVIRONMENT"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error disabled" env:"SPECMATCH_RUNTIME_LOG_LEVEL"`
}

// CLIConfig carries values only the command line tool reads.
type CLIConfig struct {
	ConfigFile string `koanf:"config_file" env:"SPECMATCH_CONFIG_FILE"`
	EnvFile    string `koanf:"env_file"    env:"SPECMATCH_ENV_FILE"`
	Format     string `koanf:"format"      env:"SPECMATCH_FORMAT"      validate:"oneof=auto json text yaml"`
}

// Service defines the interface for configuration management.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type for a specific configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Watch monitors the source for changes.
	Watch(ctx context.Context, callback func()) error
	// Type returns the source type identifier.
	Type() SourceType
	// Close releases any resources held by the source.
	Close() error
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata tracks where each loaded key came from.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// SensitiveString hides its value when printed or serialized.
type SensitiveString string

const redacted = "[REDACTED]"

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// Value returns the underlying secret.
func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           5080,
			Timeout:        60 * time.Second,
			MaxUploadBytes: 64 << 20,
			RateLimit: RateLimitConfig{
				Enabled: true,
				Limit:   120,
				Period:  time.Minute,
				Prefix:  "specmatch:ratelimit:",
			},
		},
		Library: LibraryConfig{
			DataDir:     ".specmatch",
			Catalog:     "sqlite",
			LoadTimeout: 10 * time.Minute,
			Lock:        true,
		},
		Chunker: ChunkerConfig{
			Strategy:     "protected",
			TargetSize:   1200,
			OverlapRatio: 0.15,
		},
		Embedder: EmbedderConfig{
			Provider:      "hash",
			Model:         "hash-384",
			Dimension:     384,
			BatchSize:     32,
			Concurrency:   4,
			StripNewLines: true,
			Cache: EmbedderCacheConfig{
				Backend: "lru",
				Size:    4096,
				TTL:     24 * time.Hour,
				Prefix:  "specmatch:embeddings:",
			},
		},
		Vector: VectorConfig{
			Provider:  "filesystem",
			Table:     "spec_chunks",
			IndexType: "hnsw",
		},
		Scorer: ScorerConfig{
			TopK:               5,
			Timeout:            30 * time.Second,
			HighThreshold:      0.70,
			MediumThreshold:    0.55,
			MinMatchThreshold:  0.40,
			ReferenceBoost:     0.12,
			CorroborationBoost: 0.05,
			CorroborationCount: 2,
			MeasurementBoost:   0.03,
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
		CLI: CLIConfig{
			ConfigFile: "specmatch.yaml",
			EnvFile:    ".env",
			Format:     "auto",
		},
	}
}

// CatalogFile resolves the sqlite catalog location.
func (c *LibraryConfig) CatalogFile() string {
	if p := strings.TrimSpace(c.CatalogPath); p != "" {
		return p
	}
	return filepath.Join(c.DataDir, "library.db")
}

// LockFile resolves the cross-process lock location.
func (c *LibraryConfig) LockFile() string {
	return filepath.Join(c.DataDir, "library.lock")
}

// SnapshotFile resolves the filesystem index snapshot location.
func (c *Config) SnapshotFile() string {
	if p := strings.TrimSpace(c.Vector.Path); p != "" {
		return p
	}
	return filepath.Join(c.Library.DataDir, "index.json")
}
