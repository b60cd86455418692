package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/compozy/specmatch/pkg/logger"
)

// Store owns the SQLite connection pool.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens the database at path with default settings and applies migrations.
func NewStore(ctx context.Context, path string) (*Store, error) {
	return NewStoreWithConfig(ctx, &Config{Path: path})
}

// NewStoreWithConfig opens the database described by cfg and applies migrations.
func NewStoreWithConfig(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("sqlite: config is required")
	}
	path := strings.TrimSpace(cfg.Path)
	if !isMemoryPath(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", buildDSN(path, cfg.busyTimeout().Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	configurePool(db, cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.FromContext(ctx).Debug("SQLite catalog ready", "path", displayPath(path))
	return &Store{db: db, path: path}, nil
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the configured database path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the pool.
func (s *Store) Close(_ context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close database: %w", err)
	}
	return nil
}

func configurePool(db *sql.DB, cfg *Config) {
	if isMemoryPath(cfg.Path) {
		// an in-memory database lives as long as its only connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func buildDSN(path string, busyTimeoutMS int64) string {
	pragmas := fmt.Sprintf("_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)", busyTimeoutMS)
	if isMemoryPath(path) {
		return "file::memory:?" + pragmas
	}
	u := url.URL{Scheme: "file", Opaque: path}
	return u.String() + "?_pragma=journal_mode(WAL)&" + pragmas
}

func displayPath(path string) string {
	if isMemoryPath(path) {
		return ":memory:"
	}
	return path
}

// ToJSONText marshals v into a TEXT column value. Nil maps and slices become NULL.
func ToJSONText(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("sqlite: marshal json: %w", err)
	}
	if string(b) == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// FromJSONText decodes a TEXT column value into dst. NULL leaves dst untouched.
func FromJSONText(src sql.NullString, dst any) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(src.String), dst); err != nil {
		return fmt.Errorf("sqlite: unmarshal json: %w", err)
	}
	return nil
}
