package routertest

import (
	"context"
	"testing"

	"github.com/compozy/specmatch/engine/infra/server/appstate"
	"github.com/compozy/specmatch/engine/speclib/service"
	appconfig "github.com/compozy/specmatch/pkg/config"
)

// TestConfig returns an isolated configuration backed by the hash embedder
// and an in-memory index.
func TestConfig(t *testing.T) *appconfig.Config {
	t.Helper()
	cfg := appconfig.Default()
	cfg.Library.DataDir = t.TempDir()
	cfg.Library.Lock = false
	cfg.Vector.Provider = "memory"
	cfg.Embedder.Dimension = 64
	cfg.Embedder.Model = "hash-64"
	cfg.Embedder.Cache.Backend = "none"
	return cfg
}

// NewTestService builds a service closed at test cleanup.
func NewTestService(t *testing.T) *service.Service {
	t.Helper()
	return NewTestServiceWithConfig(t, TestConfig(t))
}

// NewTestServiceWithConfig is NewTestService for a caller supplied config.
func NewTestServiceWithConfig(t *testing.T, cfg *appconfig.Config) *service.Service {
	t.Helper()
	svc, err := service.New(t.Context(), cfg, service.Options{})
	requireNoError(t, err)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}

// NewTestAppState wraps a fresh test service in an app state.
func NewTestAppState(t *testing.T) *appstate.State {
	t.Helper()
	svc := NewTestService(t)
	state, err := appstate.NewState(svc, svc.Config().Server.MaxUploadBytes, "test")
	requireNoError(t, err)
	return state
}

func requireNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
