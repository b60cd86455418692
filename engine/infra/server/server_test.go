package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/specmatch/engine/infra/server/appstate"
	"github.com/compozy/specmatch/engine/infra/server/router/routertest"
	"github.com/compozy/specmatch/engine/infra/server/routes"
	"github.com/compozy/specmatch/pkg/config"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := routertest.TestConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	manager := config.NewManager(config.NewService())
	_, err := manager.Load(t.Context(), config.NewDefaultProvider())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close(context.Background()) })
	ctx := config.ContextWithManager(t.Context(), manager)
	srv, err := NewServer(ctx)
	require.NoError(t, err)
	// Loaded defaults point at the working directory; tests run against cfg.
	srv.serverConfig = &cfg.Server
	svc := routertest.NewTestServiceWithConfig(t, cfg)
	srv.WithService(svc)
	require.NoError(t, srv.buildRouter(cfg, mustState(t, srv, cfg)))
	t.Cleanup(srv.Shutdown)
	return srv
}

func mustState(t *testing.T, srv *Server, cfg *config.Config) *appstate.State {
	t.Helper()
	state, err := appstate.NewState(srv.service, cfg.Server.MaxUploadBytes, "test")
	require.NoError(t, err)
	return state
}

func TestServerRouter(t *testing.T) {
	t.Run("Should serve health through the full middleware chain", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, routes.HealthVersioned(), http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("Should rate limit API routes", func(t *testing.T) {
		srv := newTestServer(t, func(cfg *config.Config) {
			cfg.Server.RateLimit.Enabled = true
			cfg.Server.RateLimit.Limit = 1
		})
		first := httptest.NewRecorder()
		srv.Router().ServeHTTP(first, httptest.NewRequest(http.MethodGet, routes.Library(), http.NoBody))
		require.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
		second := httptest.NewRecorder()
		srv.Router().ServeHTTP(second, httptest.NewRequest(http.MethodGet, routes.Library(), http.NoBody))
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})

	t.Run("Should answer CORS preflight when enabled", func(t *testing.T) {
		srv := newTestServer(t, func(cfg *config.Config) {
			cfg.Server.RateLimit.Enabled = false
			cfg.Server.CORSEnabled = true
		})
		req := httptest.NewRequest(http.MethodOptions, routes.Analyze(), http.NoBody)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestFriendlyHost(t *testing.T) {
	t.Run("Should map wildcard hosts to loopback", func(t *testing.T) {
		assert.Equal(t, hostLoopback, friendlyHost(hostAny))
		assert.Equal(t, hostLoopback, friendlyHost(""))
		assert.Equal(t, "10.0.0.5", friendlyHost("10.0.0.5"))
	})
}
