package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/specmatch/engine/infra/server/appstate"
	"github.com/compozy/specmatch/engine/infra/server/router"
	"github.com/compozy/specmatch/engine/infra/server/router/routertest"
	"github.com/compozy/specmatch/engine/infra/server/routes"
)

func diagnosticsEngine(t *testing.T, state *appstate.State) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(appstate.StateMiddleware(state))
	engine.Use(router.ErrorHandler())
	setupDiagnosticEndpoints(engine, "test", routes.Base())
	return engine
}

func get(engine http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	req.Host = "example.com"
	engine.ServeHTTP(w, req)
	return w
}

type unhealthyLibrary struct {
	appstate.Library
}

func (unhealthyLibrary) HealthCheck(context.Context) error { return errors.New("redis: connection refused") }

func TestSetupDiagnosticEndpoints(t *testing.T) {
	t.Run("Should return identical metadata for root and versioned base", func(t *testing.T) {
		engine := diagnosticsEngine(t, routertest.NewTestAppState(t))
		root := get(engine, "/")
		api := get(engine, routes.Base())
		require.Equal(t, http.StatusOK, root.Code)
		require.Equal(t, "application/json; charset=utf-8", root.Header().Get("Content-Type"))
		require.Equal(t, http.StatusOK, api.Code)
		var rootBody, apiBody map[string]any
		require.NoError(t, json.Unmarshal(root.Body.Bytes(), &rootBody))
		require.NoError(t, json.Unmarshal(api.Body.Bytes(), &apiBody))
		require.Equal(t, rootBody, apiBody)
		assert.Contains(t, root.Body.String(), "http://example.com/api/v0/analyze")
	})

	t.Run("Should report the library summary on health", func(t *testing.T) {
		engine := diagnosticsEngine(t, routertest.NewTestAppState(t))
		for _, path := range []string{"/health", routes.HealthVersioned()} {
			w := get(engine, path)
			require.Equal(t, http.StatusOK, w.Code, path)
			var body struct {
				Data struct {
					Status  string         `json:"status"`
					Ready   bool           `json:"ready"`
					Version string         `json:"version"`
					Library map[string]any `json:"library"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, statusHealthy, body.Data.Status)
			assert.True(t, body.Data.Ready)
			assert.Equal(t, "test", body.Data.Version)
			assert.EqualValues(t, 0, body.Data.Library["documents"])
			assert.EqualValues(t, 64, body.Data.Library["dimension"])
		}
	})

	t.Run("Should answer liveness without touching the library", func(t *testing.T) {
		state, err := appstate.NewState(unhealthyLibrary{}, 1024, "test")
		require.NoError(t, err)
		engine := diagnosticsEngine(t, state)
		assert.Equal(t, http.StatusOK, get(engine, "/healthz").Code)
	})

	t.Run("Should return 503 when the library is unhealthy", func(t *testing.T) {
		state, err := appstate.NewState(unhealthyLibrary{}, 1024, "test")
		require.NoError(t, err)
		engine := diagnosticsEngine(t, state)
		w := get(engine, routes.HealthVersioned())
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), statusNotReady)
		assert.Equal(t, http.StatusServiceUnavailable, get(engine, "/readyz").Code)
	})
}

func TestSanitizeHost(t *testing.T) {
	t.Run("Should keep the first forwarded host", func(t *testing.T) {
		assert.Equal(t, "a.example.com:8080", sanitizeHost(" a.example.com:8080, b.example.com"))
		assert.Empty(t, sanitizeHost("  "))
	})
}
