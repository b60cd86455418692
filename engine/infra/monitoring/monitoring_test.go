package monitoring

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/compozy/specmatch/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("Should reject paths under the API prefix", func(t *testing.T) {
		require.Error(t, (&Config{Enabled: true, Path: "/api/metrics"}).Validate())
		require.Error(t, (&Config{Enabled: true, Path: "metrics"}).Validate())
		require.Error(t, (&Config{Enabled: true, Path: "/metrics?x=1"}).Validate())
		require.NoError(t, (&Config{Enabled: true, Path: "/metrics"}).Validate())
	})

	t.Run("Should map the application config section", func(t *testing.T) {
		cfg := FromAppConfig(&config.MonitoringConfig{Enabled: true, Path: "/prom"})
		assert.True(t, cfg.Enabled)
		assert.Equal(t, "/prom", cfg.Path)
		assert.Equal(t, "/metrics", FromAppConfig(nil).Path)
	})
}

func TestService(t *testing.T) {
	t.Run("Should expose prometheus metrics when enabled", func(t *testing.T) {
		svc, err := NewMonitoringService(t.Context(), &Config{Enabled: true, Path: "/metrics"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
		require.True(t, svc.IsInitialized())

		counter, err := svc.Meter().Int64Counter("specmatch_test_events_total")
		require.NoError(t, err)
		counter.Add(t.Context(), 2, metric.WithAttributes())

		w := httptest.NewRecorder()
		svc.ExporterHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		require.Equal(t, http.StatusOK, w.Code)
		body, err := io.ReadAll(w.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "specmatch_test_events_total")
	})

	t.Run("Should answer 503 when disabled", func(t *testing.T) {
		svc, err := NewMonitoringService(t.Context(), &Config{Enabled: false, Path: "/metrics"})
		require.NoError(t, err)
		assert.False(t, svc.IsInitialized())
		w := httptest.NewRecorder()
		svc.ExporterHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Should fall back to a no-op service on invalid config", func(t *testing.T) {
		svc := NewMonitoringServiceWithFallback(t.Context(), &Config{Enabled: true, Path: "bad"})
		assert.False(t, svc.IsInitialized())
		assert.Error(t, svc.InitializationError())
		assert.NotNil(t, svc.Meter())
	})
}
