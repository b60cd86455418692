package server

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compozy/specmatch/engine/infra/server/appstate"
	"github.com/compozy/specmatch/engine/infra/server/middleware/ratelimit"
	"github.com/compozy/specmatch/engine/infra/server/router"
	"github.com/compozy/specmatch/engine/infra/server/routes"
	"github.com/compozy/specmatch/pkg/config"
	"github.com/compozy/specmatch/pkg/logger"
	"github.com/compozy/specmatch/pkg/version"
)

func convertRateLimitConfig(cfg *config.Config, metricsPath string) *ratelimit.Config {
	out := ratelimit.FromAppConfig(&cfg.Server.RateLimit)
	out.ExcludedPaths = []string{
		"/health",                // unversioned
		routes.HealthVersioned(), // versioned API health
		"/healthz",               // liveness probe
		"/readyz",                // readiness probe
		metricsPath,              // Prometheus
	}
	return out
}

func (s *Server) buildRouter(cfg *config.Config, state *appstate.State) error {
	r := gin.New()
	r.Use(gin.Recovery())
	monitoringOn := s.monitoring != nil && s.monitoring.IsInitialized()
	metricsPath := "/metrics"
	if s.monitoring != nil {
		metricsPath = s.monitoring.Path()
	}
	if cfg.Server.RateLimit.Enabled {
		log := logger.FromContext(s.ctx)
		rateLimitConfig := convertRateLimitConfig(cfg, metricsPath)
		redisClient := s.service.RedisClient()
		var manager *ratelimit.Manager
		var err error
		if monitoringOn {
			manager, err = ratelimit.NewManagerWithMetrics(s.ctx, rateLimitConfig, redisClient, s.monitoring.Meter())
		} else {
			manager, err = ratelimit.NewManager(rateLimitConfig, redisClient)
		}
		if err != nil {
			log.Error("Failed to initialize rate limiting", "error", err)
		} else {
			r.Use(manager.Middleware())
			log.Info("rate limiter initialized",
				"driver", manager.Store(),
				"global_limit", rateLimitConfig.GlobalRate.Limit,
				"global_period", rateLimitConfig.GlobalRate.Period)
		}
	}
	if monitoringOn {
		r.Use(s.monitoring.GinMiddleware())
	}
	r.Use(LoggerMiddleware(logger.FromContext(s.ctx)))
	if cfg.Server.CORSEnabled {
		r.Use(CORSMiddleware())
	}
	r.Use(appstate.StateMiddleware(state))
	r.Use(router.ErrorHandler())
	if monitoringOn {
		r.GET(metricsPath, gin.WrapH(s.monitoring.ExporterHandler()))
	}
	if err := RegisterRoutes(s.ctx, r, state); err != nil {
		return err
	}
	s.router = r
	return nil
}

func (s *Server) logStartupBanner() {
	log := logger.FromContext(s.ctx)
	cfg := s.manager.Get()
	httpURL := fmt.Sprintf("http://%s:%d", friendlyHost(cfg.Server.Host), cfg.Server.Port)
	lines := []string{
		"Specmatch " + version.Get().String(),
		fmt.Sprintf("  API           > %s%s", httpURL, routes.Base()),
		fmt.Sprintf("  Health        > %s%s", httpURL, routes.HealthVersioned()),
		fmt.Sprintf("  Upload        > %s%s", httpURL, routes.LibraryDocuments()),
		fmt.Sprintf("  Analyze       > %s%s", httpURL, routes.Analyze()),
		fmt.Sprintf("  Embedder      > %s (%s, dim %d)", cfg.Embedder.Provider, cfg.Embedder.Model, cfg.Embedder.Dimension),
		fmt.Sprintf("  Vector index  > %s", cfg.Vector.Provider),
		fmt.Sprintf("  Data dir      > %s", cfg.Library.DataDir),
	}
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		lines = append(lines, fmt.Sprintf("  Metrics       > %s%s", httpURL, s.monitoring.Path()))
	}
	log.Info("\n" + strings.Join(lines, "\n"))
}

func friendlyHost(h string) string {
	if h == hostAny || h == "::" || h == "" {
		return hostLoopback
	}
	return h
}
