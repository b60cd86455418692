package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/compozy/specmatch/engine/infra/monitoring"
	"github.com/compozy/specmatch/engine/infra/server/appstate"
	"github.com/compozy/specmatch/engine/speclib/service"
	"github.com/compozy/specmatch/pkg/config"
	"github.com/compozy/specmatch/pkg/logger"
	"github.com/compozy/specmatch/pkg/version"
)

// Run serves until ctx is canceled or the process receives SIGINT/SIGTERM.
func (s *Server) Run() error {
	if err := s.Setup(); err != nil {
		s.Shutdown()
		return err
	}
	s.logStartupBanner()
	return s.startAndRunServer()
}

// Setup opens every dependency and builds the router without listening.
func (s *Server) Setup() error {
	cfg := s.manager.Get()
	s.setupMonitoring(cfg)
	if s.service == nil {
		svc, err := service.New(s.ctx, cfg, service.Options{})
		if err != nil {
			return fmt.Errorf("failed to open spec library: %w", err)
		}
		s.service = svc
	}
	s.manager.OnChange(s.onConfigChange)
	state, err := appstate.NewState(s.service, cfg.Server.MaxUploadBytes, version.GetVersion())
	if err != nil {
		return fmt.Errorf("failed to create app state: %w", err)
	}
	if err := s.buildRouter(cfg, state); err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}
	return nil
}

func (s *Server) setupMonitoring(cfg *config.Config) {
	log := logger.FromContext(s.ctx)
	s.monitoring = monitoring.NewMonitoringServiceWithFallback(s.ctx, monitoring.FromAppConfig(&cfg.Monitoring))
	if !s.monitoring.IsInitialized() {
		if err := s.monitoring.InitializationError(); err != nil {
			log.Warn("Monitoring disabled", "error", err)
		}
		return
	}
	s.monitoring.SetAsGlobal()
	log.Info("Monitoring enabled", "path", s.monitoring.Path())
}

func (s *Server) onConfigChange(cfg *config.Config) {
	if s.service == nil || cfg == nil {
		return
	}
	if err := s.service.ApplyConfig(s.ctx, cfg); err != nil {
		logger.FromContext(s.ctx).Error("Failed to apply configuration change", "error", err)
	}
}

func (s *Server) startAndRunServer() error {
	ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	s.httpServer = s.createHTTPServer()
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	var serveErr error
	select {
	case <-ctx.Done():
		logger.FromContext(s.ctx).Debug("Received shutdown signal, initiating graceful shutdown")
	case err := <-errCh:
		if err != nil {
			serveErr = fmt.Errorf("server failed to start: %w", err)
		}
	}
	s.Shutdown()
	return serveErr
}

func (s *Server) createHTTPServer() *http.Server {
	addr := fmt.Sprintf("%s:%d", s.serverConfig.Host, s.serverConfig.Port)
	logger.FromContext(s.ctx).Info("Starting HTTP server", "address", fmt.Sprintf("http://%s", addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: httpReadHeaderTimeout,
		IdleTimeout:       httpIdleTimeout,
	}
	// A zero timeout leaves reads and writes unbounded.
	if s.serverConfig.Timeout > 0 {
		srv.ReadTimeout = s.serverConfig.Timeout
		srv.WriteTimeout = s.serverConfig.Timeout
	}
	return srv
}

// Shutdown stops the listener then releases the library, in that order.
// Safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		log := logger.FromContext(s.ctx)
		s.cancel()
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
			if err := s.httpServer.Shutdown(ctx); err != nil {
				log.Error("HTTP server shutdown failed", "error", err)
			}
			cancel()
		}
		if s.service != nil {
			ctx, cancel := context.WithTimeout(context.Background(), libraryShutdownTimeout)
			if err := s.service.Close(ctx); err != nil {
				log.Error("Failed to close spec library", "error", err)
			}
			cancel()
		}
		if s.monitoring != nil {
			ctx, cancel := context.WithTimeout(context.Background(), monitoringShutdownTimeout)
			if err := s.monitoring.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown monitoring", "error", err)
			}
			cancel()
		}
		log.Info("Server shutdown completed successfully")
	})
}
