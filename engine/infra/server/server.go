package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compozy/specmatch/engine/infra/monitoring"
	"github.com/compozy/specmatch/engine/speclib/service"
	"github.com/compozy/specmatch/pkg/config"
)

const (
	monitoringShutdownTimeout = 5 * time.Second
	libraryShutdownTimeout    = 30 * time.Second
	serverShutdownTimeout     = 5 * time.Second
	httpReadHeaderTimeout     = 15 * time.Second
	httpIdleTimeout           = 60 * time.Second
	hostAny                   = "0.0.0.0"
	hostLoopback              = "127.0.0.1"
)

// Server runs the HTTP API in front of one spec library service.
type Server struct {
	serverConfig *config.ServerConfig
	manager      *config.Manager
	service      *service.Service
	monitoring   *monitoring.Service
	router       *gin.Engine
	ctx          context.Context
	cancel       context.CancelFunc
	httpServer   *http.Server
	shutdownOnce sync.Once
}

// NewServer reads the configuration attached to ctx. The library service is
// opened by Run, or can be supplied up front with WithService.
func NewServer(ctx context.Context) (*Server, error) {
	serverCtx, cancel := context.WithCancel(ctx)
	manager := config.ManagerFromContext(serverCtx)
	cfg := manager.Get()
	if cfg == nil {
		cancel()
		return nil, fmt.Errorf("configuration missing from context; attach a manager with config.ContextWithManager")
	}
	return &Server{
		serverConfig: &cfg.Server,
		manager:      manager,
		ctx:          serverCtx,
		cancel:       cancel,
	}, nil
}

// WithService makes the server use an already opened library service. The
// server takes ownership and closes it on shutdown.
func (s *Server) WithService(svc *service.Service) *Server {
	s.service = svc
	return s
}

// Router exposes the built engine, nil before Setup.
func (s *Server) Router() *gin.Engine {
	return s.router
}
