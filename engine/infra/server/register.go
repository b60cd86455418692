package server

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/compozy/specmatch/engine/infra/server/appstate"
	libraryrouter "github.com/compozy/specmatch/engine/infra/server/router/library"
	"github.com/compozy/specmatch/engine/infra/server/routes"
	"github.com/compozy/specmatch/pkg/logger"
)

// RegisterRoutes mounts the diagnostic endpoints and the versioned API.
func RegisterRoutes(ctx context.Context, router *gin.Engine, state *appstate.State) error {
	prefixURL := routes.Base()
	setupDiagnosticEndpoints(router, state.Version, prefixURL)
	apiBase := router.Group(prefixURL)
	libraryrouter.Register(apiBase, state.MaxUpload)
	logger.FromContext(ctx).Info("Completed route registration",
		"base", prefixURL,
		"max_upload_bytes", state.MaxUpload,
	)
	return nil
}
