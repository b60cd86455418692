package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/specmatch/engine/infra/server/router"
	"github.com/compozy/specmatch/pkg/logger"
)

const (
	statusHealthy  = "healthy"
	statusNotReady = "not_ready"
)

// Health endpoint
//
//	@Summary      Get server health
//	@Description  Returns service health and a summary of the loaded spec library
//	@Tags         health
//	@Produce      json
//	@Success      200 {object} map[string]interface{} "Service is healthy"
//	@Failure      503 {object} map[string]interface{} "Service is not ready"
//	@Router       /api/v0/health [get]
func CreateHealthHandler(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ready, response := gatherHealth(c, version)
		c.JSON(determineHealthStatusCode(ready), gin.H{
			"data":    response,
			"message": "Success",
		})
	}
}

func gatherHealth(c *gin.Context, version string) (bool, gin.H) {
	response := gin.H{
		"status":  statusHealthy,
		"version": version,
		"ready":   true,
	}
	state, ok := router.GetAppState(c)
	if !ok {
		response["status"] = statusNotReady
		response["ready"] = false
		return false, response
	}
	ctx := c.Request.Context()
	if err := state.Library.HealthCheck(ctx); err != nil {
		logger.FromContext(ctx).Warn("Health check failed", "error", err)
		response["status"] = statusNotReady
		response["ready"] = false
		response["last_error"] = err.Error()
		return false, response
	}
	summary, err := state.Library.Status().Execute(ctx)
	if err != nil {
		response["status"] = "degraded"
		response["ready"] = false
		response["last_error"] = err.Error()
		return false, response
	}
	response["library"] = gin.H{
		"documents":      summary.Documents,
		"chunks":         summary.Chunks,
		"dimension":      summary.Dimension,
		"generation":     summary.Generation,
		"last_loaded_at": summary.LastLoadedAt,
	}
	return true, response
}

func determineHealthStatusCode(ready bool) int {
	if !ready {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
