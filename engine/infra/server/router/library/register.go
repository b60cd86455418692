package libraryrouter

import (
	"github.com/gin-gonic/gin"

	"github.com/compozy/specmatch/engine/infra/server/middleware/size"
)

// Register mounts the library routes on the versioned API group.
func Register(apiBase *gin.RouterGroup, maxUpload int64) {
	lib := apiBase.Group("/library")
	lib.GET("", getLibrary)
	lib.DELETE("", clearLibrary)
	lib.POST("/documents", size.BodySizeLimiter(maxUpload), uploadDocuments)
	apiBase.POST("/analyze", analyzeInfractions)
}
