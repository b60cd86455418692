package size

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/specmatch/engine/infra/server/router"
)

// BodySizeLimiter caps the request body for the route group. Requests that
// announce a larger Content-Length are rejected before reading.
func BodySizeLimiter(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			router.RespondProblemWithCode(
				c,
				http.StatusRequestEntityTooLarge,
				router.ErrPayloadTooLargeCode,
				fmt.Sprintf("request body exceeds %d bytes", limit),
			)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
