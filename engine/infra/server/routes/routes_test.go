package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBase(t *testing.T) {
	t.Run("Should return versioned API base path", func(t *testing.T) {
		assert.Equal(t, "/api/v0", Base())
		assert.Contains(t, Base(), "/api/"+Version())
	})
}

func TestLibraryRoutes(t *testing.T) {
	t.Run("Should nest library routes under the base", func(t *testing.T) {
		assert.Equal(t, "/api/v0/library", Library())
		assert.Equal(t, "/api/v0/library/documents", LibraryDocuments())
		assert.Equal(t, "/api/v0/analyze", Analyze())
		assert.Equal(t, "/api/v0/health", HealthVersioned())
	})
}
