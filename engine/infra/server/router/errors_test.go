package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/specmatch/engine/speclib"
)

func TestStatusFor(t *testing.T) {
	t.Run("Should map every library error kind", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{speclib.InvalidInput("analyze", "blank"), http.StatusBadRequest, ErrBadRequestCode},
			{speclib.MalformedDocument("a.pdf", "no text"), http.StatusUnprocessableEntity, ErrMalformedDocumentCode},
			{speclib.ModelUnavailable("embed", errors.New("down")), http.StatusServiceUnavailable, ErrServiceUnavailableCode},
			{speclib.DimensionMismatch("upsert", 3, 4), http.StatusConflict, ErrDimensionMismatchCode},
			{fmt.Errorf("wrap: %w", speclib.ErrLibraryLocked), http.StatusLocked, ErrLockedCode},
			{errors.New("boom"), http.StatusInternalServerError, ErrInternalCode},
		}
		for _, tc := range cases {
			status, code := StatusFor(tc.err)
			assert.Equal(t, tc.status, status, tc.err.Error())
			assert.Equal(t, tc.code, code, tc.err.Error())
		}
	})
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Should write a problem document", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/api/v0/analyze", http.NoBody)
		RespondWithError(c, speclib.ModelUnavailable("embed query", errors.New("connection refused")))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, ErrServiceUnavailableCode, body["code"])
		assert.Contains(t, body["details"], "connection refused")
		assert.Equal(t, "/api/v0/analyze", body["instance"])
		assert.Equal(t, true, body["retryable"])
	})

	t.Run("Should hide internal error details", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		RespondWithError(c, errors.New("sqlite: disk I/O error"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "disk I/O")
	})

	t.Run("Should report oversized bodies", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
		RespondWithError(c, fmt.Errorf("parse form: %w", &http.MaxBytesError{Limit: 10}))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestErrorHandler(t *testing.T) {
	t.Run("Should render errors a handler left unwritten", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.Use(ErrorHandler())
		r.GET("/t", func(c *gin.Context) {
			_ = c.Error(speclib.InvalidInput("t", "bad"))
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", http.NoBody))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
