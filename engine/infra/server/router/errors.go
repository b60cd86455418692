package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/specmatch/engine/core"
	"github.com/compozy/specmatch/engine/speclib"
)

// Problem codes returned in the "code" field of error responses.
const (
	ErrInternalCode           = "internal_error"
	ErrBadRequestCode         = "bad_request"
	ErrNotFoundCode           = "not_found"
	ErrDimensionMismatchCode  = "dimension_mismatch"
	ErrLockedCode             = "library_locked"
	ErrPayloadTooLargeCode    = "payload_too_large"
	ErrRateLimitedCode        = "rate_limited"
	ErrServiceUnavailableCode = "model_unavailable"
	ErrMalformedDocumentCode  = "malformed_document"
)

// Error messages
const (
	ErrMsgAppStateNotInitialized = "application state not initialized"
)

// StatusFor maps a library error to its HTTP status and problem code.
func StatusFor(err error) (int, string) {
	switch speclib.KindOf(err) {
	case speclib.KindInvalidInput:
		return http.StatusBadRequest, ErrBadRequestCode
	case speclib.KindMalformedDocument:
		return http.StatusUnprocessableEntity, ErrMalformedDocumentCode
	case speclib.KindModelUnavailable:
		return http.StatusServiceUnavailable, ErrServiceUnavailableCode
	case speclib.KindDimensionMismatch:
		return http.StatusConflict, ErrDimensionMismatchCode
	case speclib.KindLibraryLocked:
		return http.StatusLocked, ErrLockedCode
	default:
		return http.StatusInternalServerError, ErrInternalCode
	}
}

// RespondWithError writes the problem document for err.
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondProblemWithCode(c, http.StatusRequestEntityTooLarge, ErrPayloadTooLargeCode, err.Error())
		return
	}
	status, code := StatusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		// internals stay in the log
		_ = c.Error(err)
		detail = "internal server error"
	}
	RespondProblem(c, core.NewProblem(status, code, detail))
}

// ErrorHandler turns errors left on the gin context by handlers that did not
// write a response into problem documents.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		RespondWithError(c, c.Errors.Last().Err)
	}
}
