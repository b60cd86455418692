package core

import "net/http"

// Problem is the RFC 7807 body written for every failed API request.
type Problem struct {
	Status    int    `json:"status"              example:"503"`
	Title     string `json:"error"               example:"Service Unavailable"`
	Detail    string `json:"details,omitempty"   example:"embed query: embedding model unavailable"`
	Code      string `json:"code,omitempty"      example:"model_unavailable"`
	Type      string `json:"type"                example:"about:blank"`
	Instance  string `json:"instance,omitempty"  example:"/api/v0/analyze"`
	Retryable bool   `json:"retryable,omitempty" example:"true"`
}

// NewProblem builds the problem for an error status. Anything below 400 is
// reported as an internal error.
func NewProblem(status int, code, detail string) *Problem {
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	return &Problem{
		Status:    status,
		Title:     http.StatusText(status),
		Detail:    detail,
		Code:      code,
		Type:      "about:blank",
		Retryable: RetryableStatus(status),
	}
}

// RetryableStatus reports whether a client may repeat the same request later:
// the embedding model was down, the library was locked, or the caller was
// rate limited.
func RetryableStatus(status int) bool {
	switch status {
	case http.StatusServiceUnavailable, http.StatusLocked, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}
