package appstate

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/compozy/specmatch/engine/speclib/ingest"
	"github.com/compozy/specmatch/engine/speclib/uc"
)

type contextKey string

const stateKey contextKey = "app_state"

// Library is what request handlers need from the running service.
type Library interface {
	Upload() *uc.Upload
	Analyze() *uc.Analyze
	Status() *uc.Status
	Clear() *uc.Clear
	HealthCheck(ctx context.Context) error
}

// State carries the shared dependencies of request handlers.
type State struct {
	Library   Library
	MaxUpload int64
	// MaxFileSize caps each uploaded part; larger parts are reported as failures.
	MaxFileSize int64
	Version     string
}

func NewState(lib Library, maxUpload int64, version string) (*State, error) {
	if lib == nil {
		return nil, errors.New("library service is required")
	}
	return &State{
		Library:     lib,
		MaxUpload:   maxUpload,
		MaxFileSize: ingest.MaxFileSizeBytes,
		Version:     version,
	}, nil
}

func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

func GetState(ctx context.Context) (*State, error) {
	state, ok := ctx.Value(stateKey).(*State)
	if !ok || state == nil {
		return nil, errors.New("app state not found in context")
	}
	return state, nil
}

// StateMiddleware attaches state to every request context.
func StateMiddleware(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithState(c.Request.Context(), state)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
