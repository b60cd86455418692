package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/compozy/specmatch/cli/helpers"
	"github.com/compozy/specmatch/engine/speclib/service"
	"github.com/compozy/specmatch/pkg/config"
	"github.com/compozy/specmatch/pkg/logger"
)

// lockWait is how long a command waits for a running server to release the library.
const lockWait = 2 * time.Second

const closeTimeout = 30 * time.Second

// HandlerFunc runs a command against an opened library service.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, svc *service.Service, out *helpers.OutputWriter, args []string) error

// CommandExecutor handles common setup for library commands: the output
// mode, opening the service from the configuration in context and closing it.
type CommandExecutor struct {
	mode helpers.Mode
	out  *helpers.OutputWriter
}

// NewCommandExecutor detects the output mode for cmd.
func NewCommandExecutor(cmd *cobra.Command) *CommandExecutor {
	mode := helpers.DetectMode(cmd)
	logger.FromContext(cmd.Context()).Debug("detected output mode", "mode", mode)
	color := mode == helpers.ModeText && helpers.ShouldUseColor()
	return &CommandExecutor{
		mode: mode,
		out:  helpers.NewOutputWriter(cmd.OutOrStdout(), mode, color),
	}
}

// Mode returns the detected output mode.
func (e *CommandExecutor) Mode() helpers.Mode {
	return e.mode
}

// OpenService builds the library service from the configuration in ctx.
func OpenService(ctx context.Context) (*service.Service, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, errors.New("configuration manager not found in context")
	}
	return service.New(ctx, cfg, service.Options{LockWait: lockWait})
}

// Execute opens the service, runs handler and closes the service again.
func (e *CommandExecutor) Execute(cmd *cobra.Command, handler HandlerFunc, args []string) (err error) {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	svc, err := OpenService(ctx)
	if err != nil {
		return fmt.Errorf("failed to open spec library: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer closeCancel()
		if cerr := svc.Close(closeCtx); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close spec library: %w", cerr)
		}
	}()
	return handler(ctx, cmd, svc, e.out, args)
}

// ExecuteCommand is NewCommandExecutor followed by Execute.
func ExecuteCommand(cmd *cobra.Command, handler HandlerFunc, args []string) error {
	return NewCommandExecutor(cmd).Execute(cmd, handler, args)
}

// ReadLines returns the non-blank lines of path, or of stdin when path is "-".
func ReadLines(cmd *cobra.Command, path string) ([]string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return splitLines(string(data)), nil
}

func splitLines(s string) []string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}
