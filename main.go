package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/compozy/specmatch/cli"
	"github.com/compozy/specmatch/cli/helpers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := cli.RootCmd()
	cmd, err := root.ExecuteContextC(ctx)
	stop()
	if err != nil {
		helpers.OutputError(os.Stderr, err, helpers.DetectMode(cmd))
		os.Exit(1)
	}
}
