package status

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/compozy/specmatch/cli/cmd"
	"github.com/compozy/specmatch/cli/helpers"
	"github.com/compozy/specmatch/engine/speclib/service"
)

// Cmd returns the status command.
func Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the documents and chunks in the spec library",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, run, args)
		},
	}
}

func run(ctx context.Context, _ *cobra.Command, svc *service.Service, out *helpers.OutputWriter, _ []string) error {
	summary, err := svc.Status().Execute(ctx)
	if err != nil {
		return err
	}
	return out.WriteData(summary, helpers.RenderSummary(summary))
}
