package cli

import (
	"github.com/spf13/cobra"

	"github.com/compozy/specmatch/cli/cmd/analyze"
	"github.com/compozy/specmatch/cli/cmd/clear"
	"github.com/compozy/specmatch/cli/cmd/mcpserver"
	"github.com/compozy/specmatch/cli/cmd/serve"
	"github.com/compozy/specmatch/cli/cmd/status"
	"github.com/compozy/specmatch/cli/cmd/upload"
	"github.com/compozy/specmatch/pkg/version"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "specmatch",
		Short: "Match construction infractions against specification documents",
		Long: `specmatch learns construction specification documents and classifies
inspection infractions by how strongly the specifications support them.`,
		Version:            version.Get().String(),
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  setupContext,
		PersistentPostRunE: teardownContext,
	}
	flags := root.PersistentFlags()
	flags.String("config", "specmatch.yaml", "Path to the YAML config file")
	flags.String("env-file", ".env", "Path to an environment file")
	flags.String("log-level", "", "Log level: debug, info, warn, error or disabled")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")
	flags.String("format", "", "Output format: json, text or yaml (default: text on a terminal, JSON otherwise)")

	root.AddCommand(
		serve.Cmd(),
		upload.Cmd(),
		analyze.Cmd(),
		status.Cmd(),
		clear.Cmd(),
		mcpserver.Cmd(),
	)
	return root
}
