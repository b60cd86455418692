package analyze

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/compozy/specmatch/cli/cmd"
	"github.com/compozy/specmatch/cli/helpers"
	"github.com/compozy/specmatch/engine/speclib/service"
	"github.com/compozy/specmatch/engine/speclib/uc"
)

// Cmd returns the analyze command.
func Cmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "analyze <infraction...>",
		Short: "Classify infractions against the spec library",
		Long: `Score each infraction against the loaded specification documents.

Infractions come from the arguments and from --file, one per line. Use
--file - to read from stdin. Lines starting with # are ignored.`,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, run, args)
		},
	}
	command.Flags().Int("top-k", 0, "Matches to return per infraction (0 uses the configured default)")
	command.Flags().StringP("file", "f", "", "Read infractions from a file, one per line")
	return command
}

// CollectInfractions merges positional infractions with the --file lines.
func CollectInfractions(c *cobra.Command, args []string) ([]string, error) {
	infractions := append([]string(nil), args...)
	path, err := c.Flags().GetString("file")
	if err != nil {
		return nil, err
	}
	if path != "" {
		lines, err := cmd.ReadLines(c, path)
		if err != nil {
			return nil, err
		}
		infractions = append(infractions, lines...)
	}
	if len(infractions) == 0 {
		return nil, helpers.NewCliError("NO_INFRACTIONS", "provide infractions as arguments or with --file")
	}
	return infractions, nil
}

func run(ctx context.Context, c *cobra.Command, svc *service.Service, out *helpers.OutputWriter, args []string) error {
	infractions, err := CollectInfractions(c, args)
	if err != nil {
		return err
	}
	topK, err := c.Flags().GetInt("top-k")
	if err != nil {
		return err
	}
	result, err := svc.Analyze().Execute(ctx, &uc.AnalyzeInput{Infractions: infractions, TopK: topK})
	if err != nil {
		return err
	}
	return out.WriteData(result, helpers.RenderAnalyze(result))
}
