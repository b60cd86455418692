package clear

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/specmatch/cli/cmd"
	"github.com/compozy/specmatch/cli/helpers"
	"github.com/compozy/specmatch/engine/speclib/service"
)

// Cmd returns the clear command.
func Cmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "clear",
		Short: "Remove every document from the spec library",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, run, args)
		},
	}
	command.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return command
}

// Confirm asks on the command input unless --yes was given. Without a
// terminal the flag is required.
func Confirm(c *cobra.Command) error {
	yes, err := c.Flags().GetBool("yes")
	if err != nil {
		return err
	}
	if yes {
		return nil
	}
	if !helpers.IsInteractive() {
		return helpers.NewCliError("CONFIRMATION_REQUIRED", "refusing to clear the library without --yes")
	}
	fmt.Fprint(c.ErrOrStderr(), "Clear the spec library? This cannot be undone [y/N]: ")
	answer, _ := bufio.NewReader(c.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return helpers.NewCliError("ABORTED", "clear aborted")
	}
}

type result struct {
	Cleared    bool   `json:"cleared"`
	Generation uint64 `json:"generation"`
}

func run(ctx context.Context, c *cobra.Command, svc *service.Service, out *helpers.OutputWriter, _ []string) error {
	if err := Confirm(c); err != nil {
		return err
	}
	if err := svc.Clear().Execute(ctx); err != nil {
		return err
	}
	res := result{Cleared: true, Generation: svc.Library().Generation()}
	return out.WriteData(res, func(st helpers.Styles) string {
		return st.Success.Render("Spec library cleared") + st.Muted.Render(fmt.Sprintf(" (generation %d)", res.Generation))
	})
}
