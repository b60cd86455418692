package serve

import (
	"github.com/spf13/cobra"

	"github.com/compozy/specmatch/engine/infra/server"
)

// Cmd returns the serve command.
func Cmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			srv, err := server.NewServer(c.Context())
			if err != nil {
				return err
			}
			return srv.Run()
		},
	}
	command.Flags().String("host", "", "Address to bind (overrides server.host)")
	command.Flags().Int("port", 0, "Port to listen on (overrides server.port)")
	command.Flags().Bool("cors", false, "Enable CORS (overrides server.cors_enabled)")
	return command
}
