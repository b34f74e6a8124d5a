package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/emergo/pkg/server"
)

// serveCommand creates the HTTP API command.
func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve build orders over HTTP",
		Long: `Serve build orders over HTTP.

  GET /healthz
  GET /v1/order?atom=app-misc/foo&atom=dev-libs/bar[&policy=newest][&arch=arm64]`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer runner.Close()

			printInfo("Serving %s on %s", StyleHighlight.Render(cfg.Repo), StyleHighlight.Render(cfg.Server.Addr))
			return server.New(runner, c.Logger).ListenAndServe(cmd.Context(), cfg.Server.Addr)
		},
	}

	cmd.Flags().String("addr", server.DefaultAddr, "listen address")

	return cmd
}
