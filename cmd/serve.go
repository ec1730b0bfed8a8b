package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/mailadapter/internal/api"
	"github.com/shaharia-lab/mailadapter/internal/server"
)

// NewServeCmd returns the "serve" subcommand that runs the HTTP API.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: "Serve the notification API under /api, a health check at /health " +
			"and prometheus metrics at /metrics.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.withService(); err != nil {
				return err
			}

			port := a.cfg.Port
			if cmd.Flags().Changed("port") {
				port, _ = cmd.Flags().GetInt("port")
			}

			srv := server.New(api.New(a.service, a.logger), port, a.cfg.CORSOrigins, a.logger)
			fmt.Fprintf(cmd.ErrOrStderr(), "mailadapter API listening on http://localhost:%d\n", port)
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().Int("port", 8990, "HTTP server port (overrides MAILADAPTER_PORT)")
	return cmd
}
