package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// NewRootCmd returns the mailadapter root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	var metricsFile string

	root := &cobra.Command{
		Use:   "mailadapter",
		Short: "Deliver stored email notifications over SMTP",
		Long: "mailadapter renders notifications, resolves their recipients and " +
			"sends them with attachments through an SMTP server.",
		SilenceUsage: true,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if metricsFile == "" {
				return nil
			}
			if err := prometheus.WriteToTextfile(metricsFile, prometheus.DefaultGatherer); err != nil {
				return fmt.Errorf("writing metrics: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&metricsFile, "metrics-file", "",
		"Write prometheus metrics in textfile-collector format to this path on exit")
	root.PersistentFlags().String("data-dir", "", "Data directory (overrides MAILADAPTER_DATA_DIR)")

	root.AddCommand(
		NewSendCmd(),
		NewSendOneOffCmd(),
		NewImportCmd(),
		NewDispatchCmd(),
		NewLogCmd(),
		NewServeCmd(),
		NewVersionCmd(),
		NewUpdateCmd(),
	)
	return root
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
