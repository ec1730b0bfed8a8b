package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDispatchCmd returns the "dispatch" subcommand that sends all due notifications.
func NewDispatchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Send pending notifications that are due",
		Long: "Load pending notifications whose send time has passed and deliver them. " +
			"With MAILADAPTER_ENQUEUE=true they are queued to a worker pool instead of sent one by one.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.withService(); err != nil {
				return err
			}

			res, err := a.service.DispatchPending(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("dispatching: %w", err)
			}
			out := cmd.OutOrStdout()
			if res.Queued > 0 {
				fmt.Fprintf(out, "Queued %d notification(s)\n", res.Queued)
				return nil
			}
			fmt.Fprintf(out, "Sent %d, failed %d\n", res.Sent, res.Failed)
			if res.Skipped > 0 {
				fmt.Fprintf(out, "Skipped %d notification(s) claimed by another run\n", res.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of notifications to process")
	return cmd
}
