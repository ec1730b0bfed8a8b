package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/shaharia-lab/mailadapter/internal/storage"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	sentStyle   = cellStyle.Foreground(lipgloss.Color("2"))
	failedStyle = cellStyle.Foreground(lipgloss.Color("1"))
)

// NewLogCmd returns the "log" subcommand that lists recent delivery attempts.
func NewLogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent delivery attempts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.store.ListNotifications(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing delivery log: %w", err)
			}
			renderLog(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries to show")
	return cmd
}

// statusColumn is the index of the status column in the log table.
const statusColumn = 3

func renderLog(w io.Writer, entries []storage.NotificationLogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No deliveries recorded.")
		return
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.NotificationID,
			e.Recipient,
			e.Status,
			e.ErrorMsg,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "NOTIFICATION", "RECIPIENT", "STATUS", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusColumn {
				switch rows[row][col] {
				case storage.LogStatusSent:
					return sentStyle
				case storage.LogStatusFailed:
					return failedStyle
				}
			}
			return cellStyle
		})

	fmt.Fprintln(w, t.String())
}
