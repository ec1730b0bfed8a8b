package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/mailadapter/internal/notification"
	"github.com/shaharia-lab/mailadapter/internal/storage"
)

// NewSendCmd returns the "send" subcommand that delivers one stored notification.
func NewSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <notification-id>",
		Short: "Send a stored notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.withService(); err != nil {
				return err
			}

			if err := a.service.Send(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("sending %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %s\n", args[0])
			return nil
		},
	}
}

type oneOffFlags struct {
	to        string
	firstName string
	lastName  string
	subject   string
	body      string
	title     string
	attach    []string
}

// NewSendOneOffCmd returns the "send-oneoff" subcommand that sends to a literal address.
func NewSendOneOffCmd() *cobra.Command {
	var f oneOffFlags

	cmd := &cobra.Command{
		Use:   "send-oneoff",
		Short: "Send a notification to an address that is not a registered user",
		Example: `  mailadapter send-oneoff --to ada@example.com --subject "Invoice {{.number}}" \
    --body invoice.html --attach ./invoice.pdf:application/pdf`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := f.notification()
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.withService(); err != nil {
				return err
			}

			id, err := a.service.SendOneOff(cmd.Context(), n)
			if err != nil {
				return fmt.Errorf("sending one-off notification: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %s to %s\n", id, f.to)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.to, "to", "", "Recipient email address")
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "Recipient first name")
	cmd.Flags().StringVar(&f.lastName, "last-name", "", "Recipient last name")
	cmd.Flags().StringVar(&f.subject, "subject", "", "Subject template (file name or inline text)")
	cmd.Flags().StringVar(&f.body, "body", "", "Body template (file name or inline HTML)")
	cmd.Flags().StringVar(&f.title, "title", "", "Notification title")
	cmd.Flags().StringArrayVar(&f.attach, "attach", nil, "Attachment as path[:content-type]; repeatable")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

// notification builds the one-off notification described by the flags.
func (f oneOffFlags) notification() (*notification.Notification, error) {
	n := &notification.Notification{
		Recipient: notification.OneOffRecipient{
			EmailOrPhone: f.to,
			FirstName:    f.firstName,
			LastName:     f.lastName,
		},
		NotificationType: notification.TypeEmail,
		Title:            f.title,
		SubjectTemplate:  f.subject,
		BodyTemplate:     f.body,
	}
	for _, value := range f.attach {
		path, contentType := parseAttachFlag(value)
		att, err := storage.NewLocalAttachment(path, contentType)
		if err != nil {
			return nil, err
		}
		n.Attachments = append(n.Attachments, att)
	}
	return n, nil
}

// parseAttachFlag splits "path[:type]". The suffix is treated as a content
// type only when it looks like one.
func parseAttachFlag(value string) (path, contentType string) {
	i := strings.LastIndex(value, ":")
	if i < 0 || !strings.Contains(value[i+1:], "/") {
		return value, ""
	}
	return value[:i], value[i+1:]
}
