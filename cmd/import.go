package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shaharia-lab/mailadapter/internal/notification"
	"github.com/shaharia-lab/mailadapter/internal/storage"
)

// fixtureFile is the YAML document accepted by the import command.
type fixtureFile struct {
	Users         []fixtureUser         `yaml:"users"`
	Notifications []fixtureNotification `yaml:"notifications"`
}

type fixtureUser struct {
	ID        string `yaml:"id"`
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

type fixtureNotification struct {
	ID              string                        `yaml:"id"`
	UserID          string                        `yaml:"user_id"`
	To              *notification.OneOffRecipient `yaml:"to"`
	Title           string                        `yaml:"title"`
	ContextName     string                        `yaml:"context_name"`
	Context         map[string]any                `yaml:"context"`
	ExtraParams     map[string]any                `yaml:"extra_params"`
	SubjectTemplate string                        `yaml:"subject_template"`
	BodyTemplate    string                        `yaml:"body_template"`
	SendAfter       *time.Time                    `yaml:"send_after"`
	Attachments     []fixtureAttachment           `yaml:"attachments"`
}

type fixtureAttachment struct {
	Path        string `yaml:"path"`
	ContentType string `yaml:"content_type"`
	Description string `yaml:"description"`
}

// NewImportCmd returns the "import" subcommand that loads users and
// notifications from a YAML file.
func NewImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import users and notifications from a YAML file",
		Long: "Import users and pending notifications. Attachment paths are resolved " +
			"relative to the YAML file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, notifications, err := loadFixture(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			for _, u := range users {
				if err := a.store.CreateUser(ctx, u); err != nil {
					return fmt.Errorf("importing user %q: %w", u.ID, err)
				}
			}
			for _, n := range notifications {
				if err := a.store.CreateNotification(ctx, n); err != nil {
					return fmt.Errorf("importing notification %q: %w", n.ID, err)
				}
			}

			a.logger.Info("fixture imported", "file", args[0],
				"users", len(users), "notifications", len(notifications))
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d user(s) and %d notification(s)\n",
				len(users), len(notifications))
			return nil
		},
	}
}

// loadFixture reads and converts the fixture at path.
func loadFixture(path string) ([]storage.User, []*notification.Notification, error) {
	//nolint:gosec // path is supplied by the operator
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f fixtureFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, nil, fmt.Errorf("parsing fixture %q: %w", path, err)
	}
	return f.convert(filepath.Dir(path))
}

// convert validates the fixture and builds storage records. Relative
// attachment paths are resolved against baseDir.
func (f fixtureFile) convert(baseDir string) ([]storage.User, []*notification.Notification, error) {
	users := make([]storage.User, 0, len(f.Users))
	for i, u := range f.Users {
		if u.ID == "" {
			return nil, nil, fmt.Errorf("users[%d]: id is required", i)
		}
		users = append(users, storage.User{
			ID:        u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		})
	}

	now := time.Now().UTC()
	notifications := make([]*notification.Notification, 0, len(f.Notifications))
	for i, fn := range f.Notifications {
		if fn.ID == "" {
			return nil, nil, fmt.Errorf("notifications[%d]: id is required", i)
		}

		n := &notification.Notification{
			ID:                fn.ID,
			NotificationType:  notification.TypeEmail,
			ContextName:       fn.ContextName,
			ContextParameters: fn.Context,
			Title:             fn.Title,
			SubjectTemplate:   fn.SubjectTemplate,
			BodyTemplate:      fn.BodyTemplate,
			ExtraParams:       fn.ExtraParams,
			Status:            notification.StatusPendingSend,
			SendAfter:         fn.SendAfter,
			CreatedAt:         now,
		}
		switch {
		case fn.To != nil && fn.UserID != "":
			return nil, nil, fmt.Errorf("notifications[%d]: user_id and to are mutually exclusive", i)
		case fn.To != nil:
			n.Recipient = *fn.To
		case fn.UserID != "":
			n.Recipient = notification.UserRecipient{UserID: fn.UserID}
		default:
			return nil, nil, fmt.Errorf("notifications[%d]: user_id or to is required", i)
		}

		for _, fa := range fn.Attachments {
			p := fa.Path
			if !filepath.IsAbs(p) {
				p = filepath.Join(baseDir, p)
			}
			att, err := storage.NewLocalAttachment(p, fa.ContentType)
			if err != nil {
				return nil, nil, fmt.Errorf("notifications[%d]: %w", i, err)
			}
			att.Description = fa.Description
			n.Attachments = append(n.Attachments, att)
		}
		notifications = append(notifications, n)
	}
	return users, notifications, nil
}
