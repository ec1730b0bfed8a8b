// Package notification implements an email notification adapter: it renders
// a notification, resolves its recipient, materializes its attachments and
// hands the resulting message to an SMTP transport.
package notification

import "context"

// TemplateRenderer turns a notification and its context into a subject and
// an HTML body.
type TemplateRenderer interface {
	Render(ctx context.Context, n *Notification, data Context) (RenderedTemplate, error)
}

// Backend resolves recipient addresses for addressed notifications.
type Backend interface {
	// GetUserEmailFromNotification returns the email address of the user the
	// notification is addressed to, or "" when none is known.
	GetUserEmailFromNotification(ctx context.Context, notificationID string) (string, error)
}

// Transport delivers a fully assembled message.
type Transport interface {
	SendMail(ctx context.Context, req SendRequest) error
}

// TransportFactory builds the Transport an adapter uses for its lifetime.
type TransportFactory func(cfg SMTPConfig) (Transport, error)

// Adapter is the contract a notification framework uses to deliver
// notifications of one type through one channel.
type Adapter interface {
	// Key returns the adapter identifier (e.g. "gomail").
	Key() string
	// NotificationType returns the notification type the adapter delivers.
	NotificationType() string
	// EnqueueNotifications reports whether the host should queue sends
	// instead of calling Send inline.
	EnqueueNotifications() bool
	// SupportsAttachments reports whether Send delivers notification attachments.
	SupportsAttachments() bool
	// InjectBackend attaches the lookup collaborator used to resolve
	// addressed notifications.
	InjectBackend(b Backend)
	// Send delivers a single notification.
	Send(ctx context.Context, n *Notification, data Context) error
}
