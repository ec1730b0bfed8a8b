package notification

import (
	"context"
	"time"
)

// TypeEmail is the notification type handled by the mail adapter.
const TypeEmail = "EMAIL"

// Notification statuses as stored by the host.
const (
	StatusPendingSend = "PENDING_SEND"
	StatusQueued      = "QUEUED"
	StatusSending     = "SENDING"
	StatusSent        = "SENT"
	StatusFailed      = "FAILED"
)

// Context is the JSON object a notification is rendered with.
type Context map[string]any

// Recipient identifies who a notification is delivered to. It is either a
// UserRecipient or a OneOffRecipient.
type Recipient interface {
	isRecipient()
}

// UserRecipient addresses a registered user. The email address is looked up
// through the Backend when the notification is sent.
type UserRecipient struct {
	UserID string `json:"user_id" yaml:"user_id"`
}

func (UserRecipient) isRecipient() {}

// OneOffRecipient carries a literal destination address and needs no lookup.
type OneOffRecipient struct {
	EmailOrPhone string `json:"email_or_phone" yaml:"email_or_phone"`
	FirstName    string `json:"first_name" yaml:"first_name"`
	LastName     string `json:"last_name" yaml:"last_name"`
}

func (OneOffRecipient) isRecipient() {}

// Notification is a single message to deliver.
type Notification struct {
	ID                string
	Recipient         Recipient
	NotificationType  string
	ContextName       string
	ContextParameters map[string]any
	Title             string
	SubjectTemplate   string
	BodyTemplate      string
	ExtraParams       map[string]any
	Attachments       []Attachment
	Status            string
	SendAfter         *time.Time
	SentAt            *time.Time
	CreatedAt         time.Time
}

// OneOff returns the literal recipient and true when n is a one-off notification.
func (n *Notification) OneOff() (OneOffRecipient, bool) {
	switch r := n.Recipient.(type) {
	case OneOffRecipient:
		return r, true
	case *OneOffRecipient:
		if r != nil {
			return *r, true
		}
	}
	return OneOffRecipient{}, false
}

// IsOneOff reports whether n carries a literal destination address.
func (n *Notification) IsOneOff() bool {
	_, ok := n.OneOff()
	return ok
}

// UserID returns the addressed user's ID, or "" for one-off notifications.
func (n *Notification) UserID() string {
	switch r := n.Recipient.(type) {
	case UserRecipient:
		return r.UserID
	case *UserRecipient:
		if r != nil {
			return r.UserID
		}
	}
	return ""
}

// AttachmentFile gives access to the stored bytes of an attachment.
type AttachmentFile interface {
	// Read returns the full content of the file.
	Read(ctx context.Context) ([]byte, error)
}

// Attachment references stored binary content attached to a notification.
type Attachment struct {
	ID          string
	FileID      string
	Filename    string
	ContentType string
	Size        int64
	Checksum    string
	Description string
	File        AttachmentFile
	CreatedAt   time.Time
}

// RenderedTemplate is the output of rendering a notification.
type RenderedTemplate struct {
	Subject string
	Body    string
}

// MailAttachment is an attachment with its bytes materialized.
type MailAttachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// SendRequest is the payload handed to a Transport.
// Attachments is nil when the notification has none.
type SendRequest struct {
	To          string
	Subject     string
	HTML        string
	Attachments []MailAttachment
}
