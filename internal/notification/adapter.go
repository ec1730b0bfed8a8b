package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// AdapterKey identifies the mail adapter to the host framework.
const AdapterKey = "gomail"

// Option configures a MailAdapter.
type Option func(*MailAdapter)

// WithTransportFactory replaces the factory used to build the transport.
func WithTransportFactory(f TransportFactory) Option {
	return func(a *MailAdapter) { a.newTransport = f }
}

// WithLogger sets the logger used by the adapter.
func WithLogger(l *slog.Logger) Option {
	return func(a *MailAdapter) { a.logger = l }
}

// MailAdapter delivers email notifications through an SMTP transport.
type MailAdapter struct {
	renderer     TemplateRenderer
	enqueue      bool
	transport    Transport
	newTransport TransportFactory
	logger       *slog.Logger

	mu      sync.RWMutex
	backend Backend
}

var _ Adapter = (*MailAdapter)(nil)

// NewMailAdapter creates a MailAdapter around renderer. cfg is passed as-is to
// the transport factory, and the transport it returns is reused for every send.
func NewMailAdapter(renderer TemplateRenderer, enqueue bool, cfg SMTPConfig, opts ...Option) (*MailAdapter, error) {
	a := &MailAdapter{
		renderer:     renderer,
		enqueue:      enqueue,
		newTransport: NewSMTPTransport,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	t, err := a.newTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating mail transport: %w", err)
	}
	a.transport = t
	return a, nil
}

// AdapterFactory creates mail adapters for the host framework.
type AdapterFactory struct {
	Options []Option
}

// Create builds a MailAdapter with the factory's options.
func (f AdapterFactory) Create(renderer TemplateRenderer, enqueue bool, cfg SMTPConfig) (*MailAdapter, error) {
	return NewMailAdapter(renderer, enqueue, cfg, f.Options...)
}

// Key returns the adapter identifier.
func (a *MailAdapter) Key() string { return AdapterKey }

// NotificationType returns TypeEmail.
func (a *MailAdapter) NotificationType() string { return TypeEmail }

// EnqueueNotifications returns the flag given at construction.
func (a *MailAdapter) EnqueueNotifications() bool { return a.enqueue }

// SupportsAttachments is always true for the mail adapter.
func (a *MailAdapter) SupportsAttachments() bool { return true }

// InjectBackend sets the backend used to resolve addressed notifications.
func (a *MailAdapter) InjectBackend(b Backend) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.backend = b
}

// Send renders n, resolves its recipient, reads its attachments and hands the
// message to the transport. Errors from the renderer, the backend, attachment
// files and the transport are returned unchanged.
func (a *MailAdapter) Send(ctx context.Context, n *Notification, data Context) error {
	if n == nil {
		return ErrMissingIdentifier
	}

	tmpl, err := a.renderer.Render(ctx, n, data)
	if err != nil {
		return err
	}

	if n.ID == "" {
		return ErrMissingIdentifier
	}

	to, err := a.resolveRecipient(ctx, n)
	if err != nil {
		return err
	}

	attachments, err := a.materializeAttachments(ctx, n.Attachments)
	if err != nil {
		return err
	}

	req := SendRequest{
		To:          to,
		Subject:     tmpl.Subject,
		HTML:        tmpl.Body,
		Attachments: attachments,
	}

	log := a.logger.With("notification_id", n.ID, "adapter", AdapterKey)
	log.Debug("dispatching notification", "attachments", len(attachments), "one_off", n.IsOneOff())

	if err := a.transport.SendMail(ctx, req); err != nil {
		MailSendFailure.WithLabelValues(AdapterKey).Inc()
		log.Warn("mail transport failed", "error", err)
		return err
	}

	MailSendSuccess.WithLabelValues(AdapterKey).Inc()
	log.Info("notification sent")
	return nil
}

// resolveRecipient returns the destination address for n.
func (a *MailAdapter) resolveRecipient(ctx context.Context, n *Notification) (string, error) {
	if r, ok := n.OneOff(); ok {
		if r.EmailOrPhone == "" {
			return "", &RecipientNotFoundError{NotificationID: n.ID}
		}
		return r.EmailOrPhone, nil
	}

	a.mu.RLock()
	backend := a.backend
	a.mu.RUnlock()
	if backend == nil {
		return "", ErrBackendNotInjected
	}

	email, err := backend.GetUserEmailFromNotification(ctx, n.ID)
	if err != nil {
		return "", err
	}
	if email == "" {
		return "", &RecipientNotFoundError{NotificationID: n.ID}
	}
	return email, nil
}

// materializeAttachments reads every attachment file. The reads run
// concurrently; the result keeps the input order.
func (a *MailAdapter) materializeAttachments(ctx context.Context, in []Attachment) ([]MailAttachment, error) {
	if len(in) == 0 {
		return nil, nil
	}

	out := make([]MailAttachment, len(in))
	g, gctx := errgroup.WithContext(ctx)
	for i, att := range in {
		g.Go(func() error {
			if att.File == nil {
				return fmt.Errorf("attachment %q has no file", att.Filename)
			}
			content, err := att.File.Read(gctx)
			if err != nil {
				return err
			}
			out[i] = MailAttachment{
				Filename:    att.Filename,
				Content:     content,
				ContentType: att.ContentType,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	AttachmentsMaterialized.WithLabelValues(AdapterKey).Add(float64(len(out)))
	return out, nil
}
