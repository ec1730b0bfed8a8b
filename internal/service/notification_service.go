package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaharia-lab/mailadapter/internal/eventbus"
	"github.com/shaharia-lab/mailadapter/internal/notification"
	"github.com/shaharia-lab/mailadapter/internal/storage"
)

const (
	defaultDispatchLimit = 100
	eventSendTimeout     = 30 * time.Second
	tracerName           = "github.com/shaharia-lab/mailadapter/internal/service"
)

// sendableStatuses are the statuses Send may claim a notification from.
var sendableStatuses = []string{
	notification.StatusPendingSend,
	notification.StatusQueued,
	notification.StatusFailed,
}

// DispatchResult summarizes one DispatchPending run. Skipped counts
// notifications another run claimed first.
type DispatchResult struct {
	Queued  int `json:"queued"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// NotificationService loads stored notifications, delivers them through the
// mail adapter and records every attempt.
type NotificationService interface {
	// Send delivers the stored notification with the given ID.
	Send(ctx context.Context, id string) error
	// SendOneOff stores n and delivers it immediately. It returns the
	// notification ID, generated when n.ID is empty.
	SendOneOff(ctx context.Context, n *notification.Notification) (string, error)
	// DispatchPending delivers or enqueues up to limit due notifications.
	DispatchPending(ctx context.Context, limit int) (DispatchResult, error)
	// HandleEvent is an event bus listener delivering notification.send events.
	HandleEvent(e eventbus.Event)
	// ListLog returns the most recent notification log entries.
	ListLog(ctx context.Context, limit int) ([]storage.NotificationLogEntry, error)
}

// notificationServiceImpl implements NotificationService.
type notificationServiceImpl struct {
	adapter   notification.Adapter
	store     storage.NotificationStore
	publisher EventPublisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures a NotificationService.
type Option func(*notificationServiceImpl)

// WithTracerProvider sets the provider delivery spans are created from.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *notificationServiceImpl) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// NewNotificationService creates a new NotificationService. The store is
// injected into the adapter as its recipient backend. publisher may be nil,
// in which case pending notifications are always delivered inline.
func NewNotificationService(
	adapter notification.Adapter,
	store storage.NotificationStore,
	publisher EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	adapter.InjectBackend(store)
	s := &notificationServiceImpl{
		adapter:   adapter,
		store:     store,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *notificationServiceImpl) Send(ctx context.Context, id string) error {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		var nf *storage.NotFoundError
		if errors.As(err, &nf) {
			return &NotFoundError{Resource: "notification", ID: id}
		}
		return fmt.Errorf("loading notification %q: %w", id, err)
	}
	if n.Status == notification.StatusSent {
		return &ConflictError{Resource: "notification", ID: id, Reason: "already sent"}
	}

	claimed, err := s.store.TransitionStatus(ctx, id, notification.StatusSending, sendableStatuses...)
	if err != nil {
		return fmt.Errorf("claiming notification %q: %w", id, err)
	}
	if !claimed {
		return &ConflictError{Resource: "notification", ID: id, Reason: "delivery already in progress"}
	}
	return s.deliver(ctx, n)
}

func (s *notificationServiceImpl) SendOneOff(ctx context.Context, n *notification.Notification) (string, error) {
	if n == nil {
		return "", &ValidationError{Message: "notification is nil"}
	}
	r, ok := n.OneOff()
	if !ok {
		return "", &ValidationError{Field: "recipient", Message: "one-off recipient is required"}
	}
	if r.EmailOrPhone == "" {
		return "", &ValidationError{Field: "recipient", Message: "email is required"}
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.NotificationType == "" {
		n.NotificationType = s.adapter.NotificationType()
	}
	// Stored already claimed so no dispatch run picks it up.
	n.Status = notification.StatusSending
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}

	if err := s.store.CreateNotification(ctx, n); err != nil {
		var exists *storage.AlreadyExistsError
		if errors.As(err, &exists) {
			return "", &ConflictError{Resource: "notification", ID: n.ID, Reason: "already exists"}
		}
		return "", fmt.Errorf("storing notification: %w", err)
	}
	return n.ID, s.deliver(ctx, n)
}

func (s *notificationServiceImpl) DispatchPending(ctx context.Context, limit int) (DispatchResult, error) {
	if limit <= 0 {
		limit = defaultDispatchLimit
	}

	var res DispatchResult
	pending, err := s.store.ListPendingNotifications(ctx, s.now().UTC(), limit)
	if err != nil {
		return res, fmt.Errorf("listing pending notifications: %w", err)
	}

	if s.adapter.EnqueueNotifications() && s.publisher != nil {
		for _, n := range pending {
			if !s.claim(ctx, n.ID, notification.StatusQueued, &res) {
				continue
			}
			ok := s.publisher.Publish(eventbus.TypeNotificationSend, map[string]string{
				eventbus.PayloadNotificationID: n.ID,
			})
			if !ok {
				// Left pending for the next run.
				s.logger.Warn("notification not queued", "notification_id", n.ID)
				if _, err := s.store.TransitionStatus(ctx, n.ID,
					notification.StatusPendingSend, notification.StatusQueued); err != nil {
					s.logger.Error("failed to release notification", "notification_id", n.ID, "error", err)
				}
				continue
			}
			res.Queued++
		}
		s.logger.Info("pending notifications queued",
			"queued", res.Queued, "skipped", res.Skipped, "pending", len(pending))
		return res, nil
	}

	for _, n := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !s.claim(ctx, n.ID, notification.StatusSending, &res) {
			continue
		}
		if err := s.deliver(ctx, n); err != nil {
			res.Failed++
			continue
		}
		res.Sent++
	}
	s.logger.Info("pending notifications dispatched",
		"sent", res.Sent, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

// claim moves a pending notification to status to. It counts notifications
// already claimed elsewhere as skipped and claim errors as failed.
func (s *notificationServiceImpl) claim(ctx context.Context, id, to string, res *DispatchResult) bool {
	claimed, err := s.store.TransitionStatus(ctx, id, to, notification.StatusPendingSend)
	if err != nil {
		s.logger.Error("failed to claim notification", "notification_id", id, "error", err)
		res.Failed++
		return false
	}
	if !claimed {
		s.logger.Debug("notification claimed by another run", "notification_id", id)
		res.Skipped++
		return false
	}
	return true
}

func (s *notificationServiceImpl) HandleEvent(e eventbus.Event) {
	if e.Type != eventbus.TypeNotificationSend {
		return
	}
	id := e.NotificationID()
	if id == "" {
		s.logger.Warn("notification event without id", "event", e.Type)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventSendTimeout)
	defer cancel()
	if err := s.Send(ctx, id); err != nil {
		s.logger.Error("queued notification failed", "notification_id", id, "error", err)
	}
}

func (s *notificationServiceImpl) ListLog(ctx context.Context, limit int) ([]storage.NotificationLogEntry, error) {
	return s.store.ListNotifications(ctx, limit)
}

// deliver sends n through the adapter and records the outcome. Recording
// failures are logged; the delivery error is returned.
func (s *notificationServiceImpl) deliver(ctx context.Context, n *notification.Notification) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("notification.id", n.ID),
		attribute.String("notification.adapter", s.adapter.Key()),
		attribute.Bool("notification.one_off", n.IsOneOff()),
		attribute.Int("notification.attachments", len(n.Attachments)),
	)

	sendErr := s.adapter.Send(ctx, n, notification.Context(n.ContextParameters))
	if sendErr != nil {
		span.RecordError(sendErr)
		span.SetStatus(codes.Error, "delivery failed")
	}

	entry := storage.NotificationLogEntry{
		NotificationID: n.ID,
		Adapter:        s.adapter.Key(),
		Recipient:      recipientLabel(n),
		Subject:        n.Title,
		Status:         storage.LogStatusSent,
	}
	log := s.logger.With("notification_id", n.ID)

	if sendErr != nil {
		entry.Status = storage.LogStatusFailed
		entry.ErrorMsg = sendErr.Error()
		log.Warn("notification delivery failed", "error", sendErr)
		if err := s.store.MarkAsFailed(ctx, n.ID, s.adapter.Key()); err != nil {
			log.Error("failed to mark notification as failed", "error", err)
		}
	} else {
		if err := s.store.MarkAsSent(ctx, n.ID, s.adapter.Key(), s.now().UTC()); err != nil {
			log.Error("failed to mark notification as sent", "error", err)
		}
	}

	if err := s.store.LogNotification(ctx, entry); err != nil {
		log.Error("failed to write notification log", "error", err)
	}
	return sendErr
}

// recipientLabel describes the recipient of n for the delivery log.
func recipientLabel(n *notification.Notification) string {
	if r, ok := n.OneOff(); ok {
		return r.EmailOrPhone
	}
	return "user:" + n.UserID()
}
