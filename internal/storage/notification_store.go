package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shaharia-lab/mailadapter/internal/notification"
)

// Delivery log statuses.
const (
	LogStatusSent   = "sent"
	LogStatusFailed = "failed"
)

// NotificationLogEntry records a single notification delivery attempt.
type NotificationLogEntry struct {
	ID             int64     `json:"id"`
	NotificationID string    `json:"notification_id"`
	Adapter        string    `json:"adapter"`
	Recipient      string    `json:"recipient"`
	Subject        string    `json:"subject"`
	Status         string    `json:"status"`
	ErrorMsg       string    `json:"error_msg"`
	CreatedAt      time.Time `json:"created_at"`
}

// User is a registered notification recipient.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
}

// NotFoundError is returned when a requested record does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// AlreadyExistsError is returned when a record with the same ID is already stored.
type AlreadyExistsError struct {
	Resource string
	ID       string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Resource, e.ID)
}

// NotificationLogStore defines the interface for persisting notification delivery logs.
type NotificationLogStore interface {
	// LogNotification records a notification delivery attempt.
	LogNotification(ctx context.Context, entry NotificationLogEntry) error
	// ListNotifications returns the most recent notification log entries, up to limit.
	ListNotifications(ctx context.Context, limit int) ([]NotificationLogEntry, error)
}

// NotificationRepository stores users, notifications and their attachments.
type NotificationRepository interface {
	notification.Backend

	// CreateUser inserts or replaces a user.
	CreateUser(ctx context.Context, u User) error
	// CreateNotification inserts a notification together with its attachments.
	CreateNotification(ctx context.Context, n *notification.Notification) error
	// GetNotification loads a notification and its attachments.
	// It returns *NotFoundError if no notification has the given ID.
	GetNotification(ctx context.Context, id string) (*notification.Notification, error)
	// ListPendingNotifications returns notifications waiting to be sent whose
	// send_after is unset or not after now, oldest first.
	ListPendingNotifications(ctx context.Context, now time.Time, limit int) ([]*notification.Notification, error)
	// TransitionStatus moves a notification to status to, but only while its
	// current status is one of from. It reports whether the row was updated,
	// so concurrent callers claiming the same notification see exactly one
	// success.
	TransitionStatus(ctx context.Context, id, to string, from ...string) (bool, error)
	// MarkAsSent records a successful delivery.
	MarkAsSent(ctx context.Context, id, adapterKey string, at time.Time) error
	// MarkAsFailed records a failed delivery.
	MarkAsFailed(ctx context.Context, id, adapterKey string) error
}

// NotificationStore combines the repository and the delivery log.
type NotificationStore interface {
	NotificationRepository
	NotificationLogStore
}
