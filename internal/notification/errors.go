package notification

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentifier is returned when a notification without an ID is sent.
	ErrMissingIdentifier = errors.New("notification ID is required")
	// ErrBackendNotInjected is returned when an addressed notification is sent
	// before InjectBackend was called.
	ErrBackendNotInjected = errors.New("backend not injected")
)

// RecipientNotFoundError is returned when no address could be resolved for a notification.
type RecipientNotFoundError struct {
	NotificationID string
}

func (e *RecipientNotFoundError) Error() string {
	return fmt.Sprintf("user email not found for notification %s", e.NotificationID)
}
