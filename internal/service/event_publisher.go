package service

// EventPublisher is the interface for publishing application events.
// Services use this interface to emit events without depending on a concrete
// event bus implementation.
type EventPublisher interface {
	// Publish enqueues an event and reports whether it was accepted.
	Publish(eventType string, payload map[string]string) bool
}
