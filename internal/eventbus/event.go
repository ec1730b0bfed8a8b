package eventbus

import "time"

// Event types published by the application.
const (
	// TypeNotificationSend asks a listener to deliver one stored notification.
	TypeNotificationSend = "notification.send"
)

// PayloadNotificationID is the payload key holding a notification ID.
const PayloadNotificationID = "notification_id"

// Event represents an application event published to the bus.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// NotificationID returns the notification ID carried by the event, if any.
func (e Event) NotificationID() string {
	return e.Payload[PayloadNotificationID]
}

// Listener is a function that handles an event.
type Listener func(Event)
