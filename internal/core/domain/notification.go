package domain

import "time"

type NotificationID string

type NotificationType string

const (
	NotificationGeneric        NotificationType = "generic"
	NotificationMessage        NotificationType = "message"
	NotificationCall           NotificationType = "call"
	NotificationStreamAlert    NotificationType = "stream_alert"
	NotificationTokens         NotificationType = "tokens"
	NotificationConnectionLost NotificationType = "connection_lost"
)

type Notification struct {
	ID        NotificationID         `json:"id"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Read      bool                   `json:"read"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// MaxNotifications bounds the notification list to the most recent entries.
const MaxNotifications = 100
