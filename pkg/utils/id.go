package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID generates a random ID with prefix
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// GenerateMessageID generates a unique chat message ID. Optimistically sent
// messages carry this id so the server echo can be correlated.
func GenerateMessageID() string {
	return GenerateID("msg")
}

// GenerateNotificationID generates a unique notification ID
func GenerateNotificationID() string {
	return GenerateID("notif")
}

// GenerateCallID generates a unique call ID
func GenerateCallID() string {
	return GenerateID("call")
}
