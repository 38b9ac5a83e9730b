package utils

import "time"

// Now returns current time (replaceable for virtual-clock tests)
var Now = time.Now

// Since returns time since given time using the replaceable clock
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

// IsExpired checks if a timestamp is expired
func IsExpired(timestamp time.Time, ttl time.Duration) bool {
	return Since(timestamp) > ttl
}

// FormatTimestamp formats timestamp in ISO 8601 format
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// ParseTimestamp parses ISO 8601 timestamp
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
