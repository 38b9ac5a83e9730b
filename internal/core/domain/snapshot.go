package domain

import "time"

// StateSnapshot is the deliberately narrow projection of store state persisted
// across reloads so the UI can paint before the first network round-trip.
// Ephemeral collections (messages, presence, notifications) are never
// persisted.
type StateSnapshot struct {
	User         *User     `json:"user,omitempty"`
	Role         Role      `json:"role,omitempty"`
	RoleVersion  int       `json:"role_version"`
	TokenBalance int       `json:"token_balance"`
	SavedAt      time.Time `json:"saved_at"`
}
