package domain

import "time"

type UserID string
type ChannelID string
type StreamID string

// SessionStatus is the bootstrap lifecycle state gating all rendering.
type SessionStatus string

const (
	SessionIdle    SessionStatus = "idle"
	SessionLoading SessionStatus = "loading"
	SessionReady   SessionStatus = "ready"
)

type Role string

const (
	RoleCreator Role = "creator"
	RoleFan     Role = "fan"
	RoleAdmin   Role = "admin"
)

// ValidRole reports whether r is one of the enumerated roles.
func ValidRole(r Role) bool {
	return r == RoleCreator || r == RoleFan || r == RoleAdmin
}

type User struct {
	ID       UserID `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Session is the authoritative backend-confirmed identity for the current user.
// Role is empty only while Status != ready; once ready it is always
// one of the enumerated roles (unauthenticated users resolve to fan).
type Session struct {
	Status      SessionStatus
	Role        Role
	User        *User
	Permissions []string
	RoleVersion int
	Err         string
	UpdatedAt   time.Time
}

// RoleHint is the durable last-known-good (role, userId) pair. It is written
// only after a successful session fetch and cleared only on explicit logout,
// so a transient network blip can never downgrade a confirmed role.
type RoleHint struct {
	Role   Role   `json:"role"`
	UserID UserID `json:"user_id"`
}

// SessionClaims is the canonical normalized session-fetch result. Both
// historical backend payload shapes normalize into this one type.
type SessionClaims struct {
	Role        Role
	User        User
	Permissions []string
	RoleVersion int
}
