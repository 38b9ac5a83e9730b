package authapi

import (
	"encoding/json"
	"fmt"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

// wireSession covers the tolerated backend payload generations. The current
// shape nests role, role_version, permissions and user under "session"; an
// older flat shape carries the same fields at the top level; the oldest nests
// only the user and encodes the role as boolean flags on it.
type wireSession struct {
	User        *wireUser `json:"user"`
	Role        string    `json:"role"`
	RoleVersion int       `json:"role_version"`
	Permissions []string  `json:"permissions"`

	Session *struct {
		User        *wireUser `json:"user"`
		Role        string    `json:"role"`
		RoleVersion int       `json:"role_version"`
		Permissions []string  `json:"permissions"`
	} `json:"session"`
}

type wireUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	IsCreator    bool   `json:"is_creator"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

// normalizeSession maps either payload shape onto canonical session claims.
// A payload with no user object in either position is malformed.
func normalizeSession(body []byte) (*domain.SessionClaims, error) {
	var wire wireSession
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedSession, err)
	}

	user := wire.User
	roleName := wire.Role
	version := wire.RoleVersion
	perms := wire.Permissions
	if wire.Session != nil {
		// Nested fields win when present; a flat field only fills a gap.
		if wire.Session.User != nil {
			user = wire.Session.User
		}
		if wire.Session.Role != "" {
			roleName = wire.Session.Role
		}
		if wire.Session.RoleVersion != 0 {
			version = wire.Session.RoleVersion
		}
		if wire.Session.Permissions != nil {
			perms = wire.Session.Permissions
		}
	}
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("%w: missing user", domain.ErrMalformedSession)
	}

	role := domain.Role(roleName)
	if !domain.ValidRole(role) {
		role = deriveRole(user)
	}

	return &domain.SessionClaims{
		Role:        role,
		RoleVersion: version,
		Permissions: perms,
		User: domain.User{
			ID:       domain.UserID(user.ID),
			Email:    user.Email,
			Username: user.Username,
		},
	}, nil
}

// deriveRole reconstructs the role from the legacy boolean flags. Admin takes
// precedence over creator; everyone else is a fan.
func deriveRole(user *wireUser) domain.Role {
	switch {
	case user.IsSuperAdmin:
		return domain.RoleAdmin
	case user.IsCreator:
		return domain.RoleCreator
	default:
		return domain.RoleFan
	}
}
