package store

import (
	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

// Session composes the current auth slice into the gate value consumers
// render against.
func (s *Store) Session() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := domain.Session{
		Status:      s.status,
		Role:        s.role,
		Permissions: append([]string(nil), s.permissions...),
		RoleVersion: s.roleVersion,
		Err:         s.statusErr,
	}
	if s.user != nil {
		u := *s.user
		sess.User = &u
	}
	return sess
}

// CurrentUser returns a copy of the authenticated user, or nil.
func (s *Store) CurrentUser() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Role returns the current role and its version.
func (s *Store) Role() (domain.Role, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role, s.roleVersion
}

// TokenBalance returns the current token balance.
func (s *Store) TokenBalance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenBalance
}

// BeginLoading moves the session gate to loading. Only the bootstrapper calls
// this.
func (s *Store) BeginLoading() {
	s.mu.Lock()
	s.status = domain.SessionLoading
	s.statusErr = ""
	s.mu.Unlock()
	s.notify()
}

// FinishReady applies a backend-confirmed session and moves the gate to
// ready.
func (s *Store) FinishReady(claims *domain.SessionClaims) {
	s.mu.Lock()
	u := claims.User
	s.user = &u
	s.permissions = append([]string(nil), claims.Permissions...)
	s.applyRole(claims.Role, claims.RoleVersion, true)
	s.status = domain.SessionReady
	s.statusErr = ""
	s.saveSnapshot()
	s.mu.Unlock()
	s.notify()
}

// FinishReadyFallback resolves the gate to ready with the last known good
// role after a fetch failure. It never downgrades a verified role and records
// the error string for diagnostics.
func (s *Store) FinishReadyFallback(hint domain.RoleHint, fetchErr string) {
	s.mu.Lock()
	if hint.Role != "" {
		s.applyRole(hint.Role, 0, false)
	} else if s.role == "" {
		// First-ever load with no hint resolves to guest.
		s.applyRole(domain.RoleFan, 0, false)
	}
	if s.user == nil && hint.UserID != "" {
		s.user = &domain.User{ID: hint.UserID}
	}
	s.status = domain.SessionReady
	s.statusErr = fetchErr
	s.mu.Unlock()
	s.notify()
}

// SetRole is the versioned multi-writer role entry point: a write is accepted
// only when it presents a version >= the current one, and an equal-value write
// at a lower or equal version is a no-op. Returns whether the write was
// applied.
func (s *Store) SetRole(role domain.Role, version int) bool {
	if !domain.ValidRole(role) {
		s.logger.Warnw("rejecting invalid role write", "role", role)
		return false
	}

	s.mu.Lock()
	applied := s.applyRole(role, version, true)
	if applied {
		s.saveSnapshot()
	}
	s.mu.Unlock()

	if applied {
		s.notify()
	}
	return applied
}

// applyRole implements the last-writer-wins-by-version rule. Caller holds the
// lock.
func (s *Store) applyRole(role domain.Role, version int, verified bool) bool {
	if s.roleVerified {
		if role == s.role {
			if version > s.roleVersion {
				s.roleVersion = version
			}
			return false
		}
		if version < s.roleVersion || !verified {
			s.logger.Warnw("discarding stale role write",
				"current_role", s.role,
				"current_version", s.roleVersion,
				"attempted_role", role,
				"attempted_version", version,
			)
			return false
		}
		s.logger.Infow("role transition",
			"from", s.role,
			"to", role,
			"version", version,
		)
	}

	s.role = role
	if version > s.roleVersion {
		s.roleVersion = version
	}
	if verified {
		s.roleVerified = true
	}
	return true
}

// BumpRoleVersion optimistically sets role and increments the version for
// instant UI feedback, returning the new version. The bootstrapper follows up
// with a confirming session refresh.
func (s *Store) BumpRoleVersion(role domain.Role) int {
	s.mu.Lock()
	s.roleVersion++
	v := s.roleVersion
	if role != s.role {
		s.logger.Infow("role transition", "from", s.role, "to", role, "version", v)
	}
	s.role = role
	s.roleVerified = true
	s.saveSnapshot()
	s.mu.Unlock()
	s.notify()
	return v
}

// SetTokenBalance overwrites the balance from an authoritative backend event.
func (s *Store) SetTokenBalance(balance int) {
	s.mu.Lock()
	s.tokenBalance = balance
	s.saveSnapshot()
	s.mu.Unlock()
	s.notify()
}

// ResetAuth clears the auth slice back to idle. Used only on explicit logout;
// it also clears the persisted snapshot.
func (s *Store) ResetAuth() {
	s.mu.Lock()
	s.status = domain.SessionIdle
	s.statusErr = ""
	s.user = nil
	s.permissions = nil
	s.role = ""
	s.roleVersion = 0
	s.roleVerified = false
	s.tokenBalance = 0
	s.incomingCall = nil
	if s.snapshots != nil {
		ctx, cancel := contextWithPersistTimeout()
		if err := s.snapshots.Clear(ctx); err != nil {
			s.logger.Warnw("failed to clear state snapshot", "error", err)
		}
		cancel()
	}
	s.mu.Unlock()
	s.notify()
}
