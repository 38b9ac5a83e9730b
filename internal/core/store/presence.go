package store

import (
	"sort"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

// SetOnline marks a user as present.
func (s *Store) SetOnline(id domain.UserID) {
	s.mu.Lock()
	s.online[id] = struct{}{}
	s.mu.Unlock()
	s.notify()
}

// SetOffline removes a user from the presence set.
func (s *Store) SetOffline(id domain.UserID) {
	s.mu.Lock()
	delete(s.online, id)
	s.mu.Unlock()
	s.notify()
}

// ReplaceOnline bulk-replaces the presence set, used when the server pushes a
// full roster after connect.
func (s *Store) ReplaceOnline(ids []domain.UserID) {
	s.mu.Lock()
	s.online = make(map[domain.UserID]struct{}, len(ids))
	for _, id := range ids {
		s.online[id] = struct{}{}
	}
	s.mu.Unlock()
	s.notify()
}

// IsOnline reports whether a user is currently present.
func (s *Store) IsOnline(id domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.online[id]
	return ok
}

// OnlineUsers returns the presence set, sorted for stable rendering.
func (s *Store) OnlineUsers() []domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]domain.UserID, 0, len(s.online))
	for id := range s.online {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
