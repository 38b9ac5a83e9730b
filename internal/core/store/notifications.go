package store

import (
	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

// AddNotification prepends a notification, evicting the oldest entry past the
// bound. The unread counter stays equal to the count of unread entries
// through every mutation path.
func (s *Store) AddNotification(n domain.Notification) {
	s.mu.Lock()
	s.notifications = append([]domain.Notification{n}, s.notifications...)
	if !n.Read {
		s.unreadCount++
	}
	if len(s.notifications) > domain.MaxNotifications {
		evicted := s.notifications[domain.MaxNotifications:]
		for _, e := range evicted {
			if !e.Read {
				s.unreadCount--
			}
		}
		s.notifications = s.notifications[:domain.MaxNotifications]
	}
	s.mu.Unlock()
	s.notify()
}

// RemoveNotification deletes a notification by id.
func (s *Store) RemoveNotification(id domain.NotificationID) {
	s.mu.Lock()
	removed := false
	for i, n := range s.notifications {
		if n.ID == id {
			if !n.Read {
				s.unreadCount--
			}
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.notify()
	}
}

// MarkNotificationRead marks one notification as read.
func (s *Store) MarkNotificationRead(id domain.NotificationID) {
	s.mu.Lock()
	changed := false
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			if !s.notifications[i].Read {
				s.notifications[i].Read = true
				s.unreadCount--
				changed = true
			}
			break
		}
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// MarkAllNotificationsRead marks every notification as read.
func (s *Store) MarkAllNotificationsRead() {
	s.mu.Lock()
	for i := range s.notifications {
		s.notifications[i].Read = true
	}
	s.unreadCount = 0
	s.mu.Unlock()
	s.notify()
}

// ClearNotifications drops all notifications.
func (s *Store) ClearNotifications() {
	s.mu.Lock()
	s.notifications = nil
	s.unreadCount = 0
	s.mu.Unlock()
	s.notify()
}

// Notifications returns a copy of the list, newest first.
func (s *Store) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.notifications...)
}

// UnreadNotifications returns the unread counter.
func (s *Store) UnreadNotifications() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCount
}
