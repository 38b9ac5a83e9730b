package store

import (
	"sort"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

// AddMessage appends a message to its channel in insertion order, evicting the
// oldest entry past the history bound. The unread counter increments unless
// the channel is currently active or the sender is the local user.
func (s *Store) AddMessage(msg domain.Message) {
	s.mu.Lock()
	ch := s.channel(msg.ChannelID)
	ch.messages = append(ch.messages, msg)
	if len(ch.messages) > domain.MaxChannelMessages {
		ch.messages = ch.messages[len(ch.messages)-domain.MaxChannelMessages:]
	}

	own := s.user != nil && msg.SenderID == s.user.ID
	if msg.ChannelID != s.activeChannel && !own {
		ch.unread++
	}
	s.mu.Unlock()
	s.notify()
}

// Messages returns a copy of the channel history, oldest first.
func (s *Store) Messages(id domain.ChannelID) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil
	}
	return append([]domain.Message(nil), ch.messages...)
}

// HasMessage reports whether a message id already exists in a channel, used to
// recognize optimistically-sent messages echoing back from the server.
func (s *Store) HasMessage(id domain.ChannelID, msgID domain.MessageID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return false
	}
	for i := len(ch.messages) - 1; i >= 0; i-- {
		if ch.messages[i].ID == msgID {
			return true
		}
	}
	return false
}

// UnreadCount returns the unread counter for a channel. The counter for the
// active channel is always zero.
func (s *Store) UnreadCount(id domain.ChannelID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return 0
	}
	return ch.unread
}

// SetActiveChannel marks a channel as the one being viewed, which resets its
// unread counter and suppresses further increments.
func (s *Store) SetActiveChannel(id domain.ChannelID) {
	s.mu.Lock()
	s.activeChannel = id
	if id != "" {
		s.channel(id).unread = 0
	}
	s.mu.Unlock()
	s.notify()
}

// ActiveChannel returns the currently viewed channel id, or empty.
func (s *Store) ActiveChannel() domain.ChannelID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeChannel
}

// SetTyping records that a user is typing in a channel. The indicator expires
// via the sweep loop unless refreshed.
func (s *Store) SetTyping(id domain.ChannelID, userID domain.UserID) {
	s.mu.Lock()
	s.channel(id).typing[userID] = s.now()
	s.mu.Unlock()
	s.notify()
}

// ClearTyping removes a user's typing indicator immediately.
func (s *Store) ClearTyping(id domain.ChannelID, userID domain.UserID) {
	s.mu.Lock()
	ch, ok := s.channels[id]
	if ok {
		delete(ch.typing, userID)
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
}

// TypingUsers returns the users currently typing in a channel, sorted for
// stable rendering.
func (s *Store) TypingUsers(id domain.ChannelID) []domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil
	}
	users := make([]domain.UserID, 0, len(ch.typing))
	for userID := range ch.typing {
		users = append(users, userID)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// UpdateCallStatus transitions a call-request message in place. Messages are
// otherwise immutable; only call requests carry a mutable status.
func (s *Store) UpdateCallStatus(id domain.ChannelID, msgID domain.MessageID, status domain.CallStatus) bool {
	s.mu.Lock()
	updated := false
	if ch, ok := s.channels[id]; ok {
		for i := range ch.messages {
			if ch.messages[i].ID == msgID && ch.messages[i].Type == domain.MessageTypeCallRequest {
				ch.messages[i].Status = status
				updated = true
				break
			}
		}
	}
	s.mu.Unlock()

	if updated {
		s.notify()
	} else {
		s.logger.Debugw("call status update for unknown message",
			"channel_id", id, "message_id", msgID, "status", status)
	}
	return updated
}

// SetIncomingCall occupies the incoming-call slot.
func (s *Store) SetIncomingCall(call domain.IncomingCall) {
	s.mu.Lock()
	c := call
	s.incomingCall = &c
	s.mu.Unlock()
	s.notify()
}

// ClearIncomingCall frees the incoming-call slot.
func (s *Store) ClearIncomingCall() {
	s.mu.Lock()
	s.incomingCall = nil
	s.mu.Unlock()
	s.notify()
}

// IncomingCall returns a copy of the ringing call, or nil.
func (s *Store) IncomingCall() *domain.IncomingCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incomingCall == nil {
		return nil
	}
	c := *s.incomingCall
	return &c
}
