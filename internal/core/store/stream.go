package store

import (
	"sort"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

// StartStreamSession begins a new live session, resetting stats. PeakViewers
// starts over with each session.
func (s *Store) StartStreamSession(sess domain.StreamSession) {
	s.mu.Lock()
	copySess := sess
	copySess.Stats = domain.StreamStats{}
	s.streamSession = &copySess
	s.mu.Unlock()
	s.notify()
}

// EndStreamSession closes the current session and returns its final stats.
func (s *Store) EndStreamSession() (domain.StreamStats, bool) {
	s.mu.Lock()
	var stats domain.StreamStats
	ended := s.streamSession != nil
	if ended {
		stats = s.streamSession.Stats
		s.streamSession = nil
	}
	s.mu.Unlock()
	if ended {
		s.notify()
	}
	return stats, ended
}

// CurrentStream returns a copy of the joined session, or nil.
func (s *Store) CurrentStream() *domain.StreamSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamSession == nil {
		return nil
	}
	sess := *s.streamSession
	return &sess
}

// SetViewerCount updates the viewer count for the currently-joined stream.
// Updates for any other stream id are ignored. PeakViewers only ever ratchets
// up within one session.
func (s *Store) SetViewerCount(id domain.StreamID, count int) {
	s.mu.Lock()
	changed := false
	if s.streamSession != nil && s.streamSession.ID == id {
		s.streamSession.ViewerCount = count
		if count > s.streamSession.Stats.PeakViewers {
			s.streamSession.Stats.PeakViewers = count
		}
		changed = true
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// RecordStreamTip increments the tip counter for the current session.
func (s *Store) RecordStreamTip(id domain.StreamID, amount int) {
	s.mu.Lock()
	changed := false
	if s.streamSession != nil && s.streamSession.ID == id {
		s.streamSession.Stats.Tips += amount
		changed = true
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// RecordStreamMessage increments the message counter for the current session.
func (s *Store) RecordStreamMessage(id domain.StreamID) {
	s.mu.Lock()
	changed := false
	if s.streamSession != nil && s.streamSession.ID == id {
		s.streamSession.Stats.Messages++
		changed = true
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// AddActiveStream adds or replaces an entry in the browseable live list.
// Entries are replaced whole, never mutated in place.
func (s *Store) AddActiveStream(stream domain.ActiveStream) {
	s.mu.Lock()
	s.activeStreams[stream.ID] = stream
	s.mu.Unlock()
	s.notify()
}

// RemoveActiveStream drops an entry from the live list.
func (s *Store) RemoveActiveStream(id domain.StreamID) {
	s.mu.Lock()
	_, ok := s.activeStreams[id]
	delete(s.activeStreams, id)
	s.mu.Unlock()
	if ok {
		s.notify()
	}
}

// ActiveStreams returns the live list, newest first.
func (s *Store) ActiveStreams() []domain.ActiveStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	streams := make([]domain.ActiveStream, 0, len(s.activeStreams))
	for _, st := range s.activeStreams {
		streams = append(streams, st)
	}
	sort.Slice(streams, func(i, j int) bool {
		return streams[i].StartedAt.After(streams[j].StartedAt)
	})
	return streams
}
