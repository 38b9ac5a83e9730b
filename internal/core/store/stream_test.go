package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

func TestPeakViewersRatchetsUp(t *testing.T) {
	s := newTestStore(t)

	s.StartStreamSession(domain.StreamSession{ID: "s-1", ChannelName: "miriam-live"})

	s.SetViewerCount("s-1", 10)
	s.SetViewerCount("s-1", 25)
	s.SetViewerCount("s-1", 7)

	sess := s.CurrentStream()
	require.NotNil(t, sess)
	assert.Equal(t, 7, sess.ViewerCount)
	assert.Equal(t, 25, sess.Stats.PeakViewers)

	// Counts for a stream that is not the joined one are ignored.
	s.SetViewerCount("s-2", 1000)
	sess = s.CurrentStream()
	assert.Equal(t, 25, sess.Stats.PeakViewers)
	assert.Equal(t, 7, sess.ViewerCount)
}

func TestPeakResetsWithNewSession(t *testing.T) {
	s := newTestStore(t)

	s.StartStreamSession(domain.StreamSession{ID: "s-1"})
	s.SetViewerCount("s-1", 50)

	stats, ok := s.EndStreamSession()
	require.True(t, ok)
	assert.Equal(t, 50, stats.PeakViewers)

	s.StartStreamSession(domain.StreamSession{ID: "s-2"})
	s.SetViewerCount("s-2", 3)
	sess := s.CurrentStream()
	require.NotNil(t, sess)
	assert.Equal(t, 3, sess.Stats.PeakViewers)
}

func TestStreamSessionStats(t *testing.T) {
	s := newTestStore(t)

	s.StartStreamSession(domain.StreamSession{ID: "s-1"})
	s.RecordStreamTip("s-1", 20)
	s.RecordStreamTip("s-1", 5)
	s.RecordStreamMessage("s-1")
	s.RecordStreamMessage("s-1")
	s.RecordStreamMessage("s-1")

	// Counters for other streams do not leak in.
	s.RecordStreamTip("s-9", 100)
	s.RecordStreamMessage("s-9")

	stats, ok := s.EndStreamSession()
	require.True(t, ok)
	assert.Equal(t, 25, stats.Tips)
	assert.Equal(t, 3, stats.Messages)

	_, ok = s.EndStreamSession()
	assert.False(t, ok, "ending twice must report no session")
}

func TestActiveStreamsList(t *testing.T) {
	s := newTestStore(t)

	base := time.Now()
	s.AddActiveStream(domain.ActiveStream{ID: "s-1", Creator: "alice", StartedAt: base})
	s.AddActiveStream(domain.ActiveStream{ID: "s-2", Creator: "bob", StartedAt: base.Add(time.Minute)})

	streams := s.ActiveStreams()
	require.Len(t, streams, 2)
	assert.Equal(t, domain.StreamID("s-2"), streams[0].ID, "newest first")

	// Re-adding replaces the entry whole.
	s.AddActiveStream(domain.ActiveStream{ID: "s-1", Creator: "alice", StartedAt: base, ViewerCount: 12})
	streams = s.ActiveStreams()
	require.Len(t, streams, 2)
	assert.Equal(t, 12, streams[1].ViewerCount)

	s.RemoveActiveStream("s-2")
	streams = s.ActiveStreams()
	require.Len(t, streams, 1)
	assert.Equal(t, domain.StreamID("s-1"), streams[0].ID)
}

func TestPresence(t *testing.T) {
	s := newTestStore(t)

	s.SetOnline("alice")
	s.SetOnline("bob")
	assert.True(t, s.IsOnline("alice"))
	assert.Equal(t, []domain.UserID{"alice", "bob"}, s.OnlineUsers())

	s.SetOffline("alice")
	assert.False(t, s.IsOnline("alice"))

	// A bulk snapshot replaces the whole set.
	s.ReplaceOnline([]domain.UserID{"carol", "dave"})
	assert.False(t, s.IsOnline("bob"))
	assert.Equal(t, []domain.UserID{"carol", "dave"}, s.OnlineUsers())
}
