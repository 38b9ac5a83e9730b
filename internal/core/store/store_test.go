package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(nil, zaptest.NewLogger(t).Sugar())
	t.Cleanup(s.Close)
	return s
}

// memorySnapshots is a test double for the snapshot repository.
type memorySnapshots struct {
	mu   sync.Mutex
	snap *domain.StateSnapshot
}

func (m *memorySnapshots) Save(_ context.Context, snap domain.StateSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &snap
	return nil
}

func (m *memorySnapshots) Load(_ context.Context) (domain.StateSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return domain.StateSnapshot{}, domain.ErrSnapshotNotFound
	}
	return *m.snap, nil
}

func (m *memorySnapshots) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}

func TestSubscribeNotifiesOnMutation(t *testing.T) {
	s := newTestStore(t)

	var mu sync.Mutex
	fired := 0
	unsubscribe := s.Subscribe(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	s.SetActiveView("explore")
	mu.Lock()
	assert.Equal(t, 1, fired)
	mu.Unlock()

	unsubscribe()
	s.SetActiveView("wallet")
	mu.Lock()
	assert.Equal(t, 1, fired, "unsubscribed listener must not fire")
	mu.Unlock()
}

func TestListenerCanReadStore(t *testing.T) {
	s := newTestStore(t)

	var seen string
	s.Subscribe(func() {
		seen = s.ActiveView()
	})

	s.SetActiveView("dashboard")
	assert.Equal(t, "dashboard", seen)
}

func TestTypingExpiresAfterTTL(t *testing.T) {
	s := newTestStore(t)

	current := time.Now()
	var mu sync.Mutex
	s.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	})

	s.SetTyping("chan-1", "alice")
	s.SetTyping("chan-1", "bob")
	assert.Len(t, s.TypingUsers("chan-1"), 2)

	mu.Lock()
	current = current.Add(2 * time.Second)
	mu.Unlock()
	s.SweepTyping()
	assert.Len(t, s.TypingUsers("chan-1"), 2, "indicators inside TTL must survive")

	// Refreshing one indicator restarts only its clock.
	s.SetTyping("chan-1", "alice")

	mu.Lock()
	current = current.Add(2 * time.Second)
	mu.Unlock()
	s.SweepTyping()

	users := s.TypingUsers("chan-1")
	require.Len(t, users, 1)
	assert.Equal(t, domain.UserID("alice"), users[0])
}

func TestSnapshotRoundTrip(t *testing.T) {
	repo := &memorySnapshots{}
	logger := zaptest.NewLogger(t).Sugar()

	s := New(repo, logger)
	s.FinishReady(&domain.SessionClaims{
		Role:        domain.RoleCreator,
		RoleVersion: 3,
		User:        domain.User{ID: "u-1", Username: "miriam"},
	})
	s.SetTokenBalance(150)
	s.Close()

	// A fresh store paints identity and role from the snapshot but leaves the
	// gate idle and the role unverified.
	restored := New(repo, logger)
	defer restored.Close()

	sess := restored.Session()
	assert.Equal(t, domain.SessionIdle, sess.Status)
	assert.Equal(t, domain.RoleCreator, sess.Role)
	assert.Equal(t, 3, sess.RoleVersion)
	require.NotNil(t, sess.User)
	assert.Equal(t, domain.UserID("u-1"), sess.User.ID)
	assert.Equal(t, 150, restored.TokenBalance())

	// Unverified painted role yields to the next confirmed write even at a
	// lower version value.
	assert.True(t, restored.SetRole(domain.RoleFan, 1))
	role, _ := restored.Role()
	assert.Equal(t, domain.RoleFan, role)
}

func TestResetAuthClearsSnapshot(t *testing.T) {
	repo := &memorySnapshots{}
	s := New(repo, zaptest.NewLogger(t).Sugar())
	defer s.Close()

	s.FinishReady(&domain.SessionClaims{
		Role: domain.RoleCreator,
		User: domain.User{ID: "u-1"},
	})
	require.NotNil(t, repo.snap)

	s.ResetAuth()
	assert.Nil(t, repo.snap)
	assert.Nil(t, s.CurrentUser())
	assert.Equal(t, domain.SessionIdle, s.Session().Status)
}
