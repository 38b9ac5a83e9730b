// Package store implements the single shared observable state container for
// all live application state: identity and role, chat, presence,
// notifications, navigation and stream state. All mutation goes through the
// exported action methods; consumers read copies via selector methods and
// subscribe for change signals.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/ports"
	"github.com/digisapp/digis-app-sub003/pkg/utils"

	"go.uber.org/zap"
)

const (
	defaultTypingTTL     = 3 * time.Second
	defaultSweepInterval = time.Second
)

type channelState struct {
	messages []domain.Message
	typing   map[domain.UserID]time.Time
	unread   int
}

// Store is the single mutable shared resource. Every mutation is synchronous
// and side-effect-free beyond the store itself; network orchestration lives in
// the reconciler.
type Store struct {
	mu     sync.Mutex
	logger *zap.SugaredLogger

	snapshots ports.SnapshotRepository
	now       func() time.Time

	listeners  map[int]func()
	nextListID int

	// auth
	status       domain.SessionStatus
	statusErr    string
	user         *domain.User
	permissions  []string
	role         domain.Role
	roleVersion  int
	roleVerified bool
	tokenBalance int

	// chat
	channels      map[domain.ChannelID]*channelState
	activeChannel domain.ChannelID
	incomingCall  *domain.IncomingCall

	// presence
	online map[domain.UserID]struct{}

	// notifications
	notifications []domain.Notification
	unreadCount   int

	// navigation
	activeView string

	// stream
	streamSession *domain.StreamSession
	activeStreams map[domain.StreamID]domain.ActiveStream

	typingTTL     time.Duration
	sweepInterval time.Duration
	sweepStop     chan struct{}
	closed        bool
}

// New creates a store, paints the persisted snapshot if one exists and starts
// the typing-expiry sweep. snapshots may be nil to disable persistence.
func New(snapshots ports.SnapshotRepository, logger *zap.SugaredLogger) *Store {
	s := &Store{
		logger:        logger,
		snapshots:     snapshots,
		now:           utils.Now,
		listeners:     make(map[int]func()),
		status:        domain.SessionIdle,
		channels:      make(map[domain.ChannelID]*channelState),
		online:        make(map[domain.UserID]struct{}),
		activeStreams: make(map[domain.StreamID]domain.ActiveStream),
		typingTTL:     defaultTypingTTL,
		sweepInterval: defaultSweepInterval,
		sweepStop:     make(chan struct{}),
	}

	s.loadSnapshot()

	go s.sweepLoop()
	return s
}

// SetTypingTTL overrides how long a typing indicator survives without refresh.
func (s *Store) SetTypingTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typingTTL = ttl
}

// SetClock overrides the time source, for virtual-clock tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Close stops the sweep loop. The store stays readable after Close.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.sweepStop)
}

// Subscribe registers a change listener invoked after every mutation. The
// returned function unsubscribes. Listeners must not mutate the store
// re-entrantly.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextListID
	s.nextListID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// notify fires listeners outside the lock so they can read the store.
func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// SetSweepInterval overrides how often the typing-expiry sweep runs. Takes
// effect from the next sweep cycle.
func (s *Store) SetSweepInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepInterval = interval
}

func (s *Store) sweepLoop() {
	for {
		s.mu.Lock()
		interval := s.sweepInterval
		s.mu.Unlock()

		select {
		case <-time.After(interval):
			s.SweepTyping()
		case <-s.sweepStop:
			return
		}
	}
}

// SweepTyping drops typing indicators older than the TTL. Called periodically
// by the sweep loop; exported so a virtual clock can drive it in tests.
func (s *Store) SweepTyping() {
	s.mu.Lock()
	now := s.now()
	changed := false
	for _, ch := range s.channels {
		for userID, at := range ch.typing {
			if now.Sub(at) > s.typingTTL {
				delete(ch.typing, userID)
				changed = true
			}
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *Store) channel(id domain.ChannelID) *channelState {
	ch, ok := s.channels[id]
	if !ok {
		ch = &channelState{typing: make(map[domain.UserID]time.Time)}
		s.channels[id] = ch
	}
	return ch
}

func contextWithPersistTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}

// saveSnapshot persists the narrow identity projection. Failures are logged
// and never surfaced; persistence is an optimization, not a requirement.
func (s *Store) saveSnapshot() {
	if s.snapshots == nil {
		return
	}
	snap := domain.StateSnapshot{
		Role:         s.role,
		RoleVersion:  s.roleVersion,
		TokenBalance: s.tokenBalance,
		SavedAt:      s.now(),
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}

	ctx, cancel := contextWithPersistTimeout()
	defer cancel()
	if err := s.snapshots.Save(ctx, snap); err != nil {
		s.logger.Warnw("failed to persist state snapshot", "error", err)
	}
}

// loadSnapshot paints identity, role and balance from the persisted
// projection. The painted role is deliberately unverified so the next
// confirmed write wins regardless of version.
func (s *Store) loadSnapshot() {
	if s.snapshots == nil {
		return
	}

	ctx, cancel := contextWithPersistTimeout()
	defer cancel()

	snap, err := s.snapshots.Load(ctx)
	if err != nil {
		if err != domain.ErrSnapshotNotFound {
			s.logger.Warnw("failed to load state snapshot", "error", err)
		}
		return
	}

	s.mu.Lock()
	s.user = snap.User
	s.role = snap.Role
	s.roleVersion = snap.RoleVersion
	s.roleVerified = false
	s.tokenBalance = snap.TokenBalance
	s.mu.Unlock()
}
