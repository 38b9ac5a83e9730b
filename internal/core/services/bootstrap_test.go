package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/store"
)

type fakeSessionAPI struct {
	mu         sync.Mutex
	fetchFn    func(ctx context.Context, token string) (*domain.SessionClaims, error)
	fetchCalls int
	syncCalls  int
	syncErr    error
}

func (f *fakeSessionAPI) FetchSession(ctx context.Context, token string) (*domain.SessionClaims, error) {
	f.mu.Lock()
	f.fetchCalls++
	fn := f.fetchFn
	f.mu.Unlock()
	return fn(ctx, token)
}

func (f *fakeSessionAPI) SyncUser(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls++
	return f.syncErr
}

func (f *fakeSessionAPI) calls() (fetch, sync int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.syncCalls
}

type memoryHints struct {
	mu   sync.Mutex
	hint *domain.RoleHint
}

func (m *memoryHints) Save(_ context.Context, hint domain.RoleHint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hint = &hint
	return nil
}

func (m *memoryHints) Load(_ context.Context) (domain.RoleHint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hint == nil {
		return domain.RoleHint{}, domain.ErrHintNotFound
	}
	return *m.hint, nil
}

func (m *memoryHints) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hint = nil
	return nil
}

func claimsFor(role domain.Role, version int) *domain.SessionClaims {
	return &domain.SessionClaims{
		Role:        role,
		RoleVersion: version,
		User:        domain.User{ID: "u-1", Username: "miriam"},
	}
}

func newBootstrapper(t *testing.T, api *fakeSessionAPI, hints *memoryHints) (*Bootstrapper, *store.Store) {
	t.Helper()
	st := store.New(nil, zaptest.NewLogger(t).Sugar())
	t.Cleanup(st.Close)
	return NewBootstrapper(api, hints, st, nil, zaptest.NewLogger(t).Sugar()), st
}

func TestBootstrapWithoutTokenResolvesFromHint(t *testing.T) {
	api := &fakeSessionAPI{fetchFn: func(context.Context, string) (*domain.SessionClaims, error) {
		t.Fatal("no network call expected without a token")
		return nil, nil
	}}
	hints := &memoryHints{hint: &domain.RoleHint{Role: domain.RoleCreator, UserID: "u-1"}}
	b, st := newBootstrapper(t, api, hints)

	require.NoError(t, b.Bootstrap(context.Background(), ""))

	sess := st.Session()
	assert.Equal(t, domain.SessionReady, sess.Status)
	assert.Equal(t, domain.RoleCreator, sess.Role)
	fetch, sync := api.calls()
	assert.Zero(t, fetch)
	assert.Zero(t, sync)
}

func TestBootstrapWithoutTokenNoHintResolvesGuest(t *testing.T) {
	api := &fakeSessionAPI{fetchFn: func(context.Context, string) (*domain.SessionClaims, error) {
		return nil, nil
	}}
	b, st := newBootstrapper(t, api, &memoryHints{})

	require.NoError(t, b.Bootstrap(context.Background(), ""))

	sess := st.Session()
	assert.Equal(t, domain.SessionReady, sess.Status)
	assert.Equal(t, domain.RoleFan, sess.Role)
}

func TestBootstrapSuccessPersistsHint(t *testing.T) {
	api := &fakeSessionAPI{fetchFn: func(context.Context, string) (*domain.SessionClaims, error) {
		return claimsFor(domain.RoleCreator, 1), nil
	}}
	hints := &memoryHints{}
	b, st := newBootstrapper(t, api, hints)

	require.NoError(t, b.Bootstrap(context.Background(), "tok"))

	sess := st.Session()
	assert.Equal(t, domain.SessionReady, sess.Status)
	assert.Equal(t, domain.RoleCreator, sess.Role)
	require.NotNil(t, hints.hint)
	assert.Equal(t, domain.RoleCreator, hints.hint.Role)

	_, sync := api.calls()
	assert.Equal(t, 1, sync)
}

func TestBootstrapSyncFailureDoesNotAbort(t *testing.T) {
	api := &fakeSessionAPI{
		syncErr: errors.New("backend warming up"),
		fetchFn: func(context.Context, string) (*domain.SessionClaims, error) {
			return claimsFor(domain.RoleFan, 1), nil
		},
	}
	b, st := newBootstrapper(t, api, &memoryHints{})

	require.NoError(t, b.Bootstrap(context.Background(), "tok"))
	assert.Equal(t, domain.SessionReady, st.Session().Status)
}

func TestBootstrapFailureFallsBackAndRetriesSilently(t *testing.T) {
	var mu sync.Mutex
	failing := true
	api := &fakeSessionAPI{fetchFn: func(context.Context, string) (*domain.SessionClaims, error) {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return nil, errors.New("gateway timeout")
		}
		return claimsFor(domain.RoleCreator, 2), nil
	}}
	hints := &memoryHints{hint: &domain.RoleHint{Role: domain.RoleCreator, UserID: "u-1"}}
	b, st := newBootstrapper(t, api, hints)
	b.SetRetryDelay(20 * time.Millisecond)

	require.NoError(t, b.Bootstrap(context.Background(), "tok"))

	// The app is usable immediately on the last known role.
	sess := st.Session()
	assert.Equal(t, domain.SessionReady, sess.Status)
	assert.Equal(t, domain.RoleCreator, sess.Role)
	assert.Equal(t, "gateway timeout", sess.Err)

	mu.Lock()
	failing = false
	mu.Unlock()

	require.Eventually(t, func() bool {
		s := st.Session()
		return s.Err == "" && s.RoleVersion == 2
	}, time.Second, 5*time.Millisecond, "silent retry should confirm the session")

	// The retry does not reschedule itself.
	fetch, _ := api.calls()
	assert.Equal(t, 2, fetch)
}

func TestStaleBootstrapNeverClobbersNewer(t *testing.T) {
	release := make(chan struct{})
	api := &fakeSessionAPI{}
	api.fetchFn = func(_ context.Context, token string) (*domain.SessionClaims, error) {
		if token == "slow" {
			<-release
			return claimsFor(domain.RoleFan, 1), nil
		}
		return claimsFor(domain.RoleCreator, 2), nil
	}
	b, st := newBootstrapper(t, api, &memoryHints{})

	var wg sync.WaitGroup
	wg.Add(1)
	var slowErr error
	go func() {
		defer wg.Done()
		slowErr = b.Bootstrap(context.Background(), "slow")
	}()

	// Let the slow bootstrap reach its fetch before starting the newer one.
	require.Eventually(t, func() bool {
		fetch, _ := api.calls()
		return fetch == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, b.Bootstrap(context.Background(), "fast"))
	close(release)
	wg.Wait()

	assert.ErrorIs(t, slowErr, domain.ErrBootstrapOvertaken)
	sess := st.Session()
	assert.Equal(t, domain.RoleCreator, sess.Role)
	assert.Equal(t, 2, sess.RoleVersion)
}

func TestCancelledBootstrapSkipsMutation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	api := &fakeSessionAPI{fetchFn: func(ctx context.Context, _ string) (*domain.SessionClaims, error) {
		cancel()
		return nil, ctx.Err()
	}}
	b, st := newBootstrapper(t, api, &memoryHints{})

	err := b.Bootstrap(ctx, "tok")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.SessionLoading, st.Session().Status, "aborted bootstrap must not resolve the gate")
}

func TestClearSession(t *testing.T) {
	api := &fakeSessionAPI{fetchFn: func(context.Context, string) (*domain.SessionClaims, error) {
		return claimsFor(domain.RoleCreator, 1), nil
	}}
	hints := &memoryHints{}
	b, st := newBootstrapper(t, api, hints)

	require.NoError(t, b.Bootstrap(context.Background(), "tok"))
	require.NotNil(t, hints.hint)

	b.ClearSession(context.Background())

	assert.Nil(t, hints.hint)
	sess := st.Session()
	assert.Equal(t, domain.SessionIdle, sess.Status)
	assert.Empty(t, sess.Role)
	assert.Nil(t, sess.User)
}

func TestUpgradeRoleOptimisticThenConfirmed(t *testing.T) {
	confirmed := make(chan struct{})
	api := &fakeSessionAPI{fetchFn: func(context.Context, string) (*domain.SessionClaims, error) {
		defer close(confirmed)
		return claimsFor(domain.RoleCreator, 5), nil
	}}
	hints := &memoryHints{}
	b, st := newBootstrapper(t, api, hints)

	st.SetRole(domain.RoleFan, 1)

	version, err := b.UpgradeRole(context.Background(), "tok", domain.RoleCreator)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	// The upgrade is visible before confirmation lands.
	role, _ := st.Role()
	assert.Equal(t, domain.RoleCreator, role)

	select {
	case <-confirmed:
	case <-time.After(time.Second):
		t.Fatal("confirmation fetch never ran")
	}

	require.Eventually(t, func() bool {
		_, v := st.Role()
		return v == 5
	}, time.Second, time.Millisecond)
	require.NotNil(t, hints.hint)
	assert.Equal(t, domain.RoleCreator, hints.hint.Role)
}

func TestUpgradeRoleRejectsInvalid(t *testing.T) {
	api := &fakeSessionAPI{fetchFn: func(context.Context, string) (*domain.SessionClaims, error) {
		return nil, nil
	}}
	b, _ := newBootstrapper(t, api, &memoryHints{})

	_, err := b.UpgradeRole(context.Background(), "tok", "wizard")
	assert.ErrorIs(t, err, domain.ErrMalformedSession)
}
