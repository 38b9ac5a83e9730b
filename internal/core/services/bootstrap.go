package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/ports"
	"github.com/digisapp/digis-app-sub003/internal/core/store"
	"github.com/digisapp/digis-app-sub003/pkg/tracing"

	"go.uber.org/zap"
)

const defaultRetryDelay = 2500 * time.Millisecond

// Bootstrapper produces exactly one authoritative session per app load or
// login/logout transition. Overlapping calls are serialized by a strictly
// increasing sequence number rather than by blocking: any in-flight result
// whose sequence is no longer current is discarded without mutating state, so
// an older bootstrap can never clobber a newer one.
type Bootstrapper struct {
	api     ports.SessionAPI
	hints   ports.HintRepository
	store   *store.Store
	metrics ports.Metrics
	logger  *zap.SugaredLogger

	seq        atomic.Uint64
	retryDelay time.Duration
}

func NewBootstrapper(
	api ports.SessionAPI,
	hints ports.HintRepository,
	st *store.Store,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
) *Bootstrapper {
	return &Bootstrapper{
		api:        api,
		hints:      hints,
		store:      st,
		metrics:    metrics,
		logger:     logger,
		retryDelay: defaultRetryDelay,
	}
}

func (b *Bootstrapper) recordBootstrap(outcome string, started time.Time) {
	if b.metrics != nil {
		b.metrics.RecordBootstrap(outcome, time.Since(started))
	}
}

// SetRetryDelay overrides the silent-retry delay after a failed fetch.
func (b *Bootstrapper) SetRetryDelay(d time.Duration) {
	b.retryDelay = d
}

// Bootstrap establishes a session. Without a token it resolves immediately
// from the persisted role hint, with no network call and no loading flash.
// With a token it syncs the user best-effort, fetches the session, persists a
// fresh hint and resolves to ready; on fetch failure it falls back to the
// hint, still resolves to ready and schedules one silent retry.
func (b *Bootstrapper) Bootstrap(ctx context.Context, token string) error {
	return b.bootstrap(ctx, token, true)
}

func (b *Bootstrapper) bootstrap(ctx context.Context, token string, allowRetry bool) error {
	mySeq := b.seq.Add(1)
	started := time.Now()

	ctx, span := tracing.TraceBootstrap(ctx, mySeq)
	defer span.End()

	if token == "" {
		hint := b.loadHint(ctx)
		b.store.FinishReadyFallback(hint, "")
		b.recordBootstrap("hint", started)
		b.logger.Debugw("bootstrap resolved from hint without token",
			"role", hint.Role, "seq", mySeq)
		return nil
	}

	b.store.BeginLoading()

	// Best-effort idempotent sync; failures are expected during backend
	// warm-up and never abort the bootstrap.
	if err := b.api.SyncUser(ctx, token); err != nil {
		b.logger.Debugw("sync-user call failed", "error", err, "seq", mySeq)
	}

	claims, err := b.api.FetchSession(ctx, token)

	if ctx.Err() != nil {
		// Cooperative abort: skip all state mutation.
		b.logger.Debugw("bootstrap aborted", "seq", mySeq)
		b.recordBootstrap("aborted", started)
		return ctx.Err()
	}
	if b.seq.Load() != mySeq {
		b.logger.Debugw("discarding stale bootstrap result", "seq", mySeq)
		b.recordBootstrap("overtaken", started)
		return domain.ErrBootstrapOvertaken
	}

	if err != nil {
		tracing.RecordError(ctx, err)
		hint := b.loadHint(ctx)
		b.store.FinishReadyFallback(hint, err.Error())
		b.recordBootstrap("fallback", started)
		b.logger.Warnw("session fetch failed, resolved with last known role",
			"error", err, "role", hint.Role, "seq", mySeq)

		if allowRetry {
			b.scheduleRetry(token, mySeq)
		}
		return nil
	}

	b.saveHint(ctx, domain.RoleHint{Role: claims.Role, UserID: claims.User.ID})
	b.store.FinishReady(claims)
	b.recordBootstrap("confirmed", started)
	tracing.AddSpanAttributes(ctx,
		tracing.UserIDKey.String(string(claims.User.ID)),
		tracing.RoleKey.String(string(claims.Role)),
	)
	b.logger.Infow("session ready",
		"user_id", claims.User.ID, "role", claims.Role, "seq", mySeq)
	return nil
}

// scheduleRetry arms exactly one silent retry. The timer cannot be cancelled,
// but the sequence check at fire time makes it a no-op once any newer
// bootstrap has run.
func (b *Bootstrapper) scheduleRetry(token string, fromSeq uint64) {
	time.AfterFunc(b.retryDelay, func() {
		if b.seq.Load() != fromSeq {
			return
		}
		b.logger.Debugw("running silent bootstrap retry", "after_seq", fromSeq)
		if err := b.bootstrap(context.Background(), token, false); err != nil {
			b.logger.Debugw("silent bootstrap retry discarded", "error", err)
		}
	})
}

// ClearSession resets to idle, clears the durable hint and zeroes the auth
// slice. Used only on explicit logout. It also invalidates any in-flight
// bootstrap via the sequence counter.
func (b *Bootstrapper) ClearSession(ctx context.Context) {
	b.seq.Add(1)
	if err := b.hints.Clear(ctx); err != nil {
		b.logger.Warnw("failed to clear role hint", "error", err)
	}
	b.store.ResetAuth()
	b.logger.Infow("session cleared")
}

// UpgradeRole optimistically applies the new role for instant UI feedback and
// triggers a background session refresh for backend confirmation. A failed
// confirmation leaves the optimistic value in place.
func (b *Bootstrapper) UpgradeRole(ctx context.Context, token string, newRole domain.Role) (int, error) {
	if !domain.ValidRole(newRole) {
		return 0, domain.ErrMalformedSession
	}

	version := b.store.BumpRoleVersion(newRole)
	b.logger.Infow("optimistic role upgrade applied",
		"role", newRole, "version", version)

	go b.RefreshSession(context.Background(), token)
	return version, nil
}

// RefreshSession re-fetches the session without touching the loading gate.
// The versioned role-write rule in the store arbitrates against concurrent
// writers; a fetch failure is logged and otherwise ignored.
func (b *Bootstrapper) RefreshSession(ctx context.Context, token string) {
	mySeq := b.seq.Load()

	claims, err := b.api.FetchSession(ctx, token)
	if err != nil {
		b.logger.Warnw("session refresh failed, keeping optimistic role", "error", err)
		return
	}
	if b.seq.Load() != mySeq {
		b.logger.Debugw("discarding stale session refresh")
		return
	}

	b.saveHint(ctx, domain.RoleHint{Role: claims.Role, UserID: claims.User.ID})
	b.store.SetRole(claims.Role, claims.RoleVersion)
}

func (b *Bootstrapper) loadHint(ctx context.Context) domain.RoleHint {
	hint, err := b.hints.Load(ctx)
	if err != nil {
		if err != domain.ErrHintNotFound {
			b.logger.Warnw("failed to load role hint", "error", err)
		}
		return domain.RoleHint{}
	}
	return hint
}

func (b *Bootstrapper) saveHint(ctx context.Context, hint domain.RoleHint) {
	if err := b.hints.Save(ctx, hint); err != nil {
		b.logger.Warnw("failed to persist role hint", "error", err)
	}
}
