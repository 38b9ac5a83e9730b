package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/ports"
	"github.com/digisapp/digis-app-sub003/internal/core/store"
	"github.com/digisapp/digis-app-sub003/pkg/retry"
	"github.com/digisapp/digis-app-sub003/pkg/tracing"
	"github.com/digisapp/digis-app-sub003/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ReconcilerConfig tunes connection backoff and outbound throttling.
type ReconcilerConfig struct {
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	MaxAttempts     int
	TypingPerSecond float64
	TypingBurst     int
}

// DefaultReconcilerConfig returns the production defaults.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		BackoffBase:     time.Second,
		BackoffMax:      30 * time.Second,
		MaxAttempts:     5,
		TypingPerSecond: 2,
		TypingBurst:     4,
	}
}

// Reconciler owns exactly one transport connection per authenticated user and
// is the sole translator between wire events and store mutations. It connects
// when the store gains an authenticated user and disconnects when the user
// goes away; views never touch the transport.
type Reconciler struct {
	transport ports.Transport
	store     *store.Store
	logger    *zap.SugaredLogger
	metrics   ports.Metrics
	cfg       ReconcilerConfig

	typingLimiter *rate.Limiter
	ringer        func(call domain.IncomingCall)

	mu           sync.Mutex
	token        string
	conn         ports.Conn
	connected    bool
	wasConnected bool
	running      bool
	lastUserID   domain.UserID
	cancelLoop   context.CancelFunc

	unsubscribe func()
	wg          sync.WaitGroup
}

func NewReconciler(
	transport ports.Transport,
	st *store.Store,
	cfg ReconcilerConfig,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
) *Reconciler {
	return &Reconciler{
		transport:     transport,
		store:         st,
		logger:        logger,
		metrics:       metrics,
		cfg:           cfg,
		typingLimiter: rate.NewLimiter(rate.Limit(cfg.TypingPerSecond), cfg.TypingBurst),
	}
}

// SetRinger installs the local audible-alert hook fired on incoming calls.
func (r *Reconciler) SetRinger(fn func(call domain.IncomingCall)) {
	r.mu.Lock()
	r.ringer = fn
	r.mu.Unlock()
}

// SetToken supplies the auth token attached at connect time. Called by the
// login flow before the store gains a user.
func (r *Reconciler) SetToken(token string) {
	r.mu.Lock()
	r.token = token
	r.mu.Unlock()
}

// Start begins watching the store: the connection lifecycle is
// subscription-driven, never invoked by views.
func (r *Reconciler) Start() {
	r.unsubscribe = r.store.Subscribe(r.onStoreChange)
	r.onStoreChange()
}

// Stop tears down the watcher and any live connection.
func (r *Reconciler) Stop() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	r.disconnect()
	r.wg.Wait()
}

func (r *Reconciler) onStoreChange() {
	user := r.store.CurrentUser()

	r.mu.Lock()
	var userID domain.UserID
	if user != nil {
		userID = user.ID
	}
	prev := r.lastUserID
	r.lastUserID = userID
	token := r.token
	r.mu.Unlock()

	switch {
	case userID != "" && prev != "" && userID != prev:
		// Account switch without an intervening logout. The running loop
		// still dials with the previous user's credentials, so cycle it.
		r.logger.Infow("realtime identity changed, cycling connection",
			"from", prev, "to", userID)
		r.disconnect()
		r.wg.Wait()
		r.connect(ports.Credentials{Token: token, UserID: userID})
	case userID != "" && userID != prev:
		r.connect(ports.Credentials{Token: token, UserID: userID})
	case userID == "" && prev != "":
		r.disconnect()
	}
}

// connect starts the connection loop unless one is already running.
func (r *Reconciler) connect(creds ports.Credentials) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	ctx, cancel := context.WithCancel(context.Background())
	r.cancelLoop = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runLoop(ctx, creds)

		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()
}

func (r *Reconciler) disconnect() {
	r.mu.Lock()
	cancel := r.cancelLoop
	conn := r.conn
	r.cancelLoop = nil
	r.conn = nil
	r.connected = false
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
}

// runLoop dials, reads until the connection drops, then reconnects with
// exponential backoff up to the attempt cap. Exhausted retries surface a
// single passive notification, and only once connectivity had previously been
// established; failures on a cold start stay silent.
func (r *Reconciler) runLoop(ctx context.Context, creds ports.Credentials) {
	backoffCfg := retry.Config{
		InitialDelay: r.cfg.BackoffBase,
		MaxDelay:     r.cfg.BackoffMax,
		Multiplier:   2.0,
	}
	attempts := 0

	for {
		if ctx.Err() != nil {
			return
		}

		spanCtx, span := tracing.TraceSocketConnect(ctx, string(creds.UserID), attempts)
		conn, err := r.transport.Dial(spanCtx, creds)
		if err != nil {
			tracing.RecordError(spanCtx, err)
			span.End()
			r.recordConnectAttempt(false)

			attempts++
			if attempts >= r.cfg.MaxAttempts {
				r.handleRetriesExhausted(err)
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(retry.Delay(backoffCfg, attempts-1)):
			}
			continue
		}
		span.End()

		r.mu.Lock()
		r.conn = conn
		r.connected = true
		firstConnect := !r.wasConnected
		r.wasConnected = true
		r.mu.Unlock()

		r.recordConnectAttempt(true)
		attempts = 0
		if firstConnect {
			r.logger.Infow("realtime channel connected", "user_id", creds.UserID)
		} else {
			r.logger.Infow("realtime channel reconnected", "user_id", creds.UserID)
			r.recordReconnect()
		}

		r.readUntilClosed(conn)

		r.mu.Lock()
		r.connected = false
		r.conn = nil
		r.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		r.logger.Warnw("realtime channel dropped, reconnecting", "user_id", creds.UserID)
	}
}

// readUntilClosed pumps inbound frames. Handler failures (malformed JSON,
// unknown tags) are logged per message and never tear down the connection.
func (r *Reconciler) readUntilClosed(conn ports.Conn) {
	for {
		env, err := conn.ReadEvent()
		if err != nil {
			return
		}
		r.recordInbound(string(env.Event))
		if err := r.handleInbound(env); err != nil {
			r.logger.Warnw("dropping inbound event", "event", env.Event, "error", err)
		}
	}
}

// handleRetriesExhausted adds the "Connection Lost" notification exactly once
// per outage, suppressed entirely before the first successful connect.
func (r *Reconciler) handleRetriesExhausted(err error) {
	r.mu.Lock()
	wasConnected := r.wasConnected
	r.mu.Unlock()

	if !wasConnected {
		r.logger.Warnw("could not establish realtime channel", "error", err)
		return
	}

	r.logger.Errorw("realtime channel lost, retries exhausted", "error", err)
	r.store.AddNotification(domain.Notification{
		ID:        domain.NotificationID(utils.GenerateNotificationID()),
		Type:      domain.NotificationConnectionLost,
		Title:     "Connection Lost",
		Message:   "Real-time updates are unavailable. Trying again when you come back online.",
		Timestamp: utils.Now(),
	})
}

// Connected reports whether a live connection exists right now.
func (r *Reconciler) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// emit writes one outbound frame. Emits while disconnected are dropped with a
// warning; there is no replay queue.
func (r *Reconciler) emit(event domain.EventName, data interface{}) {
	r.mu.Lock()
	conn := r.conn
	connected := r.connected
	r.mu.Unlock()

	if !connected || conn == nil {
		r.logger.Warnw("dropping outbound event while disconnected", "event", event)
		r.recordDroppedEmit(string(event))
		return
	}

	env, err := domain.NewEnvelope(event, data)
	if err != nil {
		r.logger.Errorw("failed to encode outbound event", "event", event, "error", err)
		return
	}
	if err := conn.WriteEvent(env); err != nil {
		r.logger.Warnw("failed to write outbound event", "event", event, "error", err)
		return
	}
	r.recordOutbound(string(event))
}

func (r *Reconciler) recordConnectAttempt(success bool) {
	if r.metrics != nil {
		r.metrics.RecordConnectAttempt(success)
	}
}

func (r *Reconciler) recordReconnect() {
	if r.metrics != nil {
		r.metrics.RecordReconnect()
	}
}

func (r *Reconciler) recordInbound(event string) {
	if r.metrics != nil {
		r.metrics.RecordInboundEvent(event)
	}
}

func (r *Reconciler) recordOutbound(event string) {
	if r.metrics != nil {
		r.metrics.RecordOutboundEvent(event)
	}
}

func (r *Reconciler) recordDroppedEmit(event string) {
	if r.metrics != nil {
		r.metrics.RecordDroppedEmit(event)
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(data, v)
}
