package ports

import (
	"context"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

// SessionAPI is the backend auth boundary. FetchSession returns the canonical
// normalized claims or an error; SyncUser is fire-and-forget and non-fatal.
type SessionAPI interface {
	FetchSession(ctx context.Context, token string) (*domain.SessionClaims, error)
	SyncUser(ctx context.Context, token string) error
}

// Credentials authenticate one transport connection.
type Credentials struct {
	Token  string
	UserID domain.UserID
}

// Conn is one live connection on the real-time channel.
type Conn interface {
	// ReadEvent blocks until the next inbound frame or a transport error.
	ReadEvent() (domain.Envelope, error)
	WriteEvent(env domain.Envelope) error
	Close() error
}

// Transport dials the real-time channel. Exactly one Conn is live per
// authenticated user; the reconciler owns the lifecycle.
type Transport interface {
	Dial(ctx context.Context, creds Credentials) (Conn, error)
}
