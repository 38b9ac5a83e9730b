package ports

import (
	"context"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

// HintRepository persists the last confirmed (role, userId) pair. Save is
// called only after a successful session fetch; Clear only on explicit logout.
type HintRepository interface {
	Save(ctx context.Context, hint domain.RoleHint) error
	Load(ctx context.Context) (domain.RoleHint, error)
	Clear(ctx context.Context) error
}

// SnapshotRepository persists the narrow fast-paint projection of store state.
type SnapshotRepository interface {
	Save(ctx context.Context, snap domain.StateSnapshot) error
	Load(ctx context.Context) (domain.StateSnapshot, error)
	Clear(ctx context.Context) error
}
