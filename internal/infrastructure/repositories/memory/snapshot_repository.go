package memory

import (
	"context"
	"sync"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/ports"
)

type MemorySnapshotRepository struct {
	mu   sync.RWMutex
	snap *domain.StateSnapshot
}

func NewMemorySnapshotRepository() ports.SnapshotRepository {
	return &MemorySnapshotRepository{}
}

func (r *MemorySnapshotRepository) Save(ctx context.Context, snap domain.StateSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := snap
	r.snap = &s
	return nil
}

func (r *MemorySnapshotRepository) Load(ctx context.Context) (domain.StateSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snap == nil {
		return domain.StateSnapshot{}, domain.ErrSnapshotNotFound
	}
	return *r.snap, nil
}

func (r *MemorySnapshotRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = nil
	return nil
}
