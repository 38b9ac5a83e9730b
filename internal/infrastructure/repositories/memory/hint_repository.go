package memory

import (
	"context"
	"sync"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/ports"
)

type MemoryHintRepository struct {
	mu   sync.RWMutex
	hint *domain.RoleHint
}

func NewMemoryHintRepository() ports.HintRepository {
	return &MemoryHintRepository{}
}

func (r *MemoryHintRepository) Save(ctx context.Context, hint domain.RoleHint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := hint
	r.hint = &h
	return nil
}

func (r *MemoryHintRepository) Load(ctx context.Context) (domain.RoleHint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.hint == nil {
		return domain.RoleHint{}, domain.ErrHintNotFound
	}
	return *r.hint, nil
}

func (r *MemoryHintRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hint = nil
	return nil
}
