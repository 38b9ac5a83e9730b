package file

import (
	"context"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/ports"
)

type FileHintRepository struct {
	store *Store
}

func NewFileHintRepository(store *Store) ports.HintRepository {
	return &FileHintRepository{store: store}
}

func (r *FileHintRepository) Save(ctx context.Context, hint domain.RoleHint) error {
	return r.store.update(func(doc *document) {
		h := hint
		doc.Hint = &h
	})
}

func (r *FileHintRepository) Load(ctx context.Context) (domain.RoleHint, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	doc, err := r.store.read()
	if err != nil {
		return domain.RoleHint{}, err
	}
	if doc.Hint == nil {
		return domain.RoleHint{}, domain.ErrHintNotFound
	}
	return *doc.Hint, nil
}

func (r *FileHintRepository) Clear(ctx context.Context) error {
	return r.store.update(func(doc *document) {
		doc.Hint = nil
	})
}
