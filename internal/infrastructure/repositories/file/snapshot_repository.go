package file

import (
	"context"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/ports"
)

type FileSnapshotRepository struct {
	store *Store
}

func NewFileSnapshotRepository(store *Store) ports.SnapshotRepository {
	return &FileSnapshotRepository{store: store}
}

func (r *FileSnapshotRepository) Save(ctx context.Context, snap domain.StateSnapshot) error {
	return r.store.update(func(doc *document) {
		s := snap
		doc.Snapshot = &s
	})
}

func (r *FileSnapshotRepository) Load(ctx context.Context) (domain.StateSnapshot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	doc, err := r.store.read()
	if err != nil {
		return domain.StateSnapshot{}, err
	}
	if doc.Snapshot == nil {
		return domain.StateSnapshot{}, domain.ErrSnapshotNotFound
	}
	return *doc.Snapshot, nil
}

func (r *FileSnapshotRepository) Clear(ctx context.Context) error {
	return r.store.update(func(doc *document) {
		doc.Snapshot = nil
	})
}
