// Package memory provides an in-memory work-notice repository.
package memory

import (
	"context"
	"sync"

	"github.com/oncallhq/incident-deck/internal/domain"
	"github.com/oncallhq/incident-deck/internal/worknotice"
)

// Repository is an in-memory implementation of worknotice.Repository.
type Repository struct {
	mu     sync.RWMutex
	order  []int64
	byID   map[int64]*domain.WorkNotice
	nextID int64
}

// NewRepository creates an empty in-memory work-notice repository.
func NewRepository() *Repository {
	return &Repository{
		byID:   make(map[int64]*domain.WorkNotice),
		nextID: 1,
	}
}

func (r *Repository) CreateNotice(_ context.Context, notice *domain.WorkNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	notice.ID = r.nextID
	r.nextID++

	stored := *notice
	r.byID[notice.ID] = &stored
	r.order = append(r.order, notice.ID)
	return nil
}

func (r *Repository) GetNotice(_ context.Context, id int64) (*domain.WorkNotice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notice, ok := r.byID[id]
	if !ok {
		return nil, worknotice.ErrNoticeNotFound
	}
	copied := *notice
	return &copied, nil
}

func (r *Repository) ListNotices(_ context.Context) ([]*domain.WorkNotice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notices := make([]*domain.WorkNotice, 0, len(r.order))
	for _, id := range r.order {
		copied := *r.byID[id]
		notices = append(notices, &copied)
	}
	return notices, nil
}
