// Package worknotice provides HTTP handlers and business logic for
// scheduled-work notices.
package worknotice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oncallhq/incident-deck/internal/domain"
)

// Sentinel errors returned by the work-notice service.
var (
	ErrNoticeNotFound = errors.New("work notice not found")
	ErrInvalidPeriod  = errors.New("end must be after start")
)

// Repository defines the interface for work-notice storage.
type Repository interface {
	CreateNotice(ctx context.Context, notice *domain.WorkNotice) error
	GetNotice(ctx context.Context, id int64) (*domain.WorkNotice, error)
	ListNotices(ctx context.Context) ([]*domain.WorkNotice, error)
}

// Service implements work-notice business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new work-notice service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateNoticeInput holds data for creating a work notice.
type CreateNoticeInput struct {
	Title    string
	StartAt  time.Time
	EndAt    time.Time
	Worker   string
	Verifier string
	Target   string
	Client   string
	Content  string
}

// CreateNotice validates and stores a new work notice.
func (s *Service) CreateNotice(ctx context.Context, input CreateNoticeInput, createdBy string) (*domain.WorkNotice, error) {
	if !input.EndAt.After(input.StartAt) {
		return nil, ErrInvalidPeriod
	}

	notice := &domain.WorkNotice{
		Title:     input.Title,
		StartAt:   input.StartAt,
		EndAt:     input.EndAt,
		Worker:    input.Worker,
		Verifier:  input.Verifier,
		Target:    input.Target,
		Client:    input.Client,
		Content:   input.Content,
		CreatedBy: createdBy,
		CreatedAt: s.now(),
	}

	if err := s.repo.CreateNotice(ctx, notice); err != nil {
		return nil, fmt.Errorf("create work notice: %w", err)
	}
	return notice, nil
}

// GetNotice retrieves a work notice by ID.
func (s *Service) GetNotice(ctx context.Context, id int64) (*domain.WorkNotice, error) {
	return s.repo.GetNotice(ctx, id)
}

// ListNotices retrieves all work notices in creation order.
func (s *Service) ListNotices(ctx context.Context) ([]*domain.WorkNotice, error) {
	return s.repo.ListNotices(ctx)
}
