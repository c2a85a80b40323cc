// Package postgres provides the PostgreSQL implementation of the
// work-notice repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oncallhq/incident-deck/internal/domain"
	"github.com/oncallhq/incident-deck/internal/worknotice"
)

// Repository implements worknotice.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL work-notice repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateNotice inserts a new work notice and fills in the assigned id.
func (r *Repository) CreateNotice(ctx context.Context, notice *domain.WorkNotice) error {
	query := `
		INSERT INTO work_notices (title, start_at, end_at, worker, verifier,
			target, client, content, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		notice.Title,
		notice.StartAt,
		notice.EndAt,
		notice.Worker,
		notice.Verifier,
		notice.Target,
		notice.Client,
		notice.Content,
		notice.CreatedBy,
		notice.CreatedAt,
	).Scan(&notice.ID)

	if err != nil {
		return fmt.Errorf("create work notice: %w", err)
	}
	return nil
}

// GetNotice retrieves a work notice by id.
func (r *Repository) GetNotice(ctx context.Context, id int64) (*domain.WorkNotice, error) {
	query := `
		SELECT id, title, start_at, end_at, worker, verifier,
			target, client, content, created_by, created_at
		FROM work_notices
		WHERE id = $1
	`
	var notice domain.WorkNotice
	err := r.db.QueryRow(ctx, query, id).Scan(
		&notice.ID,
		&notice.Title,
		&notice.StartAt,
		&notice.EndAt,
		&notice.Worker,
		&notice.Verifier,
		&notice.Target,
		&notice.Client,
		&notice.Content,
		&notice.CreatedBy,
		&notice.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, worknotice.ErrNoticeNotFound
		}
		return nil, fmt.Errorf("get work notice: %w", err)
	}
	return &notice, nil
}

// ListNotices retrieves all work notices in creation order.
func (r *Repository) ListNotices(ctx context.Context) ([]*domain.WorkNotice, error) {
	query := `
		SELECT id, title, start_at, end_at, worker, verifier,
			target, client, content, created_by, created_at
		FROM work_notices
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list work notices: %w", err)
	}
	defer rows.Close()

	var notices []*domain.WorkNotice
	for rows.Next() {
		var notice domain.WorkNotice
		err := rows.Scan(
			&notice.ID,
			&notice.Title,
			&notice.StartAt,
			&notice.EndAt,
			&notice.Worker,
			&notice.Verifier,
			&notice.Target,
			&notice.Client,
			&notice.Content,
			&notice.CreatedBy,
			&notice.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan work notice: %w", err)
		}
		notices = append(notices, &notice)
	}
	return notices, rows.Err()
}
