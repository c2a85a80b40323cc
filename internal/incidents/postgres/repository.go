// Package postgres provides the PostgreSQL implementation of the
// incidents repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oncallhq/incident-deck/internal/domain"
	"github.com/oncallhq/incident-deck/internal/incidents"
)

// Repository implements incidents.Repository using PostgreSQL. Writes are
// keyed by id with no version check; concurrent writers are last-write-wins.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateIncident inserts a new incident and fills in the assigned id.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (occurred_at, status, judgment, content, assignee, priority,
			from_email, to_email, subject, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		incident.OccurredAt,
		incident.Status,
		incident.Judgment,
		incident.Content,
		incident.Assignee,
		incident.Priority,
		incident.FromEmail,
		incident.ToEmail,
		incident.Subject,
		incident.CreatedAt,
		incident.UpdatedAt,
	).Scan(&incident.ID)

	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetIncident retrieves an incident with its responses and related
// snapshots.
func (r *Repository) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	query := `
		SELECT id, occurred_at, status, judgment, content, assignee, priority,
			from_email, to_email, subject, created_at, updated_at
		FROM incidents
		WHERE id = $1
	`
	var incident domain.Incident
	err := r.db.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.OccurredAt,
		&incident.Status,
		&incident.Judgment,
		&incident.Content,
		&incident.Assignee,
		&incident.Priority,
		&incident.FromEmail,
		&incident.ToEmail,
		&incident.Subject,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}

	if incident.Responses, err = r.listResponses(ctx, id); err != nil {
		return nil, err
	}
	if incident.Related, err = r.listRelations(ctx, id); err != nil {
		return nil, err
	}

	return &incident, nil
}

// ListIncidents retrieves all incidents in creation order, each with its
// responses. Related snapshots are loaded on single-incident reads only.
func (r *Repository) ListIncidents(ctx context.Context) ([]*domain.Incident, error) {
	query := `
		SELECT id, occurred_at, status, judgment, content, assignee, priority,
			from_email, to_email, subject, created_at, updated_at
		FROM incidents
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var result []*domain.Incident
	for rows.Next() {
		var incident domain.Incident
		if err := rows.Scan(
			&incident.ID,
			&incident.OccurredAt,
			&incident.Status,
			&incident.Judgment,
			&incident.Content,
			&incident.Assignee,
			&incident.Priority,
			&incident.FromEmail,
			&incident.ToEmail,
			&incident.Subject,
			&incident.CreatedAt,
			&incident.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		result = append(result, &incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	for _, incident := range result {
		if incident.Responses, err = r.listResponses(ctx, incident.ID); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// UpdateIncident writes back the mutable fields, keyed by id.
func (r *Repository) UpdateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET status = $2, judgment = $3, assignee = $4, updated_at = $5
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		incident.ID,
		incident.Status,
		incident.Judgment,
		incident.Assignee,
		incident.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incidents.ErrIncidentNotFound
	}
	return nil
}

// AppendResponse inserts a response row for the incident.
func (r *Repository) AppendResponse(ctx context.Context, incidentID int64, response *domain.Response) error {
	query := `
		INSERT INTO responses (id, incident_id, seq, recorded_at, content, responder)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		response.ID,
		incidentID,
		response.Seq,
		response.RecordedAt,
		response.Content,
		response.Responder,
	)
	if err != nil {
		return fmt.Errorf("append response: %w", err)
	}
	return nil
}

// AddRelation records a relation to another incident together with the
// snapshot fields taken at attach time.
func (r *Repository) AddRelation(ctx context.Context, incidentID int64, related domain.RelatedIncident) error {
	query := `
		INSERT INTO incident_relations (incident_id, related_id, occurred_at, status, content, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		incidentID,
		related.ID,
		related.OccurredAt,
		related.Status,
		related.Content,
		related.Priority,
	)
	if err != nil {
		return fmt.Errorf("add relation: %w", err)
	}
	return nil
}

func (r *Repository) listResponses(ctx context.Context, incidentID int64) ([]domain.Response, error) {
	query := `
		SELECT id, seq, recorded_at, content, responder
		FROM responses
		WHERE incident_id = $1
		ORDER BY seq
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	responses := make([]domain.Response, 0)
	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(&resp.ID, &resp.Seq, &resp.RecordedAt, &resp.Content, &resp.Responder); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return responses, nil
}

func (r *Repository) listRelations(ctx context.Context, incidentID int64) ([]domain.RelatedIncident, error) {
	// Read the stored snapshot, never the live related row.
	query := `
		SELECT related_id, occurred_at, status, content, priority
		FROM incident_relations
		WHERE incident_id = $1
		ORDER BY attached_at, related_id
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	defer rows.Close()

	var related []domain.RelatedIncident
	for rows.Next() {
		var rel domain.RelatedIncident
		if err := rows.Scan(&rel.ID, &rel.OccurredAt, &rel.Status, &rel.Content, &rel.Priority); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		related = append(related, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	return related, nil
}
