package incidents

import (
	"context"

	"github.com/oncallhq/incident-deck/internal/domain"
)

// Repository defines the interface for incident storage. The store owns
// the canonical records; implementations must hand out copies so callers
// only ever hold read-only snapshots.
type Repository interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	GetIncident(ctx context.Context, id int64) (*domain.Incident, error)
	ListIncidents(ctx context.Context) ([]*domain.Incident, error)

	// UpdateIncident writes back status, judgment, assignee and UpdatedAt,
	// keyed by id. Concurrent writers are last-write-wins.
	UpdateIncident(ctx context.Context, incident *domain.Incident) error

	// AppendResponse adds a response to the incident's audit trail.
	// Responses are append-only; there is no reorder or delete.
	AppendResponse(ctx context.Context, incidentID int64, response *domain.Response) error

	// AddRelation attaches a read-only snapshot of another incident.
	AddRelation(ctx context.Context, incidentID int64, related domain.RelatedIncident) error
}
