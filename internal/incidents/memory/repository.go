// Package memory provides the in-memory implementation of the incidents
// repository. It is the canonical store for deployments without a
// database: one instance per application session, torn down with it.
package memory

import (
	"context"
	"sync"

	"github.com/oncallhq/incident-deck/internal/domain"
	"github.com/oncallhq/incident-deck/internal/incidents"
)

// Repository implements incidents.Repository backed by an in-memory
// collection. The repository owns the canonical records; all reads return
// deep copies. Insertion order is preserved for listing.
type Repository struct {
	mu     sync.RWMutex
	order  []int64
	byID   map[int64]*domain.Incident
	nextID int64
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		byID:   make(map[int64]*domain.Incident),
		nextID: 1,
	}
}

// CreateIncident assigns the next id and stores a copy of the incident.
func (r *Repository) CreateIncident(_ context.Context, incident *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	incident.ID = r.nextID
	r.nextID++

	r.byID[incident.ID] = incident.Clone()
	r.order = append(r.order, incident.ID)
	return nil
}

// GetIncident returns a copy of the incident with the given id.
func (r *Repository) GetIncident(_ context.Context, id int64) (*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	incident, ok := r.byID[id]
	if !ok {
		return nil, incidents.ErrIncidentNotFound
	}
	return incident.Clone(), nil
}

// ListIncidents returns copies of all incidents in insertion order.
func (r *Repository) ListIncidents(_ context.Context) ([]*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Incident, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.byID[id].Clone())
	}
	return result, nil
}

// UpdateIncident replaces the mutable fields of the stored record,
// keyed by id. Last write wins.
func (r *Repository) UpdateIncident(_ context.Context, incident *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[incident.ID]
	if !ok {
		return incidents.ErrIncidentNotFound
	}

	stored.Status = incident.Status
	stored.Judgment = incident.Judgment
	stored.Assignee = incident.Assignee
	stored.UpdatedAt = incident.UpdatedAt
	return nil
}

// AppendResponse appends a copy of the response to the stored record.
func (r *Repository) AppendResponse(_ context.Context, incidentID int64, response *domain.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[incidentID]
	if !ok {
		return incidents.ErrIncidentNotFound
	}

	stored.Responses = append(stored.Responses, *response)
	return nil
}

// AddRelation appends a related-incident snapshot to the stored record.
func (r *Repository) AddRelation(_ context.Context, incidentID int64, related domain.RelatedIncident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[incidentID]
	if !ok {
		return incidents.ErrIncidentNotFound
	}

	stored.Related = append(stored.Related, related)
	return nil
}
