package incidents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oncallhq/incident-deck/internal/domain"
)

// System-authored response messages.
const (
	resolvedMessage = "incident resolved"
	closedMessage   = "incident closed"
)

// StatusChange describes a completed transition for change-notification
// consumers.
type StatusChange struct {
	Incident   *domain.Incident
	OldStatus  domain.IncidentStatus
	NewStatus  domain.IncidentStatus
	Response   *domain.Response
	Actor      string
	OccurredAt time.Time
}

// ChangeNotifier receives change events after a transition succeeds.
// Emission is fire-and-forget: a notifier failure never rolls back the
// state change already applied.
type ChangeNotifier interface {
	OnIncidentChanged(ctx context.Context, change StatusChange) error
}

// Service implements incident business logic.
type Service struct {
	repo     Repository
	notifier ChangeNotifier
	now      func() time.Time
}

// NewService creates a new incident service. notifier may be nil.
func NewService(repo Repository, notifier ChangeNotifier) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
	}
}

// CreateIncidentInput holds data for creating an incident.
type CreateIncidentInput struct {
	OccurredAt time.Time
	Judgment   domain.Judgment
	Content    string
	Priority   domain.Priority
	FromEmail  string
	ToEmail    string
	Subject    string
}

// CreateIncident creates a new incident in the unhandled state.
func (s *Service) CreateIncident(ctx context.Context, input CreateIncidentInput) (*domain.Incident, error) {
	if !input.Judgment.IsValid() {
		return nil, ErrInvalidJudgment
	}
	if !input.Priority.IsValid() {
		return nil, ErrInvalidPriority
	}

	now := s.now()
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	incident := &domain.Incident{
		OccurredAt: occurredAt,
		Status:     domain.IncidentStatusUnhandled,
		Judgment:   input.Judgment,
		Content:    input.Content,
		Priority:   input.Priority,
		FromEmail:  input.FromEmail,
		ToEmail:    input.ToEmail,
		Subject:    input.Subject,
		Responses:  make([]domain.Response, 0),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	return incident, nil
}

// GetIncident retrieves an incident by ID.
func (s *Service) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	return s.repo.GetIncident(ctx, id)
}

// ListIncidents retrieves all incidents matching the filter, preserving
// store order.
func (s *Service) ListIncidents(ctx context.Context, filter Filter) ([]*domain.Incident, error) {
	collection, err := s.repo.ListIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return filter.Apply(collection), nil
}

// StatusCounts returns the number of incidents per status.
func (s *Service) StatusCounts(ctx context.Context) (map[domain.IncidentStatus]int, error) {
	collection, err := s.repo.ListIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	counts := make(map[domain.IncidentStatus]int, 4)
	for _, status := range []domain.IncidentStatus{
		domain.IncidentStatusUnhandled,
		domain.IncidentStatusInvestigating,
		domain.IncidentStatusResolved,
		domain.IncidentStatusClosed,
	} {
		counts[status] = CountByStatus(collection, status)
	}
	return counts, nil
}

// FileResponse appends an update to the incident's audit trail: the
// incident moves to investigating and the responder takes over as
// assignee. Empty content or responder is a silent no-op returning the
// incident unchanged; the UI already enforces required fields, this guard
// is only a backstop.
func (s *Service) FileResponse(ctx context.Context, id int64, content, responder string) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}

	if content == "" || responder == "" {
		return incident, nil
	}

	oldStatus := incident.Status
	response := s.appendResponse(incident, content, responder)

	incident.Status = domain.IncidentStatusInvestigating
	incident.Assignee = responder
	incident.UpdatedAt = s.now()

	if err := s.persist(ctx, incident, response); err != nil {
		return nil, err
	}

	s.notify(ctx, StatusChange{
		Incident:   incident,
		OldStatus:  oldStatus,
		NewStatus:  incident.Status,
		Response:   response,
		Actor:      responder,
		OccurredAt: incident.UpdatedAt,
	})

	return incident, nil
}

// MarkResolved resolves the incident from any non-resolved state,
// appending a system-authored response. Calling it on an already-resolved
// incident is an idempotent no-op. The assignee is left untouched.
func (s *Service) MarkResolved(ctx context.Context, id int64, responder string) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}

	if incident.Status.IsResolved() {
		return incident, nil
	}

	oldStatus := incident.Status
	response := s.appendResponse(incident, resolvedMessage, responder)

	incident.Status = domain.IncidentStatusResolved
	incident.UpdatedAt = s.now()

	if err := s.persist(ctx, incident, response); err != nil {
		return nil, err
	}

	s.notify(ctx, StatusChange{
		Incident:   incident,
		OldStatus:  oldStatus,
		NewStatus:  incident.Status,
		Response:   response,
		Actor:      responder,
		OccurredAt: incident.UpdatedAt,
	})

	return incident, nil
}

// SetStatus is the administrative override: it overwrites the status
// unconditionally and touches neither responses nor assignee. It is a
// separate operation from the audited transitions and does not appear in
// the audit trail.
func (s *Service) SetStatus(ctx context.Context, id int64, status domain.IncidentStatus) (*domain.Incident, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}

	if incident.Status == status {
		return incident, nil
	}

	oldStatus := incident.Status
	incident.Status = status
	incident.UpdatedAt = s.now()

	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	s.notify(ctx, StatusChange{
		Incident:   incident,
		OldStatus:  oldStatus,
		NewStatus:  incident.Status,
		OccurredAt: incident.UpdatedAt,
	})

	return incident, nil
}

// CloseIncident moves a resolved incident to the terminal closed state.
// Closing is only reachable from resolved; closing an already-closed
// incident is a no-op.
func (s *Service) CloseIncident(ctx context.Context, id int64, responder string) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}

	if incident.Status == domain.IncidentStatusClosed {
		return incident, nil
	}
	if incident.Status != domain.IncidentStatusResolved {
		return nil, ErrNotResolved
	}

	oldStatus := incident.Status
	response := s.appendResponse(incident, closedMessage, responder)

	incident.Status = domain.IncidentStatusClosed
	incident.UpdatedAt = s.now()

	if err := s.persist(ctx, incident, response); err != nil {
		return nil, err
	}

	s.notify(ctx, StatusChange{
		Incident:   incident,
		OldStatus:  oldStatus,
		NewStatus:  incident.Status,
		Response:   response,
		Actor:      responder,
		OccurredAt: incident.UpdatedAt,
	})

	return incident, nil
}

// AddRelation attaches a snapshot of the related incident for display
// grouping. The snapshot is a copy, never a live link.
func (s *Service) AddRelation(ctx context.Context, id, relatedID int64) (*domain.Incident, error) {
	if id == relatedID {
		return nil, ErrSelfRelation
	}

	related, err := s.repo.GetIncident(ctx, relatedID)
	if err != nil {
		return nil, fmt.Errorf("get related incident: %w", err)
	}

	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}

	snapshot := related.Snapshot()
	if err := s.repo.AddRelation(ctx, id, snapshot); err != nil {
		return nil, fmt.Errorf("add relation: %w", err)
	}

	incident.Related = append(incident.Related, snapshot)
	return incident, nil
}

// appendResponse builds the next response for the incident and appends it
// in memory. Seq is the per-incident position; ID is globally unique so
// responses from different incidents never collide once persisted.
func (s *Service) appendResponse(incident *domain.Incident, content, responder string) *domain.Response {
	response := domain.Response{
		ID:         uuid.New().String(),
		Seq:        len(incident.Responses) + 1,
		RecordedAt: s.now(),
		Content:    content,
		Responder:  responder,
	}
	incident.Responses = append(incident.Responses, response)
	return &incident.Responses[len(incident.Responses)-1]
}

func (s *Service) persist(ctx context.Context, incident *domain.Incident, response *domain.Response) error {
	if err := s.repo.AppendResponse(ctx, incident.ID, response); err != nil {
		return fmt.Errorf("append response: %w", err)
	}
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// notify emits the change event. Subscriber failure is logged and
// swallowed; the transition has already been applied.
func (s *Service) notify(ctx context.Context, change StatusChange) {
	recordTransition(change.OldStatus, change.NewStatus)

	if s.notifier == nil {
		return
	}
	if err := s.notifier.OnIncidentChanged(ctx, change); err != nil {
		slog.Error("change notification failed",
			"incident_id", change.Incident.ID,
			"old_status", change.OldStatus,
			"new_status", change.NewStatus,
			"error", err,
		)
	}
}
