package domain

import "time"

// IncidentStatus represents the lifecycle state of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusUnhandled     IncidentStatus = "unhandled"
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusResolved      IncidentStatus = "resolved"
	IncidentStatusClosed        IncidentStatus = "closed"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusUnhandled, IncidentStatusInvestigating,
		IncidentStatusResolved, IncidentStatusClosed:
		return true
	}
	return false
}

// IsResolved checks if the status represents a resolved or closed state.
func (s IncidentStatus) IsResolved() bool {
	return s == IncidentStatusResolved || s == IncidentStatusClosed
}

// Judgment classifies an incident independently of its lifecycle status.
type Judgment string

// Judgments.
const (
	JudgmentRequiresAction Judgment = "requires_action"
	JudgmentObserve        Judgment = "observe"
)

// IsValid checks if the judgment is valid.
func (j Judgment) IsValid() bool {
	return j == JudgmentRequiresAction || j == JudgmentObserve
}

// Priority represents the informational priority of an incident.
// It is not consulted by any transition logic.
type Priority string

// Priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid checks if the priority is valid.
func (p Priority) IsValid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Incident represents a tracked operational issue with a lifecycle status
// and an append-only audit trail of responses.
type Incident struct {
	ID         int64             `json:"id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Status     IncidentStatus    `json:"status"`
	Judgment   Judgment          `json:"judgment"`
	Content    string            `json:"content"`
	Assignee   string            `json:"assignee"`
	Priority   Priority          `json:"priority"`
	FromEmail  string            `json:"from_email,omitempty"`
	ToEmail    string            `json:"to_email,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Responses  []Response        `json:"responses"`
	Related    []RelatedIncident `json:"related_incidents,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Response represents a timestamped note in an incident's audit trail.
// ID is globally unique; Seq is the position within the parent incident,
// starting at 1.
type Response struct {
	ID         string    `json:"id"`
	Seq        int       `json:"seq"`
	RecordedAt time.Time `json:"recorded_at"`
	Content    string    `json:"content"`
	Responder  string    `json:"responder"`
}

// RelatedIncident is a denormalized read-only snapshot of another incident,
// used for display grouping. It is a copy, never a live link.
type RelatedIncident struct {
	ID         int64          `json:"id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Status     IncidentStatus `json:"status"`
	Content    string         `json:"content"`
	Priority   Priority       `json:"priority"`
}

// Clone returns a deep copy of the incident. Callers outside the store
// receive clones and must treat them as snapshots.
func (i *Incident) Clone() *Incident {
	c := *i
	c.Responses = make([]Response, len(i.Responses))
	copy(c.Responses, i.Responses)
	if i.Related != nil {
		c.Related = make([]RelatedIncident, len(i.Related))
		copy(c.Related, i.Related)
	}
	return &c
}

// Snapshot returns the denormalized form of the incident for use as a
// related-incident reference.
func (i *Incident) Snapshot() RelatedIncident {
	return RelatedIncident{
		ID:         i.ID,
		OccurredAt: i.OccurredAt,
		Status:     i.Status,
		Content:    i.Content,
		Priority:   i.Priority,
	}
}
