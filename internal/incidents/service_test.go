package incidents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oncallhq/incident-deck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepo implements Repository for testing.
type mockRepo struct {
	byID      map[int64]*domain.Incident
	order     []int64
	nextID    int64
	updateErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		byID:   make(map[int64]*domain.Incident),
		nextID: 1,
	}
}

func (m *mockRepo) CreateIncident(_ context.Context, incident *domain.Incident) error {
	incident.ID = m.nextID
	m.nextID++
	m.byID[incident.ID] = incident.Clone()
	m.order = append(m.order, incident.ID)
	return nil
}

func (m *mockRepo) GetIncident(_ context.Context, id int64) (*domain.Incident, error) {
	incident, ok := m.byID[id]
	if !ok {
		return nil, ErrIncidentNotFound
	}
	return incident.Clone(), nil
}

func (m *mockRepo) ListIncidents(_ context.Context) ([]*domain.Incident, error) {
	out := make([]*domain.Incident, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id].Clone())
	}
	return out, nil
}

func (m *mockRepo) UpdateIncident(_ context.Context, incident *domain.Incident) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.byID[incident.ID]
	if !ok {
		return ErrIncidentNotFound
	}
	stored.Status = incident.Status
	stored.Judgment = incident.Judgment
	stored.Assignee = incident.Assignee
	stored.UpdatedAt = incident.UpdatedAt
	return nil
}

func (m *mockRepo) AppendResponse(_ context.Context, incidentID int64, response *domain.Response) error {
	stored, ok := m.byID[incidentID]
	if !ok {
		return ErrIncidentNotFound
	}
	stored.Responses = append(stored.Responses, *response)
	return nil
}

func (m *mockRepo) AddRelation(_ context.Context, incidentID int64, related domain.RelatedIncident) error {
	stored, ok := m.byID[incidentID]
	if !ok {
		return ErrIncidentNotFound
	}
	stored.Related = append(stored.Related, related)
	return nil
}

// mockNotifier implements ChangeNotifier for testing.
type mockNotifier struct {
	changes []StatusChange
	err     error
}

func (m *mockNotifier) OnIncidentChanged(_ context.Context, change StatusChange) error {
	m.changes = append(m.changes, change)
	return m.err
}

func newTestService(t *testing.T) (*Service, *mockRepo, *mockNotifier) {
	t.Helper()
	repo := newMockRepo()
	notifier := &mockNotifier{}
	service := NewService(repo, notifier)
	return service, repo, notifier
}

func createTestIncident(t *testing.T, service *Service) *domain.Incident {
	t.Helper()
	incident, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		Judgment: domain.JudgmentRequiresAction,
		Content:  "disk full on db-01",
		Priority: domain.PriorityHigh,
	})
	require.NoError(t, err)
	return incident
}

func TestCreateIncident(t *testing.T) {
	service, _, _ := newTestService(t)

	incident, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		Judgment:  domain.JudgmentObserve,
		Content:   "certificate expiry warning",
		Priority:  domain.PriorityLow,
		FromEmail: "alerts@example.com",
		Subject:   "cert expiry",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), incident.ID)
	assert.Equal(t, domain.IncidentStatusUnhandled, incident.Status)
	assert.Empty(t, incident.Responses)
	assert.False(t, incident.OccurredAt.IsZero())
}

func TestCreateIncident_InvalidJudgment(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		Judgment: "bogus",
		Content:  "x",
		Priority: domain.PriorityLow,
	})

	assert.ErrorIs(t, err, ErrInvalidJudgment)
}

func TestCreateIncident_InvalidPriority(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		Judgment: domain.JudgmentObserve,
		Content:  "x",
		Priority: "urgent",
	})

	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestFileResponse(t *testing.T) {
	service, repo, notifier := newTestService(t)
	created := createTestIncident(t, service)

	incident, err := service.FileResponse(context.Background(), created.ID, "restarted the node", "alice")

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusInvestigating, incident.Status)
	assert.Equal(t, "alice", incident.Assignee)
	require.Len(t, incident.Responses, 1)
	assert.Equal(t, 1, incident.Responses[0].Seq)
	assert.NotEmpty(t, incident.Responses[0].ID)
	assert.Equal(t, "restarted the node", incident.Responses[0].Content)
	assert.Equal(t, "alice", incident.Responses[0].Responder)

	// persisted
	stored, err := repo.GetIncident(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusInvestigating, stored.Status)
	assert.Len(t, stored.Responses, 1)

	require.Len(t, notifier.changes, 1)
	assert.Equal(t, domain.IncidentStatusUnhandled, notifier.changes[0].OldStatus)
	assert.Equal(t, domain.IncidentStatusInvestigating, notifier.changes[0].NewStatus)
}

func TestFileResponse_SecondResponseIncrementsSeq(t *testing.T) {
	service, _, _ := newTestService(t)
	created := createTestIncident(t, service)

	_, err := service.FileResponse(context.Background(), created.ID, "looking into it", "alice")
	require.NoError(t, err)

	incident, err := service.FileResponse(context.Background(), created.ID, "found root cause", "bob")
	require.NoError(t, err)

	require.Len(t, incident.Responses, 2)
	assert.Equal(t, 2, incident.Responses[1].Seq)
	assert.NotEqual(t, incident.Responses[0].ID, incident.Responses[1].ID)
	// status stays investigating, assignee follows the latest responder
	assert.Equal(t, domain.IncidentStatusInvestigating, incident.Status)
	assert.Equal(t, "bob", incident.Assignee)
}

func TestFileResponse_EmptyContentIsNoOp(t *testing.T) {
	service, repo, notifier := newTestService(t)
	created := createTestIncident(t, service)

	incident, err := service.FileResponse(context.Background(), created.ID, "", "alice")

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusUnhandled, incident.Status)
	assert.Empty(t, incident.Responses)

	stored, err := repo.GetIncident(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Responses)
	assert.Empty(t, notifier.changes)
}

func TestFileResponse_EmptyResponderIsNoOp(t *testing.T) {
	service, _, notifier := newTestService(t)
	created := createTestIncident(t, service)

	incident, err := service.FileResponse(context.Background(), created.ID, "update", "")

	require.NoError(t, err)
	assert.Empty(t, incident.Responses)
	assert.Empty(t, notifier.changes)
}

func TestFileResponse_UnknownIncident(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.FileResponse(context.Background(), 42, "update", "alice")

	assert.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestMarkResolved(t *testing.T) {
	service, _, notifier := newTestService(t)
	created := createTestIncident(t, service)

	_, err := service.FileResponse(context.Background(), created.ID, "fix deployed", "alice")
	require.NoError(t, err)

	incident, err := service.MarkResolved(context.Background(), created.ID, "alice")

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusResolved, incident.Status)
	require.Len(t, incident.Responses, 2)
	assert.Equal(t, "incident resolved", incident.Responses[1].Content)
	// assignee untouched by resolution
	assert.Equal(t, "alice", incident.Assignee)

	require.Len(t, notifier.changes, 2)
	assert.Equal(t, domain.IncidentStatusResolved, notifier.changes[1].NewStatus)
}

func TestMarkResolved_FromUnhandled(t *testing.T) {
	// Resolving an untouched incident is a valid shortcut.
	service, _, _ := newTestService(t)
	created := createTestIncident(t, service)

	incident, err := service.MarkResolved(context.Background(), created.ID, "alice")

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusResolved, incident.Status)
	require.Len(t, incident.Responses, 1)
	assert.Equal(t, "incident resolved", incident.Responses[0].Content)
	assert.Empty(t, incident.Assignee)
}

func TestMarkResolved_Idempotent(t *testing.T) {
	service, _, notifier := newTestService(t)
	created := createTestIncident(t, service)

	_, err := service.MarkResolved(context.Background(), created.ID, "alice")
	require.NoError(t, err)

	incident, err := service.MarkResolved(context.Background(), created.ID, "bob")

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusResolved, incident.Status)
	// no duplicate system response, no second notification
	assert.Len(t, incident.Responses, 1)
	assert.Len(t, notifier.changes, 1)
}

func TestMarkResolved_UnknownIncident(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.MarkResolved(context.Background(), 42, "alice")

	assert.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestSetStatus_OverridesWithoutAudit(t *testing.T) {
	service, _, notifier := newTestService(t)
	created := createTestIncident(t, service)

	incident, err := service.SetStatus(context.Background(), created.ID, domain.IncidentStatusResolved)

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusResolved, incident.Status)
	// the override leaves no trace in the audit trail and never touches
	// the assignee
	assert.Empty(t, incident.Responses)
	assert.Empty(t, incident.Assignee)

	require.Len(t, notifier.changes, 1)
	assert.Nil(t, notifier.changes[0].Response)
}

func TestSetStatus_SameStatusIsNoOp(t *testing.T) {
	service, _, notifier := newTestService(t)
	created := createTestIncident(t, service)

	incident, err := service.SetStatus(context.Background(), created.ID, domain.IncidentStatusUnhandled)

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusUnhandled, incident.Status)
	assert.Empty(t, notifier.changes)
}

func TestSetStatus_InvalidStatus(t *testing.T) {
	service, _, _ := newTestService(t)
	created := createTestIncident(t, service)

	_, err := service.SetStatus(context.Background(), created.ID, "escalated")

	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCloseIncident(t *testing.T) {
	service, _, _ := newTestService(t)
	created := createTestIncident(t, service)

	_, err := service.MarkResolved(context.Background(), created.ID, "alice")
	require.NoError(t, err)

	incident, err := service.CloseIncident(context.Background(), created.ID, "alice")

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusClosed, incident.Status)
	require.Len(t, incident.Responses, 2)
	assert.Equal(t, "incident closed", incident.Responses[1].Content)
}

func TestCloseIncident_OnlyFromResolved(t *testing.T) {
	service, _, _ := newTestService(t)
	created := createTestIncident(t, service)

	_, err := service.CloseIncident(context.Background(), created.ID, "alice")

	assert.ErrorIs(t, err, ErrNotResolved)
}

func TestCloseIncident_Idempotent(t *testing.T) {
	service, _, notifier := newTestService(t)
	created := createTestIncident(t, service)

	_, err := service.MarkResolved(context.Background(), created.ID, "alice")
	require.NoError(t, err)
	_, err = service.CloseIncident(context.Background(), created.ID, "alice")
	require.NoError(t, err)
	notified := len(notifier.changes)

	incident, err := service.CloseIncident(context.Background(), created.ID, "bob")

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusClosed, incident.Status)
	assert.Len(t, notifier.changes, notified)
}

func TestAddRelation(t *testing.T) {
	service, _, _ := newTestService(t)
	first := createTestIncident(t, service)
	second := createTestIncident(t, service)

	incident, err := service.AddRelation(context.Background(), first.ID, second.ID)

	require.NoError(t, err)
	require.Len(t, incident.Related, 1)
	assert.Equal(t, second.ID, incident.Related[0].ID)
	assert.Equal(t, second.Content, incident.Related[0].Content)
}

func TestAddRelation_SnapshotDoesNotTrackChanges(t *testing.T) {
	service, _, _ := newTestService(t)
	first := createTestIncident(t, service)
	second := createTestIncident(t, service)

	_, err := service.AddRelation(context.Background(), first.ID, second.ID)
	require.NoError(t, err)

	_, err = service.MarkResolved(context.Background(), second.ID, "alice")
	require.NoError(t, err)

	incident, err := service.GetIncident(context.Background(), first.ID)
	require.NoError(t, err)
	require.Len(t, incident.Related, 1)
	// the snapshot keeps the status it was taken with
	assert.Equal(t, domain.IncidentStatusUnhandled, incident.Related[0].Status)
}

func TestAddRelation_SelfRelation(t *testing.T) {
	service, _, _ := newTestService(t)
	created := createTestIncident(t, service)

	_, err := service.AddRelation(context.Background(), created.ID, created.ID)

	assert.ErrorIs(t, err, ErrSelfRelation)
}

func TestAddRelation_UnknownRelated(t *testing.T) {
	service, _, _ := newTestService(t)
	created := createTestIncident(t, service)

	_, err := service.AddRelation(context.Background(), created.ID, 42)

	assert.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestNotifierFailureDoesNotFailTransition(t *testing.T) {
	repo := newMockRepo()
	notifier := &mockNotifier{err: errors.New("webhook down")}
	service := NewService(repo, notifier)
	created := createTestIncident(t, service)

	incident, err := service.FileResponse(context.Background(), created.ID, "update", "alice")

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusInvestigating, incident.Status)

	stored, err := repo.GetIncident(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusInvestigating, stored.Status)
}

func TestNilNotifier(t *testing.T) {
	repo := newMockRepo()
	service := NewService(repo, nil)
	created := createTestIncident(t, service)

	_, err := service.MarkResolved(context.Background(), created.ID, "alice")

	require.NoError(t, err)
}

func TestListIncidents_AppliesFilter(t *testing.T) {
	service, _, _ := newTestService(t)
	createTestIncident(t, service)
	second := createTestIncident(t, service)

	_, err := service.FileResponse(context.Background(), second.ID, "on it", "alice")
	require.NoError(t, err)

	result, err := service.ListIncidents(context.Background(), Filter{
		Statuses: []domain.IncidentStatus{domain.IncidentStatusInvestigating},
	})

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, second.ID, result[0].ID)
}

func TestStatusCounts(t *testing.T) {
	service, _, _ := newTestService(t)
	createTestIncident(t, service)
	second := createTestIncident(t, service)
	third := createTestIncident(t, service)

	_, err := service.FileResponse(context.Background(), second.ID, "on it", "alice")
	require.NoError(t, err)
	_, err = service.MarkResolved(context.Background(), third.ID, "bob")
	require.NoError(t, err)

	counts, err := service.StatusCounts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.IncidentStatusUnhandled])
	assert.Equal(t, 1, counts[domain.IncidentStatusInvestigating])
	assert.Equal(t, 1, counts[domain.IncidentStatusResolved])
	assert.Equal(t, 0, counts[domain.IncidentStatusClosed])
}

func TestServiceClockIsInjectable(t *testing.T) {
	service, _, _ := newTestService(t)
	fixed := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	service.now = func() time.Time { return fixed }

	incident := createTestIncident(t, service)

	assert.Equal(t, fixed, incident.OccurredAt)
	assert.Equal(t, fixed, incident.CreatedAt)
}
