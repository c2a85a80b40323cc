package memory

import (
	"context"
	"testing"
	"time"

	"github.com/oncallhq/incident-deck/internal/domain"
	"github.com/oncallhq/incident-deck/internal/incidents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIncident(content string) *domain.Incident {
	now := time.Now()
	return &domain.Incident{
		OccurredAt: now,
		Status:     domain.IncidentStatusUnhandled,
		Judgment:   domain.JudgmentRequiresAction,
		Content:    content,
		Priority:   domain.PriorityMedium,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	first := newIncident("first")
	second := newIncident("second")
	require.NoError(t, repo.CreateIncident(ctx, first))
	require.NoError(t, repo.CreateIncident(ctx, second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestGetUnknownID(t *testing.T) {
	repo := NewRepository()

	_, err := repo.GetIncident(context.Background(), 42)

	assert.ErrorIs(t, err, incidents.ErrIncidentNotFound)
}

func TestListPreservesInsertionOrder(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c"} {
		require.NoError(t, repo.CreateIncident(ctx, newIncident(content)))
	}

	list, err := repo.ListIncidents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Content)
	assert.Equal(t, "c", list[2].Content)
}

func TestReadsReturnCopies(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	incident := newIncident("original")
	require.NoError(t, repo.CreateIncident(ctx, incident))

	got, err := repo.GetIncident(ctx, incident.ID)
	require.NoError(t, err)
	got.Status = domain.IncidentStatusResolved
	got.Responses = append(got.Responses, domain.Response{Content: "rogue"})

	stored, err := repo.GetIncident(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusUnhandled, stored.Status)
	assert.Empty(t, stored.Responses)
}

func TestUpdateIncident(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	incident := newIncident("original")
	require.NoError(t, repo.CreateIncident(ctx, incident))

	incident.Status = domain.IncidentStatusInvestigating
	incident.Assignee = "alice"
	incident.UpdatedAt = time.Now()
	require.NoError(t, repo.UpdateIncident(ctx, incident))

	stored, err := repo.GetIncident(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusInvestigating, stored.Status)
	assert.Equal(t, "alice", stored.Assignee)
}

func TestUpdateUnknownID(t *testing.T) {
	repo := NewRepository()

	err := repo.UpdateIncident(context.Background(), &domain.Incident{ID: 42})

	assert.ErrorIs(t, err, incidents.ErrIncidentNotFound)
}

func TestAppendResponse(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	incident := newIncident("original")
	require.NoError(t, repo.CreateIncident(ctx, incident))

	response := &domain.Response{ID: "r1", Seq: 1, Content: "on it", Responder: "alice"}
	require.NoError(t, repo.AppendResponse(ctx, incident.ID, response))

	stored, err := repo.GetIncident(ctx, incident.ID)
	require.NoError(t, err)
	require.Len(t, stored.Responses, 1)
	assert.Equal(t, "on it", stored.Responses[0].Content)
}

func TestAddRelation(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	incident := newIncident("original")
	other := newIncident("related")
	require.NoError(t, repo.CreateIncident(ctx, incident))
	require.NoError(t, repo.CreateIncident(ctx, other))

	require.NoError(t, repo.AddRelation(ctx, incident.ID, other.Snapshot()))

	stored, err := repo.GetIncident(ctx, incident.ID)
	require.NoError(t, err)
	require.Len(t, stored.Related, 1)
	assert.Equal(t, other.ID, stored.Related[0].ID)
}
