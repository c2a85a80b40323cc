package worknotice

import (
	"context"
	"testing"
	"time"

	"github.com/oncallhq/incident-deck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepo implements Repository for testing.
type mockRepo struct {
	notices []*domain.WorkNotice
}

func (m *mockRepo) CreateNotice(_ context.Context, notice *domain.WorkNotice) error {
	notice.ID = int64(len(m.notices) + 1)
	m.notices = append(m.notices, notice)
	return nil
}

func (m *mockRepo) GetNotice(_ context.Context, id int64) (*domain.WorkNotice, error) {
	for _, n := range m.notices {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, ErrNoticeNotFound
}

func (m *mockRepo) ListNotices(_ context.Context) ([]*domain.WorkNotice, error) {
	return m.notices, nil
}

func validInput() CreateNoticeInput {
	start := time.Date(2026, time.April, 1, 22, 0, 0, 0, time.UTC)
	return CreateNoticeInput{
		Title:    "Database maintenance",
		StartAt:  start,
		EndAt:    start.Add(2 * time.Hour),
		Worker:   "alice",
		Verifier: "bob",
		Target:   "db-01",
		Client:   "Acme Corp",
		Content:  "Apply security patches and reboot",
	}
}

func TestCreateNotice(t *testing.T) {
	repo := &mockRepo{}
	service := NewService(repo)

	notice, err := service.CreateNotice(context.Background(), validInput(), "carol")

	require.NoError(t, err)
	assert.Equal(t, int64(1), notice.ID)
	assert.Equal(t, "Database maintenance", notice.Title)
	assert.Equal(t, "carol", notice.CreatedBy)
	assert.False(t, notice.CreatedAt.IsZero())
}

func TestCreateNotice_EndBeforeStart(t *testing.T) {
	service := NewService(&mockRepo{})

	input := validInput()
	input.EndAt = input.StartAt.Add(-time.Hour)

	_, err := service.CreateNotice(context.Background(), input, "carol")

	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestCreateNotice_EndEqualsStart(t *testing.T) {
	service := NewService(&mockRepo{})

	input := validInput()
	input.EndAt = input.StartAt

	_, err := service.CreateNotice(context.Background(), input, "carol")

	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestGetNotice_NotFound(t *testing.T) {
	service := NewService(&mockRepo{})

	_, err := service.GetNotice(context.Background(), 42)

	assert.ErrorIs(t, err, ErrNoticeNotFound)
}

func TestListNotices_CreationOrder(t *testing.T) {
	repo := &mockRepo{}
	service := NewService(repo)

	for i := 0; i < 3; i++ {
		_, err := service.CreateNotice(context.Background(), validInput(), "carol")
		require.NoError(t, err)
	}

	notices, err := service.ListNotices(context.Background())

	require.NoError(t, err)
	require.Len(t, notices, 3)
	assert.Equal(t, int64(1), notices[0].ID)
	assert.Equal(t, int64(3), notices[2].ID)
}
