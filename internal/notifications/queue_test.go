package notifications

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(id int64) Event {
	return Event{
		MessageType: MessageTypeResponseFiled,
		IncidentID:  id,
		OldStatus:   "unhandled",
		NewStatus:   "investigating",
		Responder:   "alice",
		OccurredAt:  time.Now(),
	}
}

func TestQueue_EnqueueAndFetch(t *testing.T) {
	q := NewQueue()

	q.Enqueue("teams", testEvent(1))
	q.Enqueue("teams", testEvent(2))

	due := q.FetchDue(10)
	require.Len(t, due, 2)
	// enqueue order preserved
	assert.Equal(t, int64(1), due[0].Event.IncidentID)
	assert.Equal(t, int64(2), due[1].Event.IncidentID)
	assert.NotEqual(t, due[0].ID, due[1].ID)
}

func TestQueue_FetchDueHonorsLimit(t *testing.T) {
	q := NewQueue()
	for i := int64(1); i <= 5; i++ {
		q.Enqueue("teams", testEvent(i))
	}

	due := q.FetchDue(3)
	assert.Len(t, due, 3)
}

func TestQueue_FetchDueSkipsFutureRetries(t *testing.T) {
	q := NewQueue()
	item := q.Enqueue("teams", testEvent(1))

	q.MarkRetry(item, errors.New("boom"), time.Now().Add(time.Hour))

	assert.Empty(t, q.FetchDue(10))
	assert.Equal(t, 1, item.Attempts)
	assert.Equal(t, "boom", item.LastError)
}

func TestQueue_MarkSentDropsItem(t *testing.T) {
	q := NewQueue()
	item := q.Enqueue("teams", testEvent(1))

	q.MarkSent(item)

	assert.Empty(t, q.FetchDue(10))
	assert.Equal(t, QueueStats{}, q.Stats())
}

func TestQueue_MarkFailedDropsItem(t *testing.T) {
	q := NewQueue()
	item := q.Enqueue("teams", testEvent(1))

	q.MarkFailed(item, errors.New("permanent"))

	assert.Empty(t, q.FetchDue(10))
	assert.Equal(t, QueueStatusFailed, item.Status)
	assert.Equal(t, "permanent", item.LastError)
}

func TestQueue_Stats(t *testing.T) {
	q := NewQueue()
	q.Enqueue("teams", testEvent(1))
	q.Enqueue("teams", testEvent(2))

	assert.Equal(t, QueueStats{Pending: 2}, q.Stats())
}
