package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSender implements Sender for testing.
type mockSender struct {
	mu   sync.Mutex
	name string
	sent []Notification
	err  error
}

func (m *mockSender) Name() string { return m.name }

func (m *mockSender) Send(_ context.Context, notification Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, notification)
	return m.err
}

func (m *mockSender) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type permanentErr struct{ msg string }

func (e permanentErr) Error() string     { return e.msg }
func (e permanentErr) IsRetryable() bool { return false }

func TestWorker_DeliversAndDrains(t *testing.T) {
	q := NewQueue()
	sender := &mockSender{name: "teams"}
	w := NewWorker(DefaultWorkerConfig(), q, sender)

	item := q.Enqueue("teams", testEvent(1))
	w.processItem(context.Background(), item)

	require.Equal(t, 1, sender.sentCount())
	assert.Contains(t, sender.sent[0].Title, "Incident #1")
	assert.Equal(t, QueueStats{}, q.Stats())
}

func TestWorker_RetryableErrorReschedules(t *testing.T) {
	q := NewQueue()
	sender := &mockSender{name: "teams", err: errors.New("timeout")}
	w := NewWorker(DefaultWorkerConfig(), q, sender)

	item := q.Enqueue("teams", testEvent(1))
	w.processItem(context.Background(), item)

	assert.Equal(t, 1, item.Attempts)
	assert.Equal(t, QueueStatusPending, item.Status)
	assert.True(t, item.NextAttemptAt.After(time.Now()))
}

func TestWorker_PermanentErrorFailsImmediately(t *testing.T) {
	q := NewQueue()
	sender := &mockSender{name: "teams", err: permanentErr{msg: "bad webhook"}}
	w := NewWorker(DefaultWorkerConfig(), q, sender)

	item := q.Enqueue("teams", testEvent(1))
	w.processItem(context.Background(), item)

	assert.Equal(t, QueueStatusFailed, item.Status)
	assert.Empty(t, q.FetchDue(10))
}

func TestWorker_MaxAttemptsExhausted(t *testing.T) {
	q := NewQueue()
	sender := &mockSender{name: "teams", err: errors.New("timeout")}
	cfg := DefaultWorkerConfig()
	cfg.MaxAttempts = 2
	w := NewWorker(cfg, q, sender)

	item := q.Enqueue("teams", testEvent(1))
	w.processItem(context.Background(), item)
	require.Equal(t, QueueStatusPending, item.Status)

	w.processItem(context.Background(), item)
	assert.Equal(t, QueueStatusFailed, item.Status)
}

func TestWorker_UnknownSenderFails(t *testing.T) {
	q := NewQueue()
	w := NewWorker(DefaultWorkerConfig(), q)

	item := q.Enqueue("pager", testEvent(1))
	w.processItem(context.Background(), item)

	assert.Equal(t, QueueStatusFailed, item.Status)
}

func TestWorker_StartStop(t *testing.T) {
	q := NewQueue()
	sender := &mockSender{name: "teams"}
	cfg := DefaultWorkerConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.NumWorkers = 1
	w := NewWorker(cfg, q, sender)

	q.Enqueue("teams", testEvent(1))

	w.Start(context.Background())
	require.Eventually(t, func() bool {
		return sender.sentCount() == 1
	}, time.Second, 10*time.Millisecond)
	w.Stop()
}

func TestWorker_Backoff(t *testing.T) {
	cfg := DefaultWorkerConfig()
	cfg.InitialBackoff = time.Second
	cfg.MaxBackoff = 5 * time.Second
	cfg.BackoffMultiplier = 2
	w := NewWorker(cfg, NewQueue())

	assert.Equal(t, time.Second, w.backoff(0))
	assert.Equal(t, 2*time.Second, w.backoff(1))
	assert.Equal(t, 4*time.Second, w.backoff(2))
	// capped
	assert.Equal(t, 5*time.Second, w.backoff(3))
	assert.Equal(t, 5*time.Second, w.backoff(10))
}
