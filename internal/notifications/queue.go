package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// QueueStatus represents the status of a queue item.
type QueueStatus string

// Queue statuses.
const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusSent       QueueStatus = "sent"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueItem represents one event awaiting delivery to one sender.
type QueueItem struct {
	ID            string
	Sender        string
	Event         Event
	Status        QueueStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
}

// QueueStats summarizes queue contents by status.
type QueueStats struct {
	Pending    int
	Processing int
	Sent       int
	Failed     int
}

// Queue is an in-memory delivery queue. Items are fetched in enqueue
// order once their NextAttemptAt has passed.
type Queue struct {
	mu    sync.Mutex
	items []*QueueItem
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue adds a pending item for the given sender.
func (q *Queue) Enqueue(sender string, event Event) *QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	item := &QueueItem{
		ID:            uuid.New().String(),
		Sender:        sender,
		Event:         event,
		Status:        QueueStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	q.items = append(q.items, item)
	recordQueueSize(q.statsLocked())
	return item
}

// FetchDue claims up to limit pending items whose retry time has passed.
// Claimed items move to processing so concurrent workers never deliver
// the same item twice.
func (q *Queue) FetchDue(limit int) []*QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var due []*QueueItem
	for _, item := range q.items {
		if len(due) >= limit {
			break
		}
		if item.Status == QueueStatusPending && !item.NextAttemptAt.After(now) {
			item.Status = QueueStatusProcessing
			due = append(due, item)
		}
	}
	return due
}

// MarkSent marks the item delivered and drops it from the queue.
func (q *Queue) MarkSent(item *QueueItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item.Status = QueueStatusSent
	q.removeLocked(item.ID)
	recordQueueSize(q.statsLocked())
}

// MarkRetry releases the item back to pending for another attempt.
func (q *Queue) MarkRetry(item *QueueItem, err error, nextAttemptAt time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item.Status = QueueStatusPending
	item.Attempts++
	item.LastError = err.Error()
	item.NextAttemptAt = nextAttemptAt
}

// MarkFailed marks the item permanently failed and drops it.
func (q *Queue) MarkFailed(item *QueueItem, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item.Status = QueueStatusFailed
	item.LastError = err.Error()
	q.removeLocked(item.ID)
	recordQueueSize(q.statsLocked())
}

// Stats returns current queue counts.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statsLocked()
}

func (q *Queue) statsLocked() QueueStats {
	var stats QueueStats
	for _, item := range q.items {
		switch item.Status {
		case QueueStatusPending:
			stats.Pending++
		case QueueStatusProcessing:
			stats.Processing++
		case QueueStatusSent:
			stats.Sent++
		case QueueStatusFailed:
			stats.Failed++
		}
	}
	return stats
}

func (q *Queue) removeLocked(id string) {
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}
