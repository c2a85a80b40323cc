package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WorkerConfig contains worker configuration.
type WorkerConfig struct {
	BatchSize         int
	PollInterval      time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	NumWorkers        int
}

// DefaultWorkerConfig returns default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:         50,
		PollInterval:      2 * time.Second,
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        1 * time.Minute,
		BackoffMultiplier: 2.0,
		NumWorkers:        2,
	}
}

// Worker drains the queue and delivers items to senders.
type Worker struct {
	config  WorkerConfig
	queue   *Queue
	senders map[string]Sender

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker creates a new delivery worker.
func NewWorker(config WorkerConfig, queue *Queue, senders ...Sender) *Worker {
	senderMap := make(map[string]Sender, len(senders))
	for _, s := range senders {
		senderMap[s.Name()] = s
	}
	return &Worker{
		config:  config,
		queue:   queue,
		senders: senderMap,
		stopCh:  make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting notification worker",
		"workers", w.config.NumWorkers,
		"poll_interval", w.config.PollInterval,
	)

	for i := 0; i < w.config.NumWorkers; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	slog.Info("notification worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) {
	items := w.queue.FetchDue(w.config.BatchSize)
	for _, item := range items {
		w.processItem(ctx, item)
	}
}

func (w *Worker) processItem(ctx context.Context, item *QueueItem) {
	sender, ok := w.senders[item.Sender]
	if !ok {
		slog.Warn("no sender for queue item", "sender", item.Sender)
		w.queue.MarkFailed(item, errUnknownSender)
		recordNotificationSent(item.Sender, "failed")
		return
	}

	start := time.Now()
	err := sender.Send(ctx, Notification{
		Title: item.Event.Title(),
		Text:  item.Event.Text(),
	})
	recordNotificationDuration(item.Sender, time.Since(start))

	if err == nil {
		w.queue.MarkSent(item)
		recordNotificationSent(item.Sender, "sent")
		return
	}

	if !isRetryable(err) || item.Attempts+1 >= w.config.MaxAttempts {
		slog.Error("notification delivery failed permanently",
			"sender", item.Sender,
			"incident_id", item.Event.IncidentID,
			"attempts", item.Attempts+1,
			"error", err,
		)
		w.queue.MarkFailed(item, err)
		recordNotificationSent(item.Sender, "failed")
		return
	}

	backoff := w.backoff(item.Attempts)
	slog.Warn("notification delivery failed, will retry",
		"sender", item.Sender,
		"incident_id", item.Event.IncidentID,
		"attempt", item.Attempts+1,
		"backoff", backoff,
		"error", err,
	)
	w.queue.MarkRetry(item, err, time.Now().Add(backoff))
	recordNotificationSent(item.Sender, "retried")
}

// backoff computes the exponential delay before the next attempt.
func (w *Worker) backoff(attempts int) time.Duration {
	backoff := w.config.InitialBackoff
	for i := 0; i < attempts; i++ {
		backoff = time.Duration(float64(backoff) * w.config.BackoffMultiplier)
		if backoff >= w.config.MaxBackoff {
			return w.config.MaxBackoff
		}
	}
	return backoff
}
