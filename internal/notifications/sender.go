package notifications

import "context"

// Sender delivers a rendered notification to one sink type.
type Sender interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	Send(ctx context.Context, notification Notification) error
}

// retryable is implemented by sender errors that may succeed on retry.
type retryable interface {
	IsRetryable() bool
}

// isRetryable reports whether a send error is worth retrying. Unknown
// errors are treated as retryable.
func isRetryable(err error) bool {
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}
	return true
}
