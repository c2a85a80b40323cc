package notifications

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oncallhq/incident-deck/internal/domain"
	"github.com/oncallhq/incident-deck/internal/incidents"
)

var errUnknownSender = errors.New("unknown sender")

// Notifier implements incidents.ChangeNotifier by enqueueing one delivery
// per configured sender. The queue decouples the transition operation
// from delivery so a slow or failing sink never blocks the caller.
type Notifier struct {
	queue   *Queue
	senders []string
}

// NewNotifier creates a Notifier fanning out to the given senders.
func NewNotifier(queue *Queue, senders ...Sender) *Notifier {
	names := make([]string, len(senders))
	for i, s := range senders {
		names[i] = s.Name()
	}
	return &Notifier{queue: queue, senders: names}
}

// OnIncidentChanged enqueues the change event for delivery.
func (n *Notifier) OnIncidentChanged(_ context.Context, change incidents.StatusChange) error {
	event := Event{
		MessageType: classify(change),
		IncidentID:  change.Incident.ID,
		OldStatus:   change.OldStatus,
		NewStatus:   change.NewStatus,
		Responder:   change.Actor,
		OccurredAt:  change.OccurredAt,
	}
	if change.Response != nil {
		event.Content = change.Response.Content
	}

	for _, sender := range n.senders {
		n.queue.Enqueue(sender, event)
	}

	slog.Debug("change event enqueued",
		"incident_id", event.IncidentID,
		"message_type", event.MessageType,
		"senders", len(n.senders),
	)
	return nil
}

func classify(change incidents.StatusChange) MessageType {
	switch {
	case change.Response == nil:
		return MessageTypeStatusOverride
	case change.NewStatus == domain.IncidentStatusClosed:
		return MessageTypeClosed
	case change.NewStatus == domain.IncidentStatusResolved:
		return MessageTypeResolved
	default:
		return MessageTypeResponseFiled
	}
}
