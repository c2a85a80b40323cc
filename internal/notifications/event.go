// Package notifications delivers incident change events to external
// sinks. Delivery is fire-and-forget from the caller's point of view:
// events are queued in memory and drained by a worker pool, and a
// delivery failure never affects the state change that produced it.
package notifications

import (
	"fmt"
	"time"

	"github.com/oncallhq/incident-deck/internal/domain"
)

// MessageType defines the kind of change an event describes.
type MessageType string

// Message types.
const (
	MessageTypeResponseFiled  MessageType = "response_filed"
	MessageTypeResolved       MessageType = "resolved"
	MessageTypeClosed         MessageType = "closed"
	MessageTypeStatusOverride MessageType = "status_override"
)

// Event describes a completed incident change for delivery to sinks.
type Event struct {
	MessageType MessageType           `json:"message_type"`
	IncidentID  int64                 `json:"incident_id"`
	OldStatus   domain.IncidentStatus `json:"old_status"`
	NewStatus   domain.IncidentStatus `json:"new_status"`
	Content     string                `json:"content,omitempty"`
	Responder   string                `json:"responder,omitempty"`
	OccurredAt  time.Time             `json:"occurred_at"`
}

// Title returns the notification title for the event.
func (e Event) Title() string {
	switch e.MessageType {
	case MessageTypeResponseFiled:
		return fmt.Sprintf("Incident #%d: response filed", e.IncidentID)
	case MessageTypeResolved:
		return fmt.Sprintf("Incident #%d resolved", e.IncidentID)
	case MessageTypeClosed:
		return fmt.Sprintf("Incident #%d closed", e.IncidentID)
	case MessageTypeStatusOverride:
		return fmt.Sprintf("Incident #%d: status changed", e.IncidentID)
	}
	return fmt.Sprintf("Incident #%d updated", e.IncidentID)
}

// Text returns the notification body for the event.
func (e Event) Text() string {
	text := fmt.Sprintf("Status: %s -> %s", e.OldStatus, e.NewStatus)
	if e.Responder != "" {
		text += fmt.Sprintf("\nResponder: %s", e.Responder)
	}
	if e.Content != "" {
		text += fmt.Sprintf("\n\n%s", e.Content)
	}
	return text
}

// Notification is the rendered message handed to a sender.
type Notification struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}
