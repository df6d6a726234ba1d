package events

import (
	"time"

	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
	"github.com/PicoRmin/TicketingBot-sub000/internal/sla"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventSLAAlert            EventType = "sla_alert"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	DepartmentID string                `json:"department_id"`
	Category     string                `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string                   `json:"message_id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorType  domain.MessageAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id,omitempty"`
	BodyPreview string                   `json:"body_preview"`
}

// SLAAlertPayload wraps one evaluator alert for delivery. Alerts are
// ephemeral: nothing is stored, a failed delivery is lost.
type SLAAlertPayload struct {
	Kind      sla.AlertKind `json:"kind"`
	RuleID    string        `json:"rule_id"`
	RuleName  string        `json:"rule_name"`
	Remaining time.Duration `json:"remaining,omitempty"`
	Overdue   time.Duration `json:"overdue,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
}

// NewSLAAlertEvent builds the event for one evaluator alert.
func NewSLAAlertEvent(alert sla.Alert) Event {
	return Event{
		Type:     EventSLAAlert,
		TicketID: alert.TicketID,
		Payload: SLAAlertPayload{
			Kind:      alert.Kind,
			RuleID:    alert.RuleID,
			RuleName:  alert.RuleName,
			Remaining: alert.Remaining,
			Overdue:   alert.Overdue,
			Elapsed:   alert.Elapsed,
		},
	}
}
