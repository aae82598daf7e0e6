package events

import (
	"time"

	"github.com/opsledger/lifecycle-service/internal/domain"
)

// EventType enumerates supported event identifiers. The value doubles as the
// broker routing key.
type EventType string

const (
	EventEntityCreated         EventType = "entity.created"
	EventStatusChanged         EventType = "entity.status_changed"
	EventTicketPriorityChanged EventType = "ticket.priority_changed"
	EventTicketFirstResponse   EventType = "ticket.first_response"
	EventPaymentRecorded       EventType = "invoice.payment_recorded"
	EventInvoiceOverdue        EventType = "invoice.overdue"
	EventWorkflowExecuted      EventType = "workflow.executed"
	EventSLABreached           EventType = "ticket.sla_breached"
)

// AllEventTypes lists every event the lifecycle engine emits.
var AllEventTypes = []EventType{
	EventEntityCreated,
	EventStatusChanged,
	EventTicketPriorityChanged,
	EventTicketFirstResponse,
	EventPaymentRecorded,
	EventInvoiceOverdue,
	EventWorkflowExecuted,
	EventSLABreached,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.ActorType `json:"type"`
	ID   string           `json:"id,omitempty"`
}

// Event represents a domain event emitted after a committed mutation.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	OrgID      string            `json:"org_id"`
	EntityKind domain.EntityKind `json:"entity_kind"`
	EntityID   string            `json:"entity_id"`
	Actor      Actor             `json:"actor"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    any               `json:"payload"`
}

// EntityCreatedPayload payload.
type EntityCreatedPayload struct {
	Status string `json:"status"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Version   int64  `json:"version"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority        domain.TicketPriority `json:"old_priority"`
	NewPriority        domain.TicketPriority `json:"new_priority"`
	SLAResponseDueAt   time.Time             `json:"sla_response_due_at"`
	SLAResolutionDueAt time.Time             `json:"sla_resolution_due_at"`
}

// TicketFirstResponsePayload payload.
type TicketFirstResponsePayload struct {
	FirstResponseAt time.Time `json:"first_response_at"`
	WasBreached     bool      `json:"was_breached"`
}

// PaymentRecordedPayload payload. Amounts are minor currency units.
type PaymentRecordedPayload struct {
	Amount     int64                `json:"amount"`
	Currency   string               `json:"currency"`
	AmountPaid int64                `json:"amount_paid"`
	BalanceDue int64                `json:"balance_due"`
	Status     domain.InvoiceStatus `json:"status"`
}

// InvoiceOverduePayload payload.
type InvoiceOverduePayload struct {
	DueAt      time.Time `json:"due_at"`
	BalanceDue int64     `json:"balance_due"`
}

// WorkflowExecutedPayload payload.
type WorkflowExecutedPayload struct {
	ExecutionID         string                 `json:"execution_id"`
	ExternalExecutionID string                 `json:"external_execution_id,omitempty"`
	Status              domain.ExecutionStatus `json:"status"`
	DurationMs          int64                  `json:"duration_ms"`
	ExecutionCount      int64                  `json:"execution_count"`
	SuccessRate         float64                `json:"success_rate"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Deadline string                `json:"deadline"`
	DueAt    time.Time             `json:"due_at"`
	Priority domain.TicketPriority `json:"priority"`
}
