package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusWaiting    TicketStatus = "waiting"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists priorities from most to least urgent.
var TicketPriorities = []TicketPriority{TicketPriorityUrgent, TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. The breach flags are a read-time
// snapshot and are never loaded from storage.
type Ticket struct {
	Meta
	Title                   string
	Description             string
	Status                  TicketStatus
	Priority                TicketPriority
	SLAResponseDueAt        time.Time
	SLAResolutionDueAt      time.Time
	FirstResponseAt         *time.Time
	ResolvedAt              *time.Time
	ClosedAt                *time.Time
	IsSLAResponseBreached   bool
	IsSLAResolutionBreached bool
}

func (t *Ticket) Kind() EntityKind      { return KindTicket }
func (t *Ticket) Base() *Meta           { return &t.Meta }
func (t *Ticket) CurrentStatus() string { return string(t.Status) }

// IsSettled reports whether the ticket has reached resolved or closed.
func (t *Ticket) IsSettled() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}
