package dto

import (
	"time"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// PriorityChangeRequest payload for POST /tickets/:id/priority.
type PriorityChangeRequest struct {
	Priority        string `json:"priority"`
	ExpectedVersion int64  `json:"expected_version"`
}

// FirstResponseRequest payload for POST /tickets/:id/response.
type FirstResponseRequest struct {
	ExpectedVersion int64 `json:"expected_version"`
}

// TicketResponse body. The breach flags are computed at read time.
type TicketResponse struct {
	Meta
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	Status                  string     `json:"status"`
	Priority                string     `json:"priority"`
	SLAResponseDueAt        time.Time  `json:"sla_response_due_at"`
	SLAResolutionDueAt      time.Time  `json:"sla_resolution_due_at"`
	FirstResponseAt         *time.Time `json:"first_response_at,omitempty"`
	ResolvedAt              *time.Time `json:"resolved_at,omitempty"`
	ClosedAt                *time.Time `json:"closed_at,omitempty"`
	IsSLAResponseBreached   bool       `json:"is_sla_response_breached"`
	IsSLAResolutionBreached bool       `json:"is_sla_resolution_breached"`
}

// AtRiskTicket is one entry of GET /tickets/at-risk.
type AtRiskTicket struct {
	Ticket   TicketResponse `json:"ticket"`
	Deadline string         `json:"deadline"`
	DueAt    time.Time      `json:"due_at"`
}
