package sla

import (
	"time"

	"github.com/opsledger/lifecycle-service/internal/domain"
)

// Calculator computes ticket due timestamps from a tenant policy and an anchor.
type Calculator struct {
	policies *Table
}

// NewCalculator builds a calculator over policies. A nil table uses defaults.
func NewCalculator(policies *Table) *Calculator {
	return &Calculator{policies: policies}
}

// ComputeDeadlines returns the response and resolution due times for the ticket's
// priority measured from anchor: created_at on creation, the change instant on a
// priority change.
func (c *Calculator) ComputeDeadlines(ticket *domain.Ticket, anchor time.Time) (time.Time, time.Time, error) {
	policy := c.policies.For(ticket.OrgID)
	response, err := policy.ResponseTarget(ticket.Priority)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	resolution, err := policy.ResolutionTarget(ticket.Priority)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return anchor.Add(response), anchor.Add(resolution), nil
}

// ApplyPriorityChange recomputes only the deadlines that are still pending: the
// response deadline while no first response exists and the resolution deadline
// while the ticket is not resolved or closed. It reports whether anything changed.
func (c *Calculator) ApplyPriorityChange(ticket *domain.Ticket, now time.Time) (bool, error) {
	responseDue, resolutionDue, err := c.ComputeDeadlines(ticket, now)
	if err != nil {
		return false, err
	}
	changed := false
	if ticket.FirstResponseAt == nil {
		ticket.SLAResponseDueAt = responseDue
		changed = true
	}
	if !ticket.IsSettled() {
		ticket.SLAResolutionDueAt = resolutionDue
		changed = true
	}
	return changed, nil
}
