package sla

import (
	"sort"
	"time"

	"github.com/opsledger/lifecycle-service/internal/clock"
	"github.com/opsledger/lifecycle-service/internal/domain"
)

// DeadlineKind names one of the two SLA milestones.
type DeadlineKind string

const (
	DeadlineResponse   DeadlineKind = "response"
	DeadlineResolution DeadlineKind = "resolution"
)

// IsResponseBreached is true when no first response exists and now is past the response deadline.
func IsResponseBreached(t *domain.Ticket, now time.Time) bool {
	return t.FirstResponseAt == nil && now.After(t.SLAResponseDueAt)
}

// IsResolutionBreached is true when the ticket is neither resolved nor closed and
// now is past the resolution deadline.
func IsResolutionBreached(t *domain.Ticket, now time.Time) bool {
	return !t.IsSettled() && now.After(t.SLAResolutionDueAt)
}

// Refresh writes the read-time breach snapshot onto t.
func Refresh(t *domain.Ticket, now time.Time) {
	t.IsSLAResponseBreached = IsResponseBreached(t, now)
	t.IsSLAResolutionBreached = IsResolutionBreached(t, now)
}

// NextDeadline returns the nearest pending deadline of an open ticket. ok is false
// when the ticket is settled, has no pending deadline, or has breached any deadline.
func NextDeadline(t *domain.Ticket, now time.Time) (time.Time, DeadlineKind, bool) {
	if t.IsSettled() || IsResponseBreached(t, now) || IsResolutionBreached(t, now) {
		return time.Time{}, "", false
	}
	due, kind := t.SLAResolutionDueAt, DeadlineResolution
	if t.FirstResponseAt == nil && t.SLAResponseDueAt.Before(due) {
		due, kind = t.SLAResponseDueAt, DeadlineResponse
	}
	return due, kind, true
}

// AtRiskTicket pairs a ticket with the deadline that puts it at risk.
type AtRiskTicket struct {
	Ticket   domain.Ticket
	Deadline DeadlineKind
	DueAt    time.Time
}

// AtRisk returns open, un-breached tickets whose nearest deadline falls within
// window of now, nearest deadline first with ties broken by ticket id.
func AtRisk(tickets []domain.Ticket, now time.Time, window time.Duration) []AtRiskTicket {
	horizon := now.Add(window)
	out := make([]AtRiskTicket, 0)
	for i := range tickets {
		due, kind, ok := NextDeadline(&tickets[i], now)
		if !ok || due.After(horizon) {
			continue
		}
		ticket := tickets[i]
		Refresh(&ticket, now)
		out = append(out, AtRiskTicket{Ticket: ticket, Deadline: kind, DueAt: due})
	}
	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].DueAt.Equal(out[b].DueAt) {
			return out[a].DueAt.Before(out[b].DueAt)
		}
		return out[a].Ticket.ID < out[b].Ticket.ID
	})
	return out
}

// Monitor binds the breach functions to a clock.
type Monitor struct {
	clock clock.Clock
}

// NewMonitor builds a monitor reading time from c.
func NewMonitor(c clock.Clock) *Monitor {
	return &Monitor{clock: c}
}

// Refresh stamps the current breach snapshot onto t.
func (m *Monitor) Refresh(t *domain.Ticket) {
	Refresh(t, m.clock.Now())
}

// AtRisk filters tickets against the monitor's clock.
func (m *Monitor) AtRisk(tickets []domain.Ticket, window time.Duration) []AtRiskTicket {
	return AtRisk(tickets, m.clock.Now(), window)
}

// Breaches returns the deadline kinds t has breached at the monitor's clock.
func (m *Monitor) Breaches(t *domain.Ticket) []DeadlineKind {
	now := m.clock.Now()
	var out []DeadlineKind
	if IsResponseBreached(t, now) {
		out = append(out, DeadlineResponse)
	}
	if IsResolutionBreached(t, now) {
		out = append(out, DeadlineResolution)
	}
	return out
}
