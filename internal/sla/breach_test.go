package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/lifecycle-service/internal/clock"
	"github.com/opsledger/lifecycle-service/internal/domain"
)

func scheduledTicket(id string, priority domain.TicketPriority, created time.Time) domain.Ticket {
	ticket := domain.Ticket{
		Meta:     domain.Meta{ID: id, OrgID: "org-1", CreatedAt: created},
		Status:   domain.TicketStatusOpen,
		Priority: priority,
	}
	ticket.SLAResponseDueAt, ticket.SLAResolutionDueAt, _ = NewCalculator(nil).ComputeDeadlines(&ticket, created)
	return ticket
}

func TestResponseBreachScenario(t *testing.T) {
	ticket := scheduledTicket("t-1", domain.TicketPriorityUrgent, t0)
	assert.Equal(t, t0.Add(time.Hour), ticket.SLAResponseDueAt)

	assert.False(t, IsResponseBreached(&ticket, t0))
	assert.False(t, IsResponseBreached(&ticket, t0.Add(time.Hour)))
	assert.True(t, IsResponseBreached(&ticket, t0.Add(time.Hour+time.Nanosecond)))
	assert.True(t, IsResponseBreached(&ticket, t0.Add(time.Hour+time.Second)))

	responded := t0.Add(30 * time.Minute)
	ticket.FirstResponseAt = &responded
	assert.False(t, IsResponseBreached(&ticket, t0.Add(2*time.Hour)))
}

func TestResolutionBreach(t *testing.T) {
	ticket := scheduledTicket("t-1", domain.TicketPriorityUrgent, t0)
	late := t0.Add(4*time.Hour + time.Second)
	assert.True(t, IsResolutionBreached(&ticket, late))

	ticket.Status = domain.TicketStatusWaiting
	assert.True(t, IsResolutionBreached(&ticket, late))

	ticket.Status = domain.TicketStatusResolved
	assert.False(t, IsResolutionBreached(&ticket, late))

	ticket.Status = domain.TicketStatusClosed
	assert.False(t, IsResolutionBreached(&ticket, late))
}

func TestRefreshSnapshot(t *testing.T) {
	ticket := scheduledTicket("t-1", domain.TicketPriorityHigh, t0)
	ticket.IsSLAResponseBreached = true
	Refresh(&ticket, t0)
	assert.False(t, ticket.IsSLAResponseBreached)
	assert.False(t, ticket.IsSLAResolutionBreached)

	Refresh(&ticket, t0.Add(17*time.Hour))
	assert.True(t, ticket.IsSLAResponseBreached)
	assert.True(t, ticket.IsSLAResolutionBreached)
}

func TestAtRisk(t *testing.T) {
	now := t0.Add(30 * time.Minute)
	urgentB := scheduledTicket("b", domain.TicketPriorityUrgent, t0)
	urgentA := scheduledTicket("a", domain.TicketPriorityUrgent, t0)
	high := scheduledTicket("c", domain.TicketPriorityHigh, t0)
	low := scheduledTicket("d", domain.TicketPriorityLow, t0)
	breached := scheduledTicket("e", domain.TicketPriorityUrgent, t0.Add(-2*time.Hour))
	resolved := scheduledTicket("f", domain.TicketPriorityUrgent, t0)
	resolved.Status = domain.TicketStatusResolved
	responded := scheduledTicket("g", domain.TicketPriorityUrgent, t0)
	respondedAt := t0.Add(5 * time.Minute)
	responded.FirstResponseAt = &respondedAt

	tickets := []domain.Ticket{low, high, urgentB, breached, resolved, urgentA, responded}
	got := AtRisk(tickets, now, 4*time.Hour)

	ids := make([]string, 0, len(got))
	for _, entry := range got {
		ids = append(ids, entry.Ticket.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "g"}, ids)
	assert.Equal(t, DeadlineResponse, got[0].Deadline)
	assert.Equal(t, t0.Add(time.Hour), got[0].DueAt)
	assert.Equal(t, DeadlineResponse, got[2].Deadline)
	assert.Equal(t, DeadlineResolution, got[3].Deadline)
	assert.Equal(t, t0.Add(4*time.Hour), got[3].DueAt)
}

func TestAtRiskEmpty(t *testing.T) {
	got := AtRisk(nil, t0, time.Hour)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMonitor(t *testing.T) {
	c := clock.NewManual(t0)
	m := NewMonitor(c)
	ticket := scheduledTicket("t-1", domain.TicketPriorityUrgent, t0)

	assert.Empty(t, m.Breaches(&ticket))
	assert.Len(t, m.AtRisk([]domain.Ticket{ticket}, 2*time.Hour), 1)

	c.Advance(time.Hour + time.Second)
	assert.Equal(t, []DeadlineKind{DeadlineResponse}, m.Breaches(&ticket))
	assert.Empty(t, m.AtRisk([]domain.Ticket{ticket}, 2*time.Hour))

	c.Advance(3 * time.Hour)
	m.Refresh(&ticket)
	assert.True(t, ticket.IsSLAResolutionBreached)
	assert.Equal(t, []DeadlineKind{DeadlineResponse, DeadlineResolution}, m.Breaches(&ticket))
}
