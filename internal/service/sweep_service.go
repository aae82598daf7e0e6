package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/events"
	"github.com/opsledger/lifecycle-service/internal/observability"
	"github.com/opsledger/lifecycle-service/internal/sla"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

const (
	overdueJob    = "overdue_sweep"
	slaBreachJob  = "sla_breach_sweep"
	sweepPageSize = 500

	openTicketPageSize = 500
)

// Breach is one missed SLA deadline found by a sweep.
type Breach struct {
	Ticket   domain.Ticket
	Deadline sla.DeadlineKind
	DueAt    time.Time
}

// BreachScan is the outcome of one pass over open tickets.
type BreachScan struct {
	Breaches []Breach
	AtRisk   int
}

// SweepOverdue moves sent and partially paid invoices past their due date to
// overdue through the regular transition path, acting as the system. Invoices
// that changed concurrently are skipped and picked up by the next sweep.
func (s *LifecycleService) SweepOverdue(ctx context.Context) (int, error) {
	invoices, err := s.store.Invoices().ListPastDue(ctx, s.clock.Now(), sweepPageSize)
	if err != nil {
		s.metrics.RecordSweep(overdueJob, err)
		return 0, apperrors.NewInternalError(err)
	}

	moved := 0
	for _, inv := range invoices {
		caller := SystemCaller(inv.OrgID, overdueJob)
		updated, err := s.ChangeInvoiceStatus(ctx, caller, inv.ID, StatusChangeInput{
			Status:          string(domain.InvoiceStatusOverdue),
			ExpectedVersion: inv.Version,
		})
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeConcurrencyConflict) || apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
				s.logger.Debug("overdue sweep skipped invoice",
					append(observability.EntityFields(string(domain.KindInvoice), inv.ID, inv.OrgID), zap.Error(err))...)
				continue
			}
			s.metrics.RecordSweep(overdueJob, err)
			return moved, err
		}
		moved++
		s.publish(ctx, s.event(events.EventInvoiceOverdue, caller, updated, updated.UpdatedAt, events.InvoiceOverduePayload{
			DueAt:      *inv.DueAt,
			BalanceDue: updated.BalanceDue,
		}))
	}
	s.metrics.RecordSweep(overdueJob, nil)
	if moved > 0 {
		s.logger.Info("overdue sweep finished", zap.Int("moved", moved))
	}
	return moved, nil
}

// ScanBreaches evaluates every open ticket across tenants against the clock. It
// is read-only; a ticket that breaches mid-scan is picked up by the next scan.
func (s *LifecycleService) ScanBreaches(ctx context.Context, window time.Duration) (BreachScan, error) {
	tickets, err := s.openTickets(ctx, "")
	if err != nil {
		s.metrics.RecordSweep(slaBreachJob, err)
		return BreachScan{}, apperrors.NewInternalError(err)
	}

	scan := BreachScan{Breaches: []Breach{}}
	for i := range tickets {
		t := &tickets[i]
		for _, kind := range s.monitor.Breaches(t) {
			due := t.SLAResponseDueAt
			if kind == sla.DeadlineResolution {
				due = t.SLAResolutionDueAt
			}
			s.monitor.Refresh(t)
			scan.Breaches = append(scan.Breaches, Breach{Ticket: *t, Deadline: kind, DueAt: due})
		}
	}
	scan.AtRisk = len(s.monitor.AtRisk(tickets, window))
	s.metrics.SetAtRisk(scan.AtRisk)
	s.metrics.RecordSweep(slaBreachJob, nil)
	return scan, nil
}

// PublishBreach emits the breach event for a ticket deadline.
func (s *LifecycleService) PublishBreach(ctx context.Context, breach Breach) {
	caller := SystemCaller(breach.Ticket.OrgID, slaBreachJob)
	s.metrics.RecordBreach(string(breach.Deadline))
	s.logger.Warn("sla breached", append(
		observability.EntityFields(string(domain.KindTicket), breach.Ticket.ID, breach.Ticket.OrgID),
		zap.String("deadline", string(breach.Deadline)),
		zap.Time("due_at", breach.DueAt),
	)...)
	s.publish(ctx, s.event(events.EventSLABreached, caller, &breach.Ticket, s.clock.Now(), events.SLABreachedPayload{
		Deadline: string(breach.Deadline),
		DueAt:    breach.DueAt,
		Priority: breach.Ticket.Priority,
	}))
}
