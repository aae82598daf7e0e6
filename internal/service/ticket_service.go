package service

import (
	"context"
	"strings"
	"time"

	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/events"
	"github.com/opsledger/lifecycle-service/internal/repository"
	"github.com/opsledger/lifecycle-service/internal/sla"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// PriorityChangeInput requests a new ticket priority.
type PriorityChangeInput struct {
	Priority        domain.TicketPriority
	ExpectedVersion int64
}

// CreateTicket stores a new open ticket with deadlines anchored at creation.
func (s *LifecycleService) CreateTicket(ctx context.Context, caller Caller, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, s.reject(domain.KindTicket, apperrors.NewValidationError("title is required", nil))
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, s.reject(domain.KindTicket, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority}))
	}

	ticket := &domain.Ticket{
		Meta:        newMeta(caller.OrgID, s.clock.Now()),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
	}
	responseDue, resolutionDue, err := s.calculator.ComputeDeadlines(ticket, ticket.CreatedAt)
	if err != nil {
		return nil, s.reject(domain.KindTicket, err)
	}
	ticket.SLAResponseDueAt = responseDue
	ticket.SLAResolutionDueAt = resolutionDue

	var pending []events.Event
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return saveError(domain.KindTicket, ticket.ID, err)
		}
		ev, err := s.recordCreated(ctx, tx, caller, ticket)
		if err != nil {
			return err
		}
		pending = append(pending, ev)
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindTicket, err)
	}
	s.monitor.Refresh(ticket)
	s.publish(ctx, pending...)
	return ticket, nil
}

// GetTicket loads a ticket within the caller's tenant with fresh breach flags.
func (s *LifecycleService) GetTicket(ctx context.Context, caller Caller, id string) (*domain.Ticket, error) {
	entity, err := s.GetEntity(ctx, caller, domain.KindTicket, id)
	if err != nil {
		return nil, err
	}
	return entity.(*domain.Ticket), nil
}

// ChangeTicketStatus applies a ticket transition. The first move into
// in_progress counts as the first response; resolving and closing stamp their
// times once; reopening a resolved ticket clears resolved_at.
func (s *LifecycleService) ChangeTicketStatus(ctx context.Context, caller Caller, id string, input StatusChangeInput) (*domain.Ticket, error) {
	var (
		out     *domain.Ticket
		pending []events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, id)
		if err != nil {
			return loadError(domain.KindTicket, id, err)
		}
		noop, err := prepareTransition(caller, ticket, input)
		if err != nil {
			return err
		}
		out = ticket
		if noop {
			return nil
		}

		now := s.clock.Now()
		from := string(ticket.Status)
		responded := applyTicketStatus(ticket, domain.TicketStatus(input.Status), now)
		ticket.UpdatedAt = now
		if err := tx.Tickets().Update(ctx, ticket, ticket.Version); err != nil {
			return saveError(domain.KindTicket, id, err)
		}
		if responded {
			ev, err := s.recordFirstResponse(ctx, tx, caller, ticket, now)
			if err != nil {
				return err
			}
			pending = append(pending, ev)
		}
		ev, err := s.recordStatusChange(ctx, tx, caller, ticket, from, now)
		if err != nil {
			return err
		}
		pending = append(pending, ev)
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindTicket, err)
	}
	s.monitor.Refresh(out)
	s.publish(ctx, pending...)
	return out, nil
}

// applyTicketStatus mutates t for the transition and reports whether it set the
// first response.
func applyTicketStatus(t *domain.Ticket, to domain.TicketStatus, now time.Time) bool {
	from := t.Status
	t.Status = to
	responded := false
	switch to {
	case domain.TicketStatusInProgress:
		if t.FirstResponseAt == nil {
			setOnce(&t.FirstResponseAt, now)
			responded = true
		}
		if from == domain.TicketStatusResolved {
			t.ResolvedAt = nil
		}
	case domain.TicketStatusResolved:
		setOnce(&t.ResolvedAt, now)
	case domain.TicketStatusClosed:
		setOnce(&t.ClosedAt, now)
	}
	return responded
}

// UpdatePriority changes a ticket's priority and recomputes the still-pending
// deadlines from the change instant.
func (s *LifecycleService) UpdatePriority(ctx context.Context, caller Caller, id string, input PriorityChangeInput) (*domain.Ticket, error) {
	if !input.Priority.Valid() {
		return nil, s.reject(domain.KindTicket, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority}))
	}
	var (
		out     *domain.Ticket
		pending []events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, id)
		if err != nil {
			return loadError(domain.KindTicket, id, err)
		}
		if err := authorize(caller, ticket); err != nil {
			return err
		}
		if err := checkVersion(ticket, input.ExpectedVersion); err != nil {
			return err
		}
		out = ticket
		if ticket.Priority == input.Priority {
			return nil
		}

		now := s.clock.Now()
		old := ticket.Priority
		oldResponseDue, oldResolutionDue := ticket.SLAResponseDueAt, ticket.SLAResolutionDueAt
		ticket.Priority = input.Priority
		if _, err := s.calculator.ApplyPriorityChange(ticket, now); err != nil {
			return err
		}
		ticket.UpdatedAt = now
		if err := tx.Tickets().Update(ctx, ticket, ticket.Version); err != nil {
			return saveError(domain.KindTicket, id, err)
		}
		err = s.writeHistory(ctx, tx, caller, ticket, domain.ChangeTypePriority,
			map[string]any{"priority": old, "sla_response_due_at": oldResponseDue, "sla_resolution_due_at": oldResolutionDue},
			map[string]any{"priority": ticket.Priority, "sla_response_due_at": ticket.SLAResponseDueAt, "sla_resolution_due_at": ticket.SLAResolutionDueAt},
			now)
		if err != nil {
			return err
		}
		pending = append(pending, s.event(events.EventTicketPriorityChanged, caller, ticket, now, events.TicketPriorityChangedPayload{
			OldPriority:        old,
			NewPriority:        ticket.Priority,
			SLAResponseDueAt:   ticket.SLAResponseDueAt,
			SLAResolutionDueAt: ticket.SLAResolutionDueAt,
		}))
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindTicket, err)
	}
	s.monitor.Refresh(out)
	s.publish(ctx, pending...)
	return out, nil
}

// RecordFirstResponse stamps first_response_at without a status change, e.g.
// for an agent reply. A ticket that already has a first response is returned as is.
func (s *LifecycleService) RecordFirstResponse(ctx context.Context, caller Caller, id string, expectedVersion int64) (*domain.Ticket, error) {
	var (
		out     *domain.Ticket
		pending []events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, id)
		if err != nil {
			return loadError(domain.KindTicket, id, err)
		}
		if err := authorize(caller, ticket); err != nil {
			return err
		}
		if err := checkVersion(ticket, expectedVersion); err != nil {
			return err
		}
		out = ticket
		if ticket.FirstResponseAt != nil {
			return nil
		}

		now := s.clock.Now()
		setOnce(&ticket.FirstResponseAt, now)
		ticket.UpdatedAt = now
		if err := tx.Tickets().Update(ctx, ticket, ticket.Version); err != nil {
			return saveError(domain.KindTicket, id, err)
		}
		ev, err := s.recordFirstResponse(ctx, tx, caller, ticket, now)
		if err != nil {
			return err
		}
		pending = append(pending, ev)
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindTicket, err)
	}
	s.monitor.Refresh(out)
	s.publish(ctx, pending...)
	return out, nil
}

func (s *LifecycleService) recordFirstResponse(ctx context.Context, tx repository.Store, caller Caller, ticket *domain.Ticket, at time.Time) (events.Event, error) {
	late := at.After(ticket.SLAResponseDueAt)
	err := s.writeHistory(ctx, tx, caller, ticket, domain.ChangeTypeResponse,
		nil, map[string]any{"first_response_at": at, "late": late}, at)
	if err != nil {
		return events.Event{}, err
	}
	return s.event(events.EventTicketFirstResponse, caller, ticket, at, events.TicketFirstResponsePayload{
		FirstResponseAt: at,
		WasBreached:     late,
	}), nil
}

// AtRisk lists the caller's open tickets whose nearest un-breached deadline falls
// within window, nearest first.
func (s *LifecycleService) AtRisk(ctx context.Context, caller Caller, window time.Duration) ([]sla.AtRiskTicket, error) {
	if window < 0 {
		return nil, apperrors.NewValidationError("window must not be negative", nil)
	}
	if caller.OrgID == "" {
		return nil, apperrors.NewForbidden("access denied")
	}
	tickets, err := s.openTickets(ctx, caller.OrgID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return s.monitor.AtRisk(tickets, window), nil
}

// openTickets pages through every open ticket of orgID, or of all tenants when
// orgID is empty.
func (s *LifecycleService) openTickets(ctx context.Context, orgID string) ([]domain.Ticket, error) {
	var all []domain.Ticket
	filter := repository.TicketFilter{OrgID: orgID, Limit: openTicketPageSize}
	for {
		page, err := s.store.Tickets().ListOpen(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < filter.Limit {
			return all, nil
		}
		filter.AfterID = page[len(page)-1].ID
	}
}
