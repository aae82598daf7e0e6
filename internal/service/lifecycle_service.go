package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsledger/lifecycle-service/internal/clock"
	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/events"
	"github.com/opsledger/lifecycle-service/internal/observability"
	"github.com/opsledger/lifecycle-service/internal/repository"
	"github.com/opsledger/lifecycle-service/internal/runner"
	"github.com/opsledger/lifecycle-service/internal/sla"
	"github.com/opsledger/lifecycle-service/internal/transition"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

// LifecycleService is the only writer of entity status, SLA deadlines, invoice
// balances and workflow counters. Every mutation runs in one store transaction
// bounded to a single entity; events are dispatched after commit.
type LifecycleService struct {
	store         repository.Store
	clock         clock.Clock
	calculator    *sla.Calculator
	monitor       *sla.Monitor
	runner        runner.Runner
	runnerTimeout time.Duration
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	Store         repository.Store
	Clock         clock.Clock
	Policies      *sla.Table
	Runner        runner.Runner
	RunnerTimeout time.Duration
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	c := deps.Clock
	if c == nil {
		c = clock.System()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.RunnerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LifecycleService{
		store:         deps.Store,
		clock:         c,
		calculator:    sla.NewCalculator(deps.Policies),
		monitor:       sla.NewMonitor(c),
		runner:        deps.Runner,
		runnerTimeout: timeout,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
	}
}

// Caller identifies the tenant and actor on whose behalf an operation runs.
type Caller struct {
	OrgID string
	Actor domain.Actor
}

// SystemCaller acts inside orgID on behalf of a background job.
func SystemCaller(orgID, job string) Caller {
	return Caller{OrgID: orgID, Actor: domain.SystemActor(job)}
}

// StatusChangeInput requests a transition. A non-zero ExpectedVersion must match
// the stored version or the call fails with a concurrency conflict.
type StatusChangeInput struct {
	Status          string
	ExpectedVersion int64
}

// ChangeStatus dispatches a status change to the engine of the given kind.
func (s *LifecycleService) ChangeStatus(ctx context.Context, caller Caller, kind domain.EntityKind, id string, input StatusChangeInput) (domain.Entity, error) {
	switch kind {
	case domain.KindProject:
		return s.ChangeProjectStatus(ctx, caller, id, input)
	case domain.KindProposal:
		return s.ChangeProposalStatus(ctx, caller, id, input)
	case domain.KindInvoice:
		return s.ChangeInvoiceStatus(ctx, caller, id, input)
	case domain.KindTicket:
		return s.ChangeTicketStatus(ctx, caller, id, input)
	case domain.KindWorkflow:
		return s.ChangeWorkflowStatus(ctx, caller, id, input)
	}
	return nil, apperrors.NewInvalidEntityKind(string(kind))
}

// GetEntity loads any entity kind scoped to the caller's tenant.
func (s *LifecycleService) GetEntity(ctx context.Context, caller Caller, kind domain.EntityKind, id string) (domain.Entity, error) {
	entity, err := s.loadEntity(ctx, s.store, kind, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, entity); err != nil {
		return nil, err
	}
	if ticket, ok := entity.(*domain.Ticket); ok {
		s.monitor.Refresh(ticket)
	}
	return entity, nil
}

// GetAvailableTransitions lists the statuses the entity may move to next, in
// table order. A terminal status yields an empty list. The current status is
// not listed, although ChangeStatus always accepts it as a no-op.
func (s *LifecycleService) GetAvailableTransitions(ctx context.Context, caller Caller, kind domain.EntityKind, id string) ([]string, error) {
	entity, err := s.GetEntity(ctx, caller, kind, id)
	if err != nil {
		return nil, err
	}
	return transition.Available(kind, entity.CurrentStatus())
}

// ListHistory returns the audit trail of an entity, oldest first.
func (s *LifecycleService) ListHistory(ctx context.Context, caller Caller, kind domain.EntityKind, id string) ([]domain.StatusHistory, error) {
	if _, err := s.GetEntity(ctx, caller, kind, id); err != nil {
		return nil, err
	}
	entries, err := s.store.History().ListByEntity(ctx, kind, id)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if entries == nil {
		entries = []domain.StatusHistory{}
	}
	return entries, nil
}

func (s *LifecycleService) loadEntity(ctx context.Context, store repository.Store, kind domain.EntityKind, id string) (domain.Entity, error) {
	var (
		entity domain.Entity
		err    error
	)
	switch kind {
	case domain.KindProject:
		entity, err = unwrapEntity(store.Projects().Get(ctx, id))
	case domain.KindProposal:
		entity, err = unwrapEntity(store.Proposals().Get(ctx, id))
	case domain.KindInvoice:
		entity, err = unwrapEntity(store.Invoices().Get(ctx, id))
	case domain.KindTicket:
		entity, err = unwrapEntity(store.Tickets().Get(ctx, id))
	case domain.KindWorkflow:
		entity, err = unwrapEntity(store.Workflows().Get(ctx, id))
	default:
		return nil, apperrors.NewInvalidEntityKind(string(kind))
	}
	if err != nil {
		return nil, loadError(kind, id, err)
	}
	return entity, nil
}

func unwrapEntity[E domain.Entity](entity E, err error) (domain.Entity, error) {
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// authorize enforces tenant isolation. The error deliberately carries no details.
func authorize(caller Caller, entity domain.Entity) error {
	if caller.OrgID == "" || entity.Base().OrgID != caller.OrgID {
		return apperrors.NewForbidden("access denied")
	}
	return nil
}

// prepareTransition runs the checks that precede every status write: tenant,
// optimistic version and transition table. noop is true for a self-transition.
func prepareTransition(caller Caller, entity domain.Entity, input StatusChangeInput) (noop bool, err error) {
	if err := authorize(caller, entity); err != nil {
		return false, err
	}
	if err := checkVersion(entity, input.ExpectedVersion); err != nil {
		return false, err
	}
	from := entity.CurrentStatus()
	if err := transition.Validate(entity.Kind(), from, input.Status); err != nil {
		return false, err
	}
	return from == input.Status, nil
}

func checkVersion(entity domain.Entity, expected int64) error {
	if expected != 0 && expected != entity.Base().Version {
		return apperrors.NewConcurrencyConflict(string(entity.Kind()), entity.Base().ID)
	}
	return nil
}

func loadError(kind domain.EntityKind, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(string(kind), map[string]any{"id": id})
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewInternalError(err)
}

func saveError(kind domain.EntityKind, id string, err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperrors.NewConcurrencyConflict(string(kind), id)
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewInternalError(err)
}

func newMeta(orgID string, now time.Time) domain.Meta {
	return domain.Meta{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *LifecycleService) writeHistory(ctx context.Context, tx repository.Store, caller Caller, entity domain.Entity, change domain.ChangeType, oldValue, newValue map[string]any, at time.Time) error {
	entry := &domain.StatusHistory{
		ID:         uuid.NewString(),
		OrgID:      entity.Base().OrgID,
		EntityKind: entity.Kind(),
		EntityID:   entity.Base().ID,
		ChangeType: change,
		ActorType:  caller.Actor.Type,
		ActorID:    caller.Actor.ID,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  at,
	}
	if err := tx.History().Create(ctx, entry); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// recordStatusChange writes the audit row of an applied transition and returns
// the event to dispatch once the transaction commits.
func (s *LifecycleService) recordStatusChange(ctx context.Context, tx repository.Store, caller Caller, entity domain.Entity, from string, at time.Time) (events.Event, error) {
	to := entity.CurrentStatus()
	err := s.writeHistory(ctx, tx, caller, entity, domain.ChangeTypeStatus,
		map[string]any{"status": from}, map[string]any{"status": to}, at)
	if err != nil {
		return events.Event{}, err
	}
	return s.event(events.EventStatusChanged, caller, entity, at, events.StatusChangedPayload{
		OldStatus: from,
		NewStatus: to,
		Version:   entity.Base().Version,
	}), nil
}

func (s *LifecycleService) recordCreated(ctx context.Context, tx repository.Store, caller Caller, entity domain.Entity) (events.Event, error) {
	at := entity.Base().CreatedAt
	err := s.writeHistory(ctx, tx, caller, entity, domain.ChangeTypeCreated,
		nil, map[string]any{"status": entity.CurrentStatus()}, at)
	if err != nil {
		return events.Event{}, err
	}
	return s.event(events.EventEntityCreated, caller, entity, at, events.EntityCreatedPayload{
		Status: entity.CurrentStatus(),
	}), nil
}

func (s *LifecycleService) event(typ events.EventType, caller Caller, entity domain.Entity, at time.Time, payload any) events.Event {
	return events.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OrgID:      entity.Base().OrgID,
		EntityKind: entity.Kind(),
		EntityID:   entity.Base().ID,
		Actor:      events.Actor{Type: caller.Actor.Type, ID: caller.Actor.ID},
		Timestamp:  at,
		Payload:    payload,
	}
}

// publish dispatches committed events. Delivery failures are logged and never
// undo the mutation.
func (s *LifecycleService) publish(ctx context.Context, pending ...events.Event) {
	for _, event := range pending {
		s.observe(event)
		if s.dispatcher == nil {
			continue
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("entity_id", event.EntityID),
				zap.Error(err))
		}
	}
}

// observe logs and counts a committed mutation.
func (s *LifecycleService) observe(event events.Event) {
	fields := observability.EntityFields(string(event.EntityKind), event.EntityID, event.OrgID)
	fields = append(fields, zap.String("actor_type", string(event.Actor.Type)))

	switch payload := event.Payload.(type) {
	case events.StatusChangedPayload:
		s.metrics.RecordTransition(string(event.EntityKind), payload.OldStatus, payload.NewStatus)
		s.logger.Info("status changed", append(fields,
			zap.String("from", payload.OldStatus),
			zap.String("to", payload.NewStatus))...)
	case events.PaymentRecordedPayload:
		s.metrics.RecordPayment(payload.Currency, payload.Amount)
		s.logger.Info("payment recorded", append(fields,
			zap.Int64("amount", payload.Amount),
			zap.Int64("balance_due", payload.BalanceDue))...)
	case events.WorkflowExecutedPayload:
		s.logger.Info("workflow executed", append(fields,
			zap.String("status", string(payload.Status)),
			zap.Int64("duration_ms", payload.DurationMs))...)
	case events.TicketPriorityChangedPayload:
		s.logger.Info("priority changed", append(fields,
			zap.String("from", string(payload.OldPriority)),
			zap.String("to", string(payload.NewPriority)))...)
	case events.EntityCreatedPayload:
		s.logger.Debug("entity created", fields...)
	}
}

// reject counts a failed mutation by error code.
func (s *LifecycleService) reject(kind domain.EntityKind, err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		s.metrics.RecordRejected(string(kind), domainErr.Code)
	} else {
		s.metrics.RecordRejected(string(kind), apperrors.CodeInternal)
	}
	return err
}
