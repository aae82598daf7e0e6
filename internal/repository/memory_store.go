package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/opsledger/lifecycle-service/internal/domain"
)

type memoryData struct {
	projects   map[string]*domain.Project
	proposals  map[string]*domain.Proposal
	invoices   map[string]*domain.Invoice
	tickets    map[string]*domain.Ticket
	workflows  map[string]*domain.WorkflowInstance
	executions []domain.WorkflowExecution
	history    []domain.StatusHistory
}

func newMemoryData() *memoryData {
	return &memoryData{
		projects:  map[string]*domain.Project{},
		proposals: map[string]*domain.Proposal{},
		invoices:  map[string]*domain.Invoice{},
		tickets:   map[string]*domain.Ticket{},
		workflows: map[string]*domain.WorkflowInstance{},
	}
}

func (d *memoryData) clone() *memoryData {
	return &memoryData{
		projects:   cloneRows(d.projects),
		proposals:  cloneRows(d.proposals),
		invoices:   cloneRows(d.invoices),
		tickets:    cloneRows(d.tickets),
		workflows:  cloneRows(d.workflows),
		executions: append([]domain.WorkflowExecution(nil), d.executions...),
		history:    append([]domain.StatusHistory(nil), d.history...),
	}
}

func cloneRows[T any](rows map[string]*T) map[string]*T {
	out := make(map[string]*T, len(rows))
	for id, row := range rows {
		cp := *row
		out[id] = &cp
	}
	return out
}

type memoryState struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *memoryData
}

// MemoryStore is an in-process Store used by tests and the CLI. Transactions are
// serialized and roll back to a snapshot when the callback fails. Writes made
// outside WithinTx are not isolated from a running transaction.
type MemoryStore struct {
	state *memoryState
	inTx  bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{data: newMemoryData()}}
}

func (s *MemoryStore) Projects() ProjectRepository {
	return &memoryProjects{memoryRows[domain.Project, *domain.Project]{s.state, func(d *memoryData) map[string]*domain.Project { return d.projects }}}
}

func (s *MemoryStore) Proposals() ProposalRepository {
	return &memoryProposals{memoryRows[domain.Proposal, *domain.Proposal]{s.state, func(d *memoryData) map[string]*domain.Proposal { return d.proposals }}}
}

func (s *MemoryStore) Invoices() InvoiceRepository {
	return &memoryInvoices{memoryRows[domain.Invoice, *domain.Invoice]{s.state, func(d *memoryData) map[string]*domain.Invoice { return d.invoices }}}
}

func (s *MemoryStore) Tickets() TicketRepository {
	return &memoryTickets{memoryRows[domain.Ticket, *domain.Ticket]{s.state, func(d *memoryData) map[string]*domain.Ticket { return d.tickets }}}
}

func (s *MemoryStore) Workflows() WorkflowRepository {
	return &memoryWorkflows{memoryRows[domain.WorkflowInstance, *domain.WorkflowInstance]{s.state, func(d *memoryData) map[string]*domain.WorkflowInstance { return d.workflows }}}
}

func (s *MemoryStore) Executions() ExecutionRepository { return &memoryExecutions{state: s.state} }
func (s *MemoryStore) History() HistoryRepository      { return &memoryHistory{state: s.state} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.state.txMu.Lock()
	defer s.state.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.state.mu.Lock()
	snapshot := s.state.data.clone()
	s.state.mu.Unlock()

	if err := fn(&MemoryStore{state: s.state, inTx: true}); err != nil {
		s.state.mu.Lock()
		s.state.data = snapshot
		s.state.mu.Unlock()
		return err
	}
	return nil
}

type record[T any] interface {
	*T
	domain.Entity
}

// memoryRows implements the CRUD shared by every versioned entity.
type memoryRows[T any, P record[T]] struct {
	state *memoryState
	rows  func(*memoryData) map[string]*T
}

func (m memoryRows[T, P]) create(e P) error {
	if err := checkPersistable(e.Kind(), e.CurrentStatus()); err != nil {
		return err
	}
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	cp := *(*T)(e)
	m.rows(m.state.data)[e.Base().ID] = &cp
	return nil
}

func (m memoryRows[T, P]) get(id string) (P, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	row, ok := m.rows(m.state.data)[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *row
	return P(&cp), nil
}

// update applies a compare-and-swap on the stored version. merge, when set, may
// copy fields from the stored row that the update must not overwrite.
func (m memoryRows[T, P]) update(e P, expectedVersion int64, merge func(stored, next P)) error {
	if err := checkPersistable(e.Kind(), e.CurrentStatus()); err != nil {
		return err
	}
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	rows := m.rows(m.state.data)
	stored, ok := rows[e.Base().ID]
	if !ok || P(stored).Base().Version != expectedVersion {
		return ErrVersionConflict
	}
	next := *(*T)(e)
	if merge != nil {
		merge(P(stored), P(&next))
	}
	P(&next).Base().Version = expectedVersion + 1
	rows[e.Base().ID] = &next
	e.Base().Version = expectedVersion + 1
	return nil
}

type memoryProjects struct {
	memoryRows[domain.Project, *domain.Project]
}

func (r *memoryProjects) Create(_ context.Context, p *domain.Project) error { return r.create(p) }
func (r *memoryProjects) Get(_ context.Context, id string) (*domain.Project, error) {
	return r.get(id)
}
func (r *memoryProjects) GetForUpdate(_ context.Context, id string) (*domain.Project, error) {
	return r.get(id)
}
func (r *memoryProjects) Update(_ context.Context, p *domain.Project, expectedVersion int64) error {
	return r.update(p, expectedVersion, nil)
}

type memoryProposals struct {
	memoryRows[domain.Proposal, *domain.Proposal]
}

func (r *memoryProposals) Create(_ context.Context, p *domain.Proposal) error { return r.create(p) }
func (r *memoryProposals) Get(_ context.Context, id string) (*domain.Proposal, error) {
	return r.get(id)
}
func (r *memoryProposals) GetForUpdate(_ context.Context, id string) (*domain.Proposal, error) {
	return r.get(id)
}
func (r *memoryProposals) Update(_ context.Context, p *domain.Proposal, expectedVersion int64) error {
	return r.update(p, expectedVersion, nil)
}

type memoryInvoices struct {
	memoryRows[domain.Invoice, *domain.Invoice]
}

func (r *memoryInvoices) Create(_ context.Context, inv *domain.Invoice) error {
	inv.RefreshBalance()
	return r.create(inv)
}
func (r *memoryInvoices) Get(_ context.Context, id string) (*domain.Invoice, error) {
	return r.get(id)
}
func (r *memoryInvoices) GetForUpdate(_ context.Context, id string) (*domain.Invoice, error) {
	return r.get(id)
}
func (r *memoryInvoices) Update(_ context.Context, inv *domain.Invoice, expectedVersion int64) error {
	return r.update(inv, expectedVersion, func(stored, next *domain.Invoice) {
		next.Number, next.Currency = stored.Number, stored.Currency
		next.Subtotal, next.DiscountAmount, next.TaxAmount = stored.Subtotal, stored.DiscountAmount, stored.TaxAmount
		next.RefreshBalance()
	})
}

func (r *memoryInvoices) ListPastDue(_ context.Context, now time.Time, limit int) ([]domain.Invoice, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var result []domain.Invoice
	for _, inv := range r.state.data.invoices {
		if inv.Status != domain.InvoiceStatusSent && inv.Status != domain.InvoiceStatusPartiallyPaid {
			continue
		}
		if inv.DueAt == nil || !inv.DueAt.Before(now) {
			continue
		}
		result = append(result, *inv)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DueAt.Equal(*result[j].DueAt) {
			return result[i].DueAt.Before(*result[j].DueAt)
		}
		return result[i].ID < result[j].ID
	})
	return truncate(result, normalizeLimit(limit, 500)), nil
}

type memoryTickets struct {
	memoryRows[domain.Ticket, *domain.Ticket]
}

func (r *memoryTickets) Create(_ context.Context, t *domain.Ticket) error { return r.create(t) }
func (r *memoryTickets) Get(_ context.Context, id string) (*domain.Ticket, error) {
	return r.get(id)
}
func (r *memoryTickets) GetForUpdate(_ context.Context, id string) (*domain.Ticket, error) {
	return r.get(id)
}
func (r *memoryTickets) Update(_ context.Context, t *domain.Ticket, expectedVersion int64) error {
	return r.update(t, expectedVersion, func(stored, next *domain.Ticket) {
		if stored.FirstResponseAt != nil {
			next.FirstResponseAt = stored.FirstResponseAt
		}
		next.IsSLAResponseBreached, next.IsSLAResolutionBreached = false, false
	})
}

func (r *memoryTickets) ListOpen(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var result []domain.Ticket
	for _, t := range r.state.data.tickets {
		if t.IsSettled() {
			continue
		}
		if filter.OrgID != "" && t.OrgID != filter.OrgID {
			continue
		}
		if filter.AfterID != "" && t.ID <= filter.AfterID {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return truncate(result, normalizeLimit(filter.Limit, 1000)), nil
}

type memoryWorkflows struct {
	memoryRows[domain.WorkflowInstance, *domain.WorkflowInstance]
}

func (r *memoryWorkflows) Create(_ context.Context, w *domain.WorkflowInstance) error {
	return r.create(w)
}
func (r *memoryWorkflows) Get(_ context.Context, id string) (*domain.WorkflowInstance, error) {
	return r.get(id)
}
func (r *memoryWorkflows) GetForUpdate(_ context.Context, id string) (*domain.WorkflowInstance, error) {
	return r.get(id)
}
func (r *memoryWorkflows) Update(_ context.Context, w *domain.WorkflowInstance, expectedVersion int64) error {
	return r.update(w, expectedVersion, func(stored, next *domain.WorkflowInstance) {
		next.ExternalWorkflowID = stored.ExternalWorkflowID
		next.ExecutionCount, next.SuccessCount, next.FailureCount = stored.ExecutionCount, stored.SuccessCount, stored.FailureCount
		next.LastExecutedAt = stored.LastExecutedAt
	})
}

func (r *memoryWorkflows) RecordExecution(_ context.Context, id string, outcome domain.ExecutionStatus, at time.Time) (*domain.WorkflowInstance, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	w, ok := r.state.data.workflows[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := *w
	next.ExecutionCount++
	if outcome == domain.ExecutionStatusSuccess {
		next.SuccessCount++
	} else {
		next.FailureCount++
	}
	executed := at
	next.LastExecutedAt = &executed
	next.UpdatedAt = at
	next.Version++
	r.state.data.workflows[id] = &next
	out := next
	return &out, nil
}

type memoryExecutions struct {
	state *memoryState
}

func (r *memoryExecutions) Create(_ context.Context, e *domain.WorkflowExecution) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.data.executions = append(r.state.data.executions, *e)
	return nil
}

func (r *memoryExecutions) ListByWorkflow(_ context.Context, workflowID string, limit int) ([]domain.WorkflowExecution, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var result []domain.WorkflowExecution
	for i := len(r.state.data.executions) - 1; i >= 0; i-- {
		if e := r.state.data.executions[i]; e.WorkflowID == workflowID {
			result = append(result, e)
		}
	}
	return truncate(result, normalizeLimit(limit, 50)), nil
}

type memoryHistory struct {
	state *memoryState
}

func (r *memoryHistory) Create(_ context.Context, h *domain.StatusHistory) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.data.history = append(r.state.data.history, *h)
	return nil
}

func (r *memoryHistory) ListByEntity(_ context.Context, kind domain.EntityKind, entityID string) ([]domain.StatusHistory, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var result []domain.StatusHistory
	for _, h := range r.state.data.history {
		if h.EntityKind == kind && h.EntityID == entityID {
			result = append(result, h)
		}
	}
	return result, nil
}

func truncate[T any](rows []T, limit int) []T {
	if len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
