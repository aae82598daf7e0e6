package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/transition"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

var (
	// ErrNotFound is returned when no row matches the requested id.
	ErrNotFound = errors.New("entity not found")
	// ErrVersionConflict is returned when an update's expected version is stale.
	ErrVersionConflict = errors.New("entity version conflict")
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the repositories of every lifecycle entity. Repositories obtained
// from the Store handed to a WithinTx callback take part in that transaction.
type Store interface {
	Projects() ProjectRepository
	Proposals() ProposalRepository
	Invoices() InvoiceRepository
	Tickets() TicketRepository
	Workflows() WorkflowRepository
	Executions() ExecutionRepository
	History() HistoryRepository
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	Get(ctx context.Context, id string) (*domain.Project, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Project, error)
	Update(ctx context.Context, project *domain.Project, expectedVersion int64) error
}

// ProposalRepository persists proposals.
type ProposalRepository interface {
	Create(ctx context.Context, proposal *domain.Proposal) error
	Get(ctx context.Context, id string) (*domain.Proposal, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Proposal, error)
	Update(ctx context.Context, proposal *domain.Proposal, expectedVersion int64) error
}

// InvoiceRepository persists invoices.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	Get(ctx context.Context, id string) (*domain.Invoice, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Invoice, error)
	Update(ctx context.Context, invoice *domain.Invoice, expectedVersion int64) error
	// ListPastDue returns sent or partially paid invoices whose due date is before now.
	ListPastDue(ctx context.Context, now time.Time, limit int) ([]domain.Invoice, error)
}

// TicketFilter narrows ticket scans. An empty OrgID scans every tenant. Results
// are ordered by id; AfterID resumes a scan after the last id of the previous page.
type TicketFilter struct {
	OrgID   string
	AfterID string
	Limit   int
}

// TicketRepository persists tickets.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error
	// ListOpen returns tickets that are neither resolved nor closed.
	ListOpen(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

// WorkflowRepository persists workflow instances.
type WorkflowRepository interface {
	Create(ctx context.Context, workflow *domain.WorkflowInstance) error
	Get(ctx context.Context, id string) (*domain.WorkflowInstance, error)
	GetForUpdate(ctx context.Context, id string) (*domain.WorkflowInstance, error)
	Update(ctx context.Context, workflow *domain.WorkflowInstance, expectedVersion int64) error
	// RecordExecution atomically increments execution_count and exactly one of the
	// outcome counters, and stamps last_executed_at.
	RecordExecution(ctx context.Context, id string, outcome domain.ExecutionStatus, at time.Time) (*domain.WorkflowInstance, error)
}

// ExecutionRepository stores workflow execution log rows.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *domain.WorkflowExecution) error
	ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]domain.WorkflowExecution, error)
}

// HistoryRepository stores audit entries.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.StatusHistory) error
	ListByEntity(ctx context.Context, kind domain.EntityKind, entityID string) ([]domain.StatusHistory, error)
}

// checkPersistable refuses statuses that no valid transition sequence can reach.
func checkPersistable(kind domain.EntityKind, status string) error {
	ok, err := transition.Reachable(kind, status)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewInvalidState(string(kind), status)
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}
