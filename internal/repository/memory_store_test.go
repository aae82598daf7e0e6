package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/lifecycle-service/internal/domain"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

var t0 = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func seedTicket(t *testing.T, store *MemoryStore, id string, status domain.TicketStatus) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		Meta:               domain.Meta{ID: id, OrgID: "org-1", Version: 1, CreatedAt: t0, UpdatedAt: t0},
		Title:              "printer on fire",
		Status:             status,
		Priority:           domain.TicketPriorityHigh,
		SLAResponseDueAt:   t0.Add(4 * time.Hour),
		SLAResolutionDueAt: t0.Add(16 * time.Hour),
	}
	require.NoError(t, store.Tickets().Create(context.Background(), ticket))
	return ticket
}

func TestMemoryStoreUpdateBumpsVersion(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ticket := seedTicket(t, store, "t-1", domain.TicketStatusOpen)

	ticket.Status = domain.TicketStatusInProgress
	require.NoError(t, store.Tickets().Update(ctx, ticket, 1))
	assert.Equal(t, int64(2), ticket.Version)

	stored, err := store.Tickets().Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
	assert.Equal(t, int64(2), stored.Version)
}

func TestMemoryStoreStaleVersionConflicts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedTicket(t, store, "t-1", domain.TicketStatusOpen)

	first, _ := store.Tickets().Get(ctx, "t-1")
	second, _ := store.Tickets().Get(ctx, "t-1")

	first.Status = domain.TicketStatusWaiting
	require.NoError(t, store.Tickets().Update(ctx, first, first.Version))

	second.Status = domain.TicketStatusClosed
	err := store.Tickets().Update(ctx, second, second.Version)
	assert.ErrorIs(t, err, ErrVersionConflict)

	stored, _ := store.Tickets().Get(ctx, "t-1")
	assert.Equal(t, domain.TicketStatusWaiting, stored.Status)
}

func TestMemoryStoreGetReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedTicket(t, store, "t-1", domain.TicketStatusOpen)

	got, _ := store.Tickets().Get(ctx, "t-1")
	got.Status = domain.TicketStatusClosed

	again, _ := store.Tickets().Get(ctx, "t-1")
	assert.Equal(t, domain.TicketStatusOpen, again.Status)
}

func TestMemoryStoreMissingEntity(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Projects().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRejectsUnknownStatus(t *testing.T) {
	store := NewMemoryStore()
	err := store.Projects().Create(context.Background(), &domain.Project{
		Meta:   domain.Meta{ID: "p-1", OrgID: "org-1", Version: 1},
		Status: "archived",
	})
	require.Error(t, err)
}

func TestMemoryStoreKeepsFirstResponse(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ticket := seedTicket(t, store, "t-1", domain.TicketStatusOpen)

	responded := t0.Add(time.Minute)
	ticket.FirstResponseAt = &responded
	require.NoError(t, store.Tickets().Update(ctx, ticket, 1))

	ticket.FirstResponseAt = nil
	require.NoError(t, store.Tickets().Update(ctx, ticket, 2))

	stored, _ := store.Tickets().Get(ctx, "t-1")
	require.NotNil(t, stored.FirstResponseAt)
	assert.Equal(t, responded, *stored.FirstResponseAt)
}

func TestMemoryStoreWithinTxRollsBack(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedTicket(t, store, "t-1", domain.TicketStatusOpen)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, "t-1")
		require.NoError(t, err)
		ticket.Status = domain.TicketStatusClosed
		require.NoError(t, tx.Tickets().Update(ctx, ticket, ticket.Version))
		require.NoError(t, tx.History().Create(ctx, &domain.StatusHistory{
			ID: "h-1", EntityKind: domain.KindTicket, EntityID: "t-1", ChangeType: domain.ChangeTypeStatus,
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, _ := store.Tickets().Get(ctx, "t-1")
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Equal(t, int64(1), stored.Version)

	history, err := store.History().ListByEntity(ctx, domain.KindTicket, "t-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStoreNestedTxJoins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedTicket(t, store, "t-1", domain.TicketStatusOpen)

	err := store.WithinTx(ctx, func(tx Store) error {
		return tx.WithinTx(ctx, func(inner Store) error {
			ticket, _ := inner.Tickets().GetForUpdate(ctx, "t-1")
			ticket.Status = domain.TicketStatusWaiting
			return inner.Tickets().Update(ctx, ticket, ticket.Version)
		})
	})
	require.NoError(t, err)

	stored, _ := store.Tickets().Get(ctx, "t-1")
	assert.Equal(t, domain.TicketStatusWaiting, stored.Status)
}

func TestMemoryStoreListOpen(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedTicket(t, store, "t-3", domain.TicketStatusWaiting)
	seedTicket(t, store, "t-1", domain.TicketStatusOpen)
	seedTicket(t, store, "t-2", domain.TicketStatusOpen)
	closed := seedTicket(t, store, "t-4", domain.TicketStatusOpen)
	closed.Status = domain.TicketStatusClosed
	require.NoError(t, store.Tickets().Update(ctx, closed, 1))

	open, err := store.Tickets().ListOpen(ctx, TicketFilter{})
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, []string{"t-1", "t-2", "t-3"}, []string{open[0].ID, open[1].ID, open[2].ID})

	limited, err := store.Tickets().ListOpen(ctx, TicketFilter{OrgID: "org-1", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	rest, err := store.Tickets().ListOpen(ctx, TicketFilter{OrgID: "org-1", AfterID: "t-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t-2", "t-3"}, []string{rest[0].ID, rest[1].ID})

	other, err := store.Tickets().ListOpen(ctx, TicketFilter{OrgID: "org-2"})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryStoreListPastDue(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	due := func(d time.Duration) *time.Time { v := t0.Add(d); return &v }

	invoices := []*domain.Invoice{
		{Meta: domain.Meta{ID: "i-1", Version: 1}, Subtotal: 100, Status: domain.InvoiceStatusSent, DueAt: due(-time.Hour)},
		{Meta: domain.Meta{ID: "i-2", Version: 1}, Subtotal: 100, Status: domain.InvoiceStatusSent, DueAt: due(time.Hour)},
		{Meta: domain.Meta{ID: "i-3", Version: 1}, Subtotal: 100, Status: domain.InvoiceStatusDraft, DueAt: due(-time.Hour)},
		{Meta: domain.Meta{ID: "i-4", Version: 1}, Subtotal: 100, AmountPaid: 10, Status: domain.InvoiceStatusPartiallyPaid, DueAt: due(-2 * time.Hour)},
		{Meta: domain.Meta{ID: "i-5", Version: 1}, Subtotal: 100, Status: domain.InvoiceStatusSent},
	}
	for _, inv := range invoices {
		require.NoError(t, store.Invoices().Create(ctx, inv))
	}

	got, err := store.Invoices().ListPastDue(ctx, t0, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "i-4", got[0].ID)
	assert.Equal(t, "i-1", got[1].ID)
	assert.Equal(t, int64(90), got[0].BalanceDue)
}

func TestMemoryStoreRecordExecution(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Workflows().Create(ctx, &domain.WorkflowInstance{
		Meta:   domain.Meta{ID: "w-1", OrgID: "org-1", Version: 1},
		Status: domain.WorkflowStatusActive,
	}))

	_, err := store.Workflows().RecordExecution(ctx, "w-1", domain.ExecutionStatusSuccess, t0)
	require.NoError(t, err)
	w, err := store.Workflows().RecordExecution(ctx, "w-1", domain.ExecutionStatusFailed, t0.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, int64(2), w.ExecutionCount)
	assert.Equal(t, int64(1), w.SuccessCount)
	assert.Equal(t, int64(1), w.FailureCount)
	assert.Equal(t, int64(3), w.Version)
	require.NotNil(t, w.LastExecutedAt)
	assert.Equal(t, t0.Add(time.Minute), *w.LastExecutedAt)

	// status updates leave counters alone
	w.Status = domain.WorkflowStatusPaused
	w.ExecutionCount = 0
	require.NoError(t, store.Workflows().Update(ctx, w, w.Version))
	stored, _ := store.Workflows().Get(ctx, "w-1")
	assert.Equal(t, int64(2), stored.ExecutionCount)

	_, err = store.Workflows().RecordExecution(ctx, "missing", domain.ExecutionStatusSuccess, t0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckPersistable(t *testing.T) {
	require.NoError(t, checkPersistable(domain.KindInvoice, "refunded"))
	err := checkPersistable(domain.KindInvoice, "lost")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
}
