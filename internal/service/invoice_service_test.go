package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/events"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

func sentInvoice(t *testing.T, f *fixture, subtotal, discount, tax int64) *domain.Invoice {
	t.Helper()
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, acme, InvoiceCreateInput{
		Number:         "INV-2024-001",
		Currency:       "eur",
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
	})
	require.NoError(t, err)
	inv, err = f.svc.ChangeInvoiceStatus(ctx, acme, inv.ID, changeTo("sent"))
	require.NoError(t, err)
	return inv
}

func assertBalance(t *testing.T, inv *domain.Invoice) {
	t.Helper()
	assert.Equal(t, inv.Subtotal-inv.DiscountAmount+inv.TaxAmount, inv.Total)
	assert.Equal(t, inv.Total-inv.AmountPaid, inv.BalanceDue)
	assert.Equal(t, inv.BalanceDue <= 0, inv.IsPaid)
}

func TestCreateInvoiceDerivesTotals(t *testing.T) {
	f := newFixture(t)
	inv, err := f.svc.CreateInvoice(context.Background(), acme, InvoiceCreateInput{
		Number: "INV-7", Subtotal: 10000, DiscountAmount: 1500, TaxAmount: 1700,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10200), inv.Total)
	assert.Equal(t, int64(10200), inv.BalanceDue)
	assert.Equal(t, "USD", inv.Currency)
	assert.False(t, inv.IsPaid)
}

func TestPaymentScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := sentInvoice(t, f, 900, 0, 100)
	require.Equal(t, int64(1000), inv.Total)
	require.NotNil(t, inv.SentAt)

	inv, err := f.svc.RecordPayment(ctx, acme, inv.ID, PaymentInput{Amount: 600})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPartiallyPaid, inv.Status)
	assert.Equal(t, int64(400), inv.BalanceDue)
	assertBalance(t, inv)

	inv, err = f.svc.RecordPayment(ctx, acme, inv.ID, PaymentInput{Amount: 400})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, int64(0), inv.BalanceDue)
	assert.True(t, inv.IsPaid)
	require.NotNil(t, inv.PaidAt)
	assertBalance(t, inv)

	_, err = f.svc.RecordPayment(ctx, acme, inv.ID, PaymentInput{Amount: 1})
	requireCode(t, err, apperrors.CodeOverpayment)

	stored, err := f.svc.GetInvoice(ctx, acme, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), stored.AmountPaid)
	assert.Equal(t, inv.Version, stored.Version)
}

func TestOverpaymentLeavesInvoiceUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := sentInvoice(t, f, 1000, 0, 0)

	_, err := f.svc.RecordPayment(ctx, acme, inv.ID, PaymentInput{Amount: 1001})
	requireCode(t, err, apperrors.CodeOverpayment)

	stored, err := f.svc.GetInvoice(ctx, acme, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.AmountPaid)
	assert.Equal(t, domain.InvoiceStatusSent, stored.Status)

	history, err := f.svc.ListHistory(ctx, acme, domain.KindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestPaymentRequiresPositiveAmount(t *testing.T) {
	f := newFixture(t)
	inv := sentInvoice(t, f, 1000, 0, 0)
	_, err := f.svc.RecordPayment(context.Background(), acme, inv.ID, PaymentInput{Amount: 0})
	requireCode(t, err, apperrors.CodeValidation)
}

func TestPaymentAgainstDraftIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, acme, InvoiceCreateInput{Number: "INV-9", Subtotal: 500})
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, acme, inv.ID, PaymentInput{Amount: 100})
	requireCode(t, err, apperrors.CodeInvalidTransition)
}

func TestPaymentOnOverdueInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := sentInvoice(t, f, 1000, 0, 0)
	_, err := f.svc.ChangeInvoiceStatus(ctx, acme, inv.ID, changeTo("overdue"))
	require.NoError(t, err)

	inv, err = f.svc.RecordPayment(ctx, acme, inv.ID, PaymentInput{Amount: 250})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPartiallyPaid, inv.Status)

	inv, err = f.svc.RecordPayment(ctx, acme, inv.ID, PaymentInput{Amount: 250})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPartiallyPaid, inv.Status)
	assert.Equal(t, int64(500), inv.BalanceDue)
}

func TestChangeStatusToPaidSettlesBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := sentInvoice(t, f, 1000, 100, 0)
	_, err := f.svc.RecordPayment(ctx, acme, inv.ID, PaymentInput{Amount: 300})
	require.NoError(t, err)

	inv, err = f.svc.ChangeInvoiceStatus(ctx, acme, inv.ID, changeTo("paid"))
	require.NoError(t, err)
	assert.Equal(t, int64(900), inv.AmountPaid)
	assert.Equal(t, int64(0), inv.BalanceDue)
	assertBalance(t, inv)

	history, err := f.svc.ListHistory(ctx, acme, domain.KindInvoice, inv.ID)
	require.NoError(t, err)
	last := history[len(history)-2:]
	assert.Equal(t, domain.ChangeTypePayment, last[0].ChangeType)
	assert.Equal(t, int64(600), last[0].NewValue["amount"])
	assert.Equal(t, domain.ChangeTypeStatus, last[1].ChangeType)

	inv, err = f.svc.ChangeInvoiceStatus(ctx, acme, inv.ID, changeTo("refunded"))
	require.NoError(t, err)
	require.NotNil(t, inv.RefundedAt)
	assert.Equal(t, int64(900), inv.AmountPaid)
}

func TestChangeStatusToPartiallyPaidNeedsPartialPayment(t *testing.T) {
	f := newFixture(t)
	inv := sentInvoice(t, f, 1000, 0, 0)
	_, err := f.svc.ChangeInvoiceStatus(context.Background(), acme, inv.ID, changeTo("partially_paid"))
	requireCode(t, err, apperrors.CodeValidation)
}

func TestSentAtIsStampedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := sentInvoice(t, f, 1000, 0, 0)
	sentAt := *inv.SentAt

	f.clock.Advance(time.Hour)
	again, err := f.svc.ChangeInvoiceStatus(ctx, acme, inv.ID, changeTo("sent"))
	require.NoError(t, err)
	assert.Equal(t, sentAt, *again.SentAt)
	assert.Equal(t, inv.Version, again.Version)
}

func TestPaymentEvents(t *testing.T) {
	f := newFixture(t)
	inv := sentInvoice(t, f, 1000, 0, 0)
	_, err := f.svc.RecordPayment(context.Background(), acme, inv.ID, PaymentInput{Amount: 1000})
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{
		events.EventEntityCreated,
		events.EventStatusChanged,
		events.EventPaymentRecorded,
		events.EventStatusChanged,
	}, f.events.types())
}
