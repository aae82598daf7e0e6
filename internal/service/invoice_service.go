package service

import (
	"context"
	"strings"
	"time"

	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/events"
	"github.com/opsledger/lifecycle-service/internal/repository"
	"github.com/opsledger/lifecycle-service/internal/transition"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

const defaultCurrency = "USD"

// InvoiceCreateInput describes invoice creation payload. Amounts are minor units.
type InvoiceCreateInput struct {
	Number         string
	Currency       string
	Subtotal       int64
	DiscountAmount int64
	TaxAmount      int64
	DueAt          *time.Time
}

// PaymentInput records money received against an invoice.
type PaymentInput struct {
	Amount          int64
	ExpectedVersion int64
}

// CreateInvoice stores a new invoice in draft with a derived total and balance.
func (s *LifecycleService) CreateInvoice(ctx context.Context, caller Caller, input InvoiceCreateInput) (*domain.Invoice, error) {
	if err := validateInvoiceInput(input); err != nil {
		return nil, s.reject(domain.KindInvoice, err)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	invoice := &domain.Invoice{
		Meta:           newMeta(caller.OrgID, s.clock.Now()),
		Number:         strings.TrimSpace(input.Number),
		Currency:       currency,
		Subtotal:       input.Subtotal,
		DiscountAmount: input.DiscountAmount,
		TaxAmount:      input.TaxAmount,
		Status:         domain.InvoiceStatusDraft,
		DueAt:          input.DueAt,
	}
	invoice.RefreshBalance()

	var pending []events.Event
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Invoices().Create(ctx, invoice); err != nil {
			return saveError(domain.KindInvoice, invoice.ID, err)
		}
		ev, err := s.recordCreated(ctx, tx, caller, invoice)
		if err != nil {
			return err
		}
		pending = append(pending, ev)
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindInvoice, err)
	}
	s.publish(ctx, pending...)
	return invoice, nil
}

func validateInvoiceInput(input InvoiceCreateInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.Number) == "" {
		details["number"] = "required"
	}
	if input.Subtotal < 0 {
		details["subtotal"] = "must not be negative"
	}
	if input.DiscountAmount < 0 {
		details["discount_amount"] = "must not be negative"
	}
	if input.TaxAmount < 0 {
		details["tax_amount"] = "must not be negative"
	}
	if domain.InvoiceTotal(input.Subtotal, input.DiscountAmount, input.TaxAmount) < 0 {
		details["discount_amount"] = "exceeds subtotal plus tax"
	}
	if c := strings.TrimSpace(input.Currency); c != "" && len(c) != 3 {
		details["currency"] = "must be a three letter code"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid invoice", details)
	}
	return nil
}

// GetInvoice loads an invoice within the caller's tenant.
func (s *LifecycleService) GetInvoice(ctx context.Context, caller Caller, id string) (*domain.Invoice, error) {
	entity, err := s.GetEntity(ctx, caller, domain.KindInvoice, id)
	if err != nil {
		return nil, err
	}
	return entity.(*domain.Invoice), nil
}

// ChangeInvoiceStatus applies an invoice transition. Moving to paid settles the
// outstanding balance as a payment; moving to partially_paid requires money
// already received but not the full total.
func (s *LifecycleService) ChangeInvoiceStatus(ctx context.Context, caller Caller, id string, input StatusChangeInput) (*domain.Invoice, error) {
	var (
		out     *domain.Invoice
		pending []events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		invoice, err := tx.Invoices().GetForUpdate(ctx, id)
		if err != nil {
			return loadError(domain.KindInvoice, id, err)
		}
		noop, err := prepareTransition(caller, invoice, input)
		if err != nil {
			return err
		}
		out = invoice
		if noop {
			return nil
		}

		to := domain.InvoiceStatus(input.Status)
		if to == domain.InvoiceStatusPartiallyPaid && (invoice.AmountPaid <= 0 || invoice.AmountPaid >= invoice.Total) {
			return apperrors.NewValidationError("partially_paid requires a partial payment on record", map[string]any{
				"amount_paid": invoice.AmountPaid,
				"total":       invoice.Total,
			})
		}

		now := s.clock.Now()
		from := string(invoice.Status)
		settled := int64(0)
		if to == domain.InvoiceStatusPaid {
			settled = invoice.BalanceDue
			invoice.AmountPaid = invoice.Total
			invoice.RefreshBalance()
		}
		applyInvoiceStatus(invoice, to, now)
		invoice.UpdatedAt = now
		if err := tx.Invoices().Update(ctx, invoice, invoice.Version); err != nil {
			return saveError(domain.KindInvoice, id, err)
		}
		if settled > 0 {
			ev, err := s.recordPayment(ctx, tx, caller, invoice, settled, now)
			if err != nil {
				return err
			}
			pending = append(pending, ev)
		}
		ev, err := s.recordStatusChange(ctx, tx, caller, invoice, from, now)
		if err != nil {
			return err
		}
		pending = append(pending, ev)
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindInvoice, err)
	}
	s.publish(ctx, pending...)
	return out, nil
}

// RecordPayment adds amount to amount_paid and moves the invoice to paid or
// partially_paid. A payment that would exceed the total fails with an
// overpayment error and changes nothing.
func (s *LifecycleService) RecordPayment(ctx context.Context, caller Caller, id string, input PaymentInput) (*domain.Invoice, error) {
	if input.Amount <= 0 {
		return nil, s.reject(domain.KindInvoice, apperrors.NewValidationError("amount must be positive", map[string]any{"amount": input.Amount}))
	}
	var (
		out     *domain.Invoice
		pending []events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		invoice, err := tx.Invoices().GetForUpdate(ctx, id)
		if err != nil {
			return loadError(domain.KindInvoice, id, err)
		}
		if err := authorize(caller, invoice); err != nil {
			return err
		}
		if err := checkVersion(invoice, input.ExpectedVersion); err != nil {
			return err
		}
		if invoice.AmountPaid+input.Amount > invoice.Total {
			return apperrors.NewOverpayment(invoice.Total, invoice.AmountPaid, input.Amount)
		}

		to := domain.InvoiceStatusPartiallyPaid
		if invoice.AmountPaid+input.Amount >= invoice.Total {
			to = domain.InvoiceStatusPaid
		}
		from := string(invoice.Status)
		if err := transition.Validate(domain.KindInvoice, from, string(to)); err != nil {
			return err
		}

		now := s.clock.Now()
		invoice.AmountPaid += input.Amount
		invoice.RefreshBalance()
		applyInvoiceStatus(invoice, to, now)
		invoice.UpdatedAt = now
		if err := tx.Invoices().Update(ctx, invoice, invoice.Version); err != nil {
			return saveError(domain.KindInvoice, id, err)
		}
		ev, err := s.recordPayment(ctx, tx, caller, invoice, input.Amount, now)
		if err != nil {
			return err
		}
		pending = append(pending, ev)
		if from != string(to) {
			ev, err := s.recordStatusChange(ctx, tx, caller, invoice, from, now)
			if err != nil {
				return err
			}
			pending = append(pending, ev)
		}
		out = invoice
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindInvoice, err)
	}
	s.publish(ctx, pending...)
	return out, nil
}

func (s *LifecycleService) recordPayment(ctx context.Context, tx repository.Store, caller Caller, invoice *domain.Invoice, amount int64, at time.Time) (events.Event, error) {
	err := s.writeHistory(ctx, tx, caller, invoice, domain.ChangeTypePayment,
		map[string]any{"amount_paid": invoice.AmountPaid - amount},
		map[string]any{"amount_paid": invoice.AmountPaid, "amount": amount, "balance_due": invoice.BalanceDue},
		at)
	if err != nil {
		return events.Event{}, err
	}
	return s.event(events.EventPaymentRecorded, caller, invoice, at, events.PaymentRecordedPayload{
		Amount:     amount,
		Currency:   invoice.Currency,
		AmountPaid: invoice.AmountPaid,
		BalanceDue: invoice.BalanceDue,
		Status:     invoice.Status,
	}), nil
}

func applyInvoiceStatus(inv *domain.Invoice, to domain.InvoiceStatus, now time.Time) {
	inv.Status = to
	switch to {
	case domain.InvoiceStatusSent:
		setOnce(&inv.SentAt, now)
	case domain.InvoiceStatusPaid:
		setOnce(&inv.PaidAt, now)
	case domain.InvoiceStatusCancelled:
		setOnce(&inv.CancelledAt, now)
	case domain.InvoiceStatusRefunded:
		setOnce(&inv.RefundedAt, now)
	}
}
