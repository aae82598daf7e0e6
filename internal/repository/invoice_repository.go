package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/opsledger/lifecycle-service/internal/domain"
)

const invoiceColumns = `id, org_id, version, number, currency, subtotal, discount_amount, tax_amount,
       amount_paid, status, due_at, sent_at, paid_at, cancelled_at, refunded_at, created_at, updated_at`

type invoiceRepository struct {
	q Querier
}

func (r *invoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	if err := checkPersistable(domain.KindInvoice, string(inv.Status)); err != nil {
		return err
	}
	const query = `
        INSERT INTO invoices (id, org_id, version, number, currency, subtotal, discount_amount, tax_amount,
            amount_paid, status, due_at, sent_at, paid_at, cancelled_at, refunded_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.OrgID, inv.Version, inv.Number, inv.Currency, inv.Subtotal, inv.DiscountAmount, inv.TaxAmount,
		inv.AmountPaid, inv.Status, inv.DueAt, inv.SentAt, inv.PaidAt, inv.CancelledAt, inv.RefundedAt,
		inv.CreatedAt, inv.UpdatedAt)
	return err
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	return r.fetch(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id)
}

func (r *invoiceRepository) GetForUpdate(ctx context.Context, id string) (*domain.Invoice, error) {
	return r.fetch(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1 FOR UPDATE`, id)
}

func (r *invoiceRepository) fetch(ctx context.Context, query, id string) (*domain.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return inv, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *domain.Invoice, expectedVersion int64) error {
	if err := checkPersistable(domain.KindInvoice, string(inv.Status)); err != nil {
		return err
	}
	const query = `
        UPDATE invoices SET amount_paid=$1, status=$2, due_at=$3, sent_at=$4, paid_at=$5,
            cancelled_at=$6, refunded_at=$7, updated_at=$8, version=version+1
        WHERE id=$9 AND version=$10`
	cmd, err := r.q.Exec(ctx, query,
		inv.AmountPaid, inv.Status, inv.DueAt, inv.SentAt, inv.PaidAt,
		inv.CancelledAt, inv.RefundedAt, inv.UpdatedAt, inv.ID, expectedVersion)
	if err != nil {
		return err
	}
	if err := casResult(cmd.RowsAffected()); err != nil {
		return err
	}
	inv.Version = expectedVersion + 1
	return nil
}

func (r *invoiceRepository) ListPastDue(ctx context.Context, now time.Time, limit int) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
        WHERE status IN ('sent','partially_paid') AND due_at IS NOT NULL AND due_at < $1
        ORDER BY due_at ASC, id ASC LIMIT $2`
	rows, err := r.q.Query(ctx, query, now, normalizeLimit(limit, 500))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func collectInvoices(rows pgx.Rows) ([]domain.Invoice, error) {
	var result []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *inv)
	}
	return result, rows.Err()
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := row.Scan(
		&inv.ID, &inv.OrgID, &inv.Version, &inv.Number, &inv.Currency, &inv.Subtotal, &inv.DiscountAmount,
		&inv.TaxAmount, &inv.AmountPaid, &inv.Status, &inv.DueAt, &inv.SentAt, &inv.PaidAt,
		&inv.CancelledAt, &inv.RefundedAt, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	inv.RefreshBalance()
	return &inv, nil
}
