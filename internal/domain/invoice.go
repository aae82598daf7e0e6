package domain

import "time"

// InvoiceStatus enumerates lifecycle states for invoices.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
	InvoiceStatusRefunded      InvoiceStatus = "refunded"
)

// Invoice amounts are integer minor currency units.
type Invoice struct {
	Meta
	Number         string
	Currency       string
	Subtotal       int64
	DiscountAmount int64
	TaxAmount      int64
	Total          int64
	AmountPaid     int64
	BalanceDue     int64
	IsPaid         bool
	Status         InvoiceStatus
	DueAt          *time.Time
	SentAt         *time.Time
	PaidAt         *time.Time
	CancelledAt    *time.Time
	RefundedAt     *time.Time
}

func (i *Invoice) Kind() EntityKind      { return KindInvoice }
func (i *Invoice) Base() *Meta           { return &i.Meta }
func (i *Invoice) CurrentStatus() string { return string(i.Status) }

// InvoiceTotal is subtotal - discount + tax.
func InvoiceTotal(subtotal, discount, tax int64) int64 {
	return subtotal - discount + tax
}

// RefreshBalance re-derives Total, BalanceDue and IsPaid from the source amounts.
func (i *Invoice) RefreshBalance() {
	i.Total = InvoiceTotal(i.Subtotal, i.DiscountAmount, i.TaxAmount)
	i.BalanceDue = i.Total - i.AmountPaid
	i.IsPaid = i.BalanceDue <= 0
}
