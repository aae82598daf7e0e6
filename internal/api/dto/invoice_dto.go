package dto

import "time"

// CreateInvoiceRequest payload. Amounts are in minor units.
type CreateInvoiceRequest struct {
	Number         string     `json:"number"`
	Currency       string     `json:"currency"`
	Subtotal       int64      `json:"subtotal"`
	DiscountAmount int64      `json:"discount_amount"`
	TaxAmount      int64      `json:"tax_amount"`
	DueAt          *time.Time `json:"due_at"`
}

// PaymentRequest payload for POST /invoices/:id/payments.
type PaymentRequest struct {
	Amount          int64 `json:"amount"`
	ExpectedVersion int64 `json:"expected_version"`
}

// InvoiceResponse body.
type InvoiceResponse struct {
	Meta
	Number         string     `json:"number"`
	Currency       string     `json:"currency"`
	Subtotal       int64      `json:"subtotal"`
	DiscountAmount int64      `json:"discount_amount"`
	TaxAmount      int64      `json:"tax_amount"`
	Total          int64      `json:"total"`
	AmountPaid     int64      `json:"amount_paid"`
	BalanceDue     int64      `json:"balance_due"`
	IsPaid         bool       `json:"is_paid"`
	Status         string     `json:"status"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt     *time.Time `json:"refunded_at,omitempty"`
}
