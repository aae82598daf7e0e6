package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsledger/lifecycle-service/internal/api/dto"
	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/service"
)

// InvoicesHandler manages invoice endpoints.
type InvoicesHandler struct {
	service *service.LifecycleService
	retry   *Retrier
}

// NewInvoicesHandler constructs handler.
func NewInvoicesHandler(svc *service.LifecycleService, retry *Retrier) *InvoicesHandler {
	return &InvoicesHandler{service: svc, retry: retry}
}

// CreateInvoice POST /invoices.
func (h *InvoicesHandler) CreateInvoice(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateInvoiceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	invoice, err := h.service.CreateInvoice(c.UserContext(), caller, service.InvoiceCreateInput{
		Number:         req.Number,
		Currency:       req.Currency,
		Subtotal:       req.Subtotal,
		DiscountAmount: req.DiscountAmount,
		TaxAmount:      req.TaxAmount,
		DueAt:          req.DueAt,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": invoiceResponse(invoice)})
}

// GetInvoice GET /invoices/:id.
func (h *InvoicesHandler) GetInvoice(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	invoice, err := h.service.GetInvoice(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoiceResponse(invoice)})
}

// RecordPayment POST /invoices/:id/payments.
func (h *InvoicesHandler) RecordPayment(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.PaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	var invoice *domain.Invoice
	err = h.retry.DoVersioned(c.UserContext(), req.ExpectedVersion, func() error {
		var callErr error
		invoice, callErr = h.service.RecordPayment(c.UserContext(), caller, c.Params("id"), service.PaymentInput{
			Amount:          req.Amount,
			ExpectedVersion: req.ExpectedVersion,
		})
		return callErr
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoiceResponse(invoice)})
}
