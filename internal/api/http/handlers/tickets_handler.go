package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/opsledger/lifecycle-service/internal/api/dto"
	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/service"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service       *service.LifecycleService
	retry         *Retrier
	defaultWindow time.Duration
}

// NewTicketsHandler constructs handler. defaultWindow applies to at-risk queries
// without window_minutes.
func NewTicketsHandler(svc *service.LifecycleService, retry *Retrier, defaultWindow time.Duration) *TicketsHandler {
	return &TicketsHandler{service: svc, retry: retry, defaultWindow: defaultWindow}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), caller, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdatePriority POST /tickets/:id/priority.
func (h *TicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.PriorityChangeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	var ticket *domain.Ticket
	err = h.retry.DoVersioned(c.UserContext(), req.ExpectedVersion, func() error {
		var callErr error
		ticket, callErr = h.service.UpdatePriority(c.UserContext(), caller, c.Params("id"), service.PriorityChangeInput{
			Priority:        domain.TicketPriority(req.Priority),
			ExpectedVersion: req.ExpectedVersion,
		})
		return callErr
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// RecordFirstResponse POST /tickets/:id/response.
func (h *TicketsHandler) RecordFirstResponse(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.FirstResponseRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	var ticket *domain.Ticket
	err = h.retry.DoVersioned(c.UserContext(), req.ExpectedVersion, func() error {
		var callErr error
		ticket, callErr = h.service.RecordFirstResponse(c.UserContext(), caller, c.Params("id"), req.ExpectedVersion)
		return callErr
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AtRisk GET /tickets/at-risk?window_minutes=.
func (h *TicketsHandler) AtRisk(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	window := h.defaultWindow
	if raw := c.Query("window_minutes"); raw != "" {
		minutes := parseInt(raw, -1)
		if minutes < 0 {
			return apperrors.NewValidationError("window_minutes must be a positive integer", nil)
		}
		window = time.Duration(minutes) * time.Minute
	}
	items, err := h.service.AtRisk(c.UserContext(), caller, window)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": atRiskResponses(items)})
}
