package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsledger/lifecycle-service/internal/api/dto"
	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/service"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

// EntitiesHandler serves the kind-agnostic lifecycle endpoints.
type EntitiesHandler struct {
	service *service.LifecycleService
	retry   *Retrier
}

// NewEntitiesHandler constructs handler.
func NewEntitiesHandler(svc *service.LifecycleService, retry *Retrier) *EntitiesHandler {
	return &EntitiesHandler{service: svc, retry: retry}
}

// ChangeStatus POST /<kind>/:id/status.
func (h *EntitiesHandler) ChangeStatus(kind domain.EntityKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerFrom(c)
		if err != nil {
			return err
		}
		input, err := parseStatusChange(c, kind)
		if err != nil {
			return err
		}
		var entity domain.Entity
		err = h.retry.DoVersioned(c.UserContext(), input.ExpectedVersion, func() error {
			var callErr error
			entity, callErr = h.service.ChangeStatus(c.UserContext(), caller, kind, c.Params("id"), input)
			return callErr
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": entityResponse(entity)})
	}
}

// Transitions GET /<kind>/:id/transitions.
func (h *EntitiesHandler) Transitions(kind domain.EntityKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerFrom(c)
		if err != nil {
			return err
		}
		entity, err := h.service.GetEntity(c.UserContext(), caller, kind, c.Params("id"))
		if err != nil {
			return err
		}
		next, err := h.service.GetAvailableTransitions(c.UserContext(), caller, kind, entity.Base().ID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.TransitionsResponse{
			Kind:        string(kind),
			ID:          entity.Base().ID,
			Status:      entity.CurrentStatus(),
			Transitions: next,
		}})
	}
}

// History GET /:kind/:id/history.
func (h *EntitiesHandler) History(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	kind, ok := domain.ParseEntityKind(c.Params("kind"))
	if !ok {
		return apperrors.NewNotFound("resource", nil)
	}
	rows, err := h.service.ListHistory(c.UserContext(), caller, kind, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(rows)})
}
