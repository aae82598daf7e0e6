package handlers

import (
	"slices"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/opsledger/lifecycle-service/internal/api/dto"
	"github.com/opsledger/lifecycle-service/internal/auth"
	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/service"
	"github.com/opsledger/lifecycle-service/internal/transition"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

func callerFrom(c *fiber.Ctx) (service.Caller, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.OrgID == "" {
		return service.Caller{}, apperrors.NewUnauthorized("authentication required")
	}
	return service.Caller{OrgID: principal.OrgID, Actor: principal.Actor}, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// parseStatusChange rejects statuses outside the kind's table before they reach
// the engine, which treats an unknown status as an internal fault.
func parseStatusChange(c *fiber.Ctx, kind domain.EntityKind) (service.StatusChangeInput, error) {
	var req dto.StatusChangeRequest
	if err := parseBody(c, &req); err != nil {
		return service.StatusChangeInput{}, err
	}
	states, err := transition.States(kind)
	if err != nil {
		return service.StatusChangeInput{}, err
	}
	if !slices.Contains(states, req.Status) {
		return service.StatusChangeInput{}, apperrors.NewValidationError("unknown status", map[string]any{
			"status":  req.Status,
			"allowed": states,
		})
	}
	if req.ExpectedVersion < 0 {
		return service.StatusChangeInput{}, apperrors.NewValidationError("expected_version must not be negative", nil)
	}
	return service.StatusChangeInput{Status: req.Status, ExpectedVersion: req.ExpectedVersion}, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func metaResponse(m *domain.Meta) dto.Meta {
	return dto.Meta{
		ID:        m.ID,
		OrgID:     m.OrgID,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
