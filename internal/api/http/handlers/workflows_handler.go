package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/opsledger/lifecycle-service/internal/api/dto"
	"github.com/opsledger/lifecycle-service/internal/service"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

// WorkflowsHandler manages workflow endpoints.
type WorkflowsHandler struct {
	service *service.LifecycleService
}

// NewWorkflowsHandler constructs handler.
func NewWorkflowsHandler(svc *service.LifecycleService) *WorkflowsHandler {
	return &WorkflowsHandler{service: svc}
}

// CreateWorkflow POST /workflows.
func (h *WorkflowsHandler) CreateWorkflow(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateWorkflowRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	workflow, err := h.service.CreateWorkflow(c.UserContext(), caller, service.WorkflowCreateInput{
		Name:               req.Name,
		ExternalWorkflowID: req.ExternalWorkflowID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": workflowResponse(workflow)})
}

// GetWorkflow GET /workflows/:id.
func (h *WorkflowsHandler) GetWorkflow(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	workflow, err := h.service.GetWorkflow(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workflowResponse(workflow)})
}

// TriggerExecution POST /workflows/:id/executions. Runner failures are recorded
// before the error is returned, so they are not retried here.
func (h *WorkflowsHandler) TriggerExecution(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.TriggerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.TimeoutSeconds < 0 {
		return apperrors.NewValidationError("timeout_seconds must not be negative", nil)
	}
	res, err := h.service.TriggerExecution(c.UserContext(), caller, c.Params("id"), service.TriggerInput{
		Input:   req.Input,
		Timeout: time.Duration(req.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.TriggerResponse{
		Workflow:  workflowResponse(res.Workflow),
		Execution: executionResponse(res.Execution),
	}})
}

// ListExecutions GET /workflows/:id/executions?limit=.
func (h *WorkflowsHandler) ListExecutions(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	rows, err := h.service.ListExecutions(c.UserContext(), caller, c.Params("id"), parseInt(c.Query("limit"), 50))
	if err != nil {
		return err
	}
	items := make([]dto.ExecutionResponse, 0, len(rows))
	for i := range rows {
		items = append(items, executionResponse(&rows[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
