package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsledger/lifecycle-service/internal/api/dto"
	"github.com/opsledger/lifecycle-service/internal/service"
)

// ProjectsHandler manages project and proposal endpoints.
type ProjectsHandler struct {
	service *service.LifecycleService
}

// NewProjectsHandler constructs handler.
func NewProjectsHandler(svc *service.LifecycleService) *ProjectsHandler {
	return &ProjectsHandler{service: svc}
}

// CreateProject POST /projects.
func (h *ProjectsHandler) CreateProject(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateProjectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	project, err := h.service.CreateProject(c.UserContext(), caller, service.ProjectCreateInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": projectResponse(project)})
}

// GetProject GET /projects/:id.
func (h *ProjectsHandler) GetProject(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	project, err := h.service.GetProject(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": projectResponse(project)})
}

// CreateProposal POST /proposals.
func (h *ProjectsHandler) CreateProposal(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateProposalRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	proposal, err := h.service.CreateProposal(c.UserContext(), caller, service.ProposalCreateInput{
		ProjectID: req.ProjectID,
		Title:     req.Title,
		Amount:    req.Amount,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": proposalResponse(proposal)})
}

// GetProposal GET /proposals/:id.
func (h *ProjectsHandler) GetProposal(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	proposal, err := h.service.GetProposal(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": proposalResponse(proposal)})
}
