package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsledger/lifecycle-service/internal/api/http/handlers"
	"github.com/opsledger/lifecycle-service/internal/auth"
	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Entities       *handlers.EntitiesHandler
	Projects       *handlers.ProjectsHandler
	Invoices       *handlers.InvoicesHandler
	Tickets        *handlers.TicketsHandler
	Workflows      *handlers.WorkflowsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	projects := api.Group("/projects")
	projects.Post("/", cfg.Projects.CreateProject)
	projects.Get("/:id", cfg.Projects.GetProject)
	registerLifecycle(projects, cfg.Entities, domain.KindProject)

	proposals := api.Group("/proposals")
	proposals.Post("/", cfg.Projects.CreateProposal)
	proposals.Get("/:id", cfg.Projects.GetProposal)
	registerLifecycle(proposals, cfg.Entities, domain.KindProposal)

	invoices := api.Group("/invoices")
	invoices.Post("/", cfg.Invoices.CreateInvoice)
	invoices.Get("/:id", cfg.Invoices.GetInvoice)
	invoices.Post("/:id/payments", cfg.Invoices.RecordPayment)
	registerLifecycle(invoices, cfg.Entities, domain.KindInvoice)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/at-risk", cfg.Tickets.AtRisk)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/priority", cfg.Tickets.UpdatePriority)
	tickets.Post("/:id/response", cfg.Tickets.RecordFirstResponse)
	registerLifecycle(tickets, cfg.Entities, domain.KindTicket)

	workflows := api.Group("/workflows")
	workflows.Post("/", cfg.Workflows.CreateWorkflow)
	workflows.Get("/:id", cfg.Workflows.GetWorkflow)
	workflows.Post("/:id/executions", cfg.Workflows.TriggerExecution)
	workflows.Get("/:id/executions", cfg.Workflows.ListExecutions)
	registerLifecycle(workflows, cfg.Entities, domain.KindWorkflow)

	api.Get("/:kind/:id/history", cfg.Entities.History)
}

func registerLifecycle(group fiber.Router, h *handlers.EntitiesHandler, kind domain.EntityKind) {
	group.Post("/:id/status", h.ChangeStatus(kind))
	group.Get("/:id/transitions", h.Transitions(kind))
}
