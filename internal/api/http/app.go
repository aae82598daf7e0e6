package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/opsledger/lifecycle-service/internal/api/http/handlers"
	"github.com/opsledger/lifecycle-service/internal/auth"
	"github.com/opsledger/lifecycle-service/internal/observability"
	"github.com/opsledger/lifecycle-service/internal/service"
)

// AppDependencies is everything the HTTP surface needs.
type AppDependencies struct {
	Name           string
	Version        string
	Service        *service.LifecycleService
	Tokens         *auth.TokenManager
	Retry          *handlers.Retrier
	AtRiskWindow   time.Duration
	RequestTimeout time.Duration
	Dependencies   map[string]handlers.Pinger
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewApp builds the fiber application with middlewares and routes.
func NewApp(deps AppDependencies) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Retry == nil {
		deps.Retry = handlers.NewRetrier(1, 0)
	}
	app := fiber.New(fiber.Config{AppName: deps.Name, DisableStartupMessage: true})
	RegisterMiddlewares(app, deps.Logger, deps.Metrics, deps.RequestTimeout)

	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(deps.Name, deps.Version, deps.Dependencies),
		Entities:       handlers.NewEntitiesHandler(deps.Service, deps.Retry),
		Projects:       handlers.NewProjectsHandler(deps.Service),
		Invoices:       handlers.NewInvoicesHandler(deps.Service, deps.Retry),
		Tickets:        handlers.NewTicketsHandler(deps.Service, deps.Retry, deps.AtRiskWindow),
		Workflows:      handlers.NewWorkflowsHandler(deps.Service),
		AuthMiddleware: auth.NewAuthMiddleware(deps.Tokens),
		Metrics:        deps.Metrics,
	})
	return app
}
