package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/opsledger/lifecycle-service/internal/api/http"
	"github.com/opsledger/lifecycle-service/internal/api/http/handlers"
	"github.com/opsledger/lifecycle-service/internal/auth"
	"github.com/opsledger/lifecycle-service/internal/clock"
	"github.com/opsledger/lifecycle-service/internal/config"
	"github.com/opsledger/lifecycle-service/internal/events"
	"github.com/opsledger/lifecycle-service/internal/observability"
	"github.com/opsledger/lifecycle-service/internal/persistence"
	"github.com/opsledger/lifecycle-service/internal/repository"
	"github.com/opsledger/lifecycle-service/internal/runner"
	"github.com/opsledger/lifecycle-service/internal/service"
	"github.com/opsledger/lifecycle-service/internal/sla"
	"github.com/opsledger/lifecycle-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.Configured() {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var store repository.Store
	readiness := map[string]handlers.Pinger{"redis": redis}
	if pg.Configured() {
		store = repository.NewPostgresStore(pg.PoolHandle())
		readiness["postgres"] = pg
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		store = repository.NewMemoryStore()
	}

	policies, err := sla.LoadTable(cfg.SLA.PolicyFile)
	if err != nil {
		logger.Fatal("failed to load sla policy", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var publisher events.Publisher
	if cfg.Broker.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			logger.Fatal("failed to connect broker", zap.Error(err))
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}
	worker.StartEventRelay(service.NewEventRelay(dispatcher, publisher, logger, metrics))

	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		Store:         store,
		Clock:         clock.System(),
		Policies:      policies,
		Runner:        runner.NewN8NClient(cfg.Runner.BaseURL, cfg.Runner.APIKey),
		RunnerTimeout: cfg.Runner.DefaultTimeout(),
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})

	if cfg.SLA.SweepEnabled {
		sweeper := worker.NewSweeper(lifecycle, redis, worker.SweeperConfig{
			Interval:     cfg.SLA.SweepInterval(),
			AtRiskWindow: cfg.SLA.AtRiskWindow(),
			DedupTTL:     cfg.SLA.DedupTTL(),
		}, logger)
		go sweeper.Run(ctx)
	}

	app := httptransport.NewApp(httptransport.AppDependencies{
		Name:           cfg.App.Name,
		Version:        cfg.App.Version,
		Service:        lifecycle,
		Tokens:         auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		Retry:          handlers.NewRetrier(cfg.Retry.ConflictAttempts, cfg.Retry.Backoff()),
		AtRiskWindow:   cfg.SLA.AtRiskWindow(),
		RequestTimeout: cfg.App.RequestTimeout(),
		Dependencies:   readiness,
		Metrics:        metrics,
		Logger:         logger,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
