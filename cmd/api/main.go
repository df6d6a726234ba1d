package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/PicoRmin/TicketingBot-sub000/internal/api/http"
	"github.com/PicoRmin/TicketingBot-sub000/internal/api/http/handlers"
	"github.com/PicoRmin/TicketingBot-sub000/internal/config"
	"github.com/PicoRmin/TicketingBot-sub000/internal/events"
	"github.com/PicoRmin/TicketingBot-sub000/internal/observability"
	"github.com/PicoRmin/TicketingBot-sub000/internal/persistence"
	"github.com/PicoRmin/TicketingBot-sub000/internal/repository"
	"github.com/PicoRmin/TicketingBot-sub000/internal/service"
	"github.com/PicoRmin/TicketingBot-sub000/internal/worker"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	ruleRepo := repository.NewSLARuleRepository(pool)
	logRepo := repository.NewSLALogRepository(pool)

	slaService := service.NewSLAService(service.SLADependencies{
		RuleRepo:   ruleRepo,
		LogRepo:    logRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	reportService := service.NewSLAReportService(logRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		DepartmentRepo: departmentRepo,
		SLATracker:     slaService,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	scanWorker := worker.NewSLAScanWorker(slaService, redis, metrics, logger, cfg.SLA)
	if err := scanWorker.Start(); err != nil {
		logger.Fatal("failed to start sla scan worker", zap.Error(err))
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets: handlers.NewTicketsHandler(ticketService),
		SLA:     handlers.NewSLAHandler(ruleRepo, reportService, slaService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	scanWorker.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
