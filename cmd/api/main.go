package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fieldops/dispatch/internal/api/http"
	"github.com/fieldops/dispatch/internal/api/http/handlers"
	"github.com/fieldops/dispatch/internal/auth"
	"github.com/fieldops/dispatch/internal/config"
	"github.com/fieldops/dispatch/internal/events"
	"github.com/fieldops/dispatch/internal/notify"
	"github.com/fieldops/dispatch/internal/observability"
	"github.com/fieldops/dispatch/internal/persistence"
	"github.com/fieldops/dispatch/internal/repository"
	"github.com/fieldops/dispatch/internal/service"
	"github.com/fieldops/dispatch/internal/worker"
)

const streamHeartbeat = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewExternalTicketRepository(pool)
	internalRepo := repository.NewInternalTicketRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	sectorRepo := repository.NewSectorRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	logRepo := repository.NewSystemLogRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	events.NewChangeFeed(redis.Client, cfg.Redis.ChangeChannel, logger).Attach(dispatcher)

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		UserRepo:   userRepo,
		Sender:     notify.NewWebhookClient(cfg.Notification, logger),
		Metrics:    metrics,
		Logger:     logger,
	})
	worker.StartNotificationWorker(notificationService)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    ticketRepo,
		UserRepo:      userRepo,
		ClientRepo:    clientRepo,
		SectorRepo:    sectorRepo,
		CommentRepo:   commentRepo,
		SystemLogRepo: logRepo,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		Board:         cfg.Board,
	})
	internalService := service.NewInternalTicketService(service.InternalTicketDependencies{
		TicketRepo:    internalRepo,
		SectorRepo:    sectorRepo,
		CommentRepo:   commentRepo,
		SystemLogRepo: logRepo,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})

	watcher := worker.NewSLAWatcher(ticketRepo, redis.Client, dispatcher, cfg.Board.SLAWatchInterval(), logger)
	go watcher.Run(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env != "development",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Tickets:         handlers.NewTicketsHandler(ticketService),
		InternalTickets: handlers.NewInternalTicketsHandler(internalService),
		Stream:          handlers.NewStreamHandler(events.NewRedisSource(redis.Client, cfg.Redis.ChangeChannel), streamHeartbeat, logger),
		AuthMiddleware:  authMiddleware.Handle,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
