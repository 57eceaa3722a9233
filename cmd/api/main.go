package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/cityfix-service/internal/api/http"
	"github.com/spec-kit/cityfix-service/internal/api/http/handlers"
	"github.com/spec-kit/cityfix-service/internal/auth"
	"github.com/spec-kit/cityfix-service/internal/config"
	"github.com/spec-kit/cityfix-service/internal/events"
	"github.com/spec-kit/cityfix-service/internal/observability"
	"github.com/spec-kit/cityfix-service/internal/persistence"
	"github.com/spec-kit/cityfix-service/internal/queue"
	"github.com/spec-kit/cityfix-service/internal/repository"
	"github.com/spec-kit/cityfix-service/internal/service"
	"github.com/spec-kit/cityfix-service/internal/storage"
	"github.com/spec-kit/cityfix-service/internal/worker"
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

	publisher, err := queue.NewPublisher(cfg.AMQP, logger)
	if err != nil {
		logger.Fatal("failed to connect amqp", zap.Error(err))
	}
	if publisher != nil {
		defer publisher.Close()
	}

	mediaStore, err := storage.NewMediaStore(ctx, cfg.Minio, logger)
	if err != nil {
		logger.Fatal("failed to connect object storage", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	issueRepo := repository.NewIssueRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	quotaGuard := service.NewQuotaGuard(issueRepo, redis, logger,
		cfg.Quota.FreeIssueLimit, cfg.Quota.LockTTL())

	userService := service.NewUserService(userRepo, logger)
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:  issueRepo,
		UserRepo:   userRepo,
		Quota:      quotaGuard,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	paymentService := service.NewPaymentService(service.PaymentDependencies{
		PaymentRepo: paymentRepo,
		UserRepo:    userRepo,
		Issues:      issueService,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	statsService := service.NewStatsService(statsRepo, redis, logger)
	notificationService := service.NewNotificationService(dispatcher, publisher, logger)
	worker.StartNotificationWorker(notificationService)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg),
		Auth:           handlers.NewAuthHandler(userService, tokenManager),
		Users:          handlers.NewUsersHandler(userService),
		Issues:         handlers.NewIssuesHandler(issueService),
		Payments:       handlers.NewPaymentsHandler(paymentService),
		Stats:          handlers.NewStatsHandler(statsService),
		Media:          handlers.NewMediaHandler(mediaStore),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
