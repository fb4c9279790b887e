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

	httptransport "github.com/spec-kit/custody-service/internal/api/http"
	"github.com/spec-kit/custody-service/internal/api/http/handlers"
	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/config"
	"github.com/spec-kit/custody-service/internal/events"
	"github.com/spec-kit/custody-service/internal/observability"
	"github.com/spec-kit/custody-service/internal/persistence"
	"github.com/spec-kit/custody-service/internal/repository"
	"github.com/spec-kit/custody-service/internal/service"
	"github.com/spec-kit/custody-service/internal/worker"
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

	pool := pg.PoolHandle()
	identityRepo := repository.NewIdentityRepository(pool)
	tokenRepo := repository.NewProvisionTokenRepository(pool)
	acquisitionRepo := repository.NewAcquisitionRepository(pool)
	transportRepo := repository.NewTransportRepository(pool)
	processingRepo := repository.NewProcessingRepository(pool)
	disposalRepo := repository.NewDisposalRepository(pool)

	var revocations auth.RevocationStore
	if err := redis.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, falling back to in-memory revocation store", zap.Error(err))
		memStore := auth.NewMemoryRevocationStore(0)
		defer memStore.Stop()
		revocations = memStore
	} else {
		revocations = auth.NewRedisRevocationStore(redis.Client)
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		IdentityRepo:       identityRepo,
		ProvisionTokenRepo: tokenRepo,
		RevocationStore:    revocations,
		Dispatcher:         dispatcher,
		Logger:             logger,
	})
	custodyService := service.NewCustodyService(service.CustodyDependencies{
		AcquisitionRepo: acquisitionRepo,
		TransportRepo:   transportRepo,
		ProcessingRepo:  processingRepo,
		DisposalRepo:    disposalRepo,
		TokenManager:    authService.SessionManager(),
		Dispatcher:      dispatcher,
		Logger:          logger,
	})
	notifications := service.NewNotificationService(*cfg, logger)
	worker.RegisterNotificationHandlers(dispatcher, notifications)
	worker.StartTokenReaper(ctx, tokenRepo,
		timeMinutes(cfg.Auth.TokenReapIntervalMin), logger)

	authMiddleware := auth.NewAuthMiddleware(authService.SessionManager(), identityRepo, revocations, logger)

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env == "production"})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Acquisitions:   handlers.NewAcquisitionHandler(custodyService),
		Transports:     handlers.NewTransportHandler(custodyService),
		Processings:    handlers.NewProcessingHandler(custodyService),
		Disposals:      handlers.NewDisposalHandler(custodyService),
		Admin:          handlers.NewAdminHandler(authService, custodyService, metrics),
		AuthMiddleware: authMiddleware,
		LoginLimit:     cfg.RateLimit.Max,
		LoginWindow:    cfg.RateLimit.RateLimitWindow(),
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

func timeMinutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
