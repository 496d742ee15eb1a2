package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/staff-access-service/internal/api/http"
	"github.com/spec-kit/staff-access-service/internal/api/http/handlers"
	"github.com/spec-kit/staff-access-service/internal/auth"
	"github.com/spec-kit/staff-access-service/internal/config"
	"github.com/spec-kit/staff-access-service/internal/events"
	"github.com/spec-kit/staff-access-service/internal/observability"
	"github.com/spec-kit/staff-access-service/internal/persistence"
	"github.com/spec-kit/staff-access-service/internal/realtime"
	"github.com/spec-kit/staff-access-service/internal/repository"
	"github.com/spec-kit/staff-access-service/internal/service"
	"github.com/spec-kit/staff-access-service/internal/worker"
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
	ownerRepo := repository.NewOwnerRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	presence := realtime.NewPresenceTracker(redis.Client, cfg.Realtime.PresenceTTL(), logger)
	registry := realtime.NewRegistry(cfg.Realtime.RegistryShardBits, presence.Hooks())

	var backplane *realtime.Backplane
	if cfg.Realtime.BackplaneEnabled {
		backplane = realtime.NewBackplane(redis.Client, cfg.Realtime.BackplaneChannel, logger)
	}
	router := realtime.NewRouter(registry, backplane, logger, metrics)
	if backplane != nil {
		go backplane.Run(ctx, router.Deliver)
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		OwnerRepo:         ownerRepo,
		StaffRepo:         staffRepo,
		PasswordResetRepo: resetRepo,
	})
	accessService := service.NewAccessService(staffRepo, dispatcher, logger)
	staffService := service.NewStaffService(*cfg, staffRepo, dispatcher, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartAccessWorker(dispatcher, router, notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), ownerRepo, staffRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Owners:         handlers.NewOwnersHandler(authService),
		Staff:          handlers.NewStaffHandler(authService, staffService, registry),
		Access:         handlers.NewAccessHandler(accessService, router),
		WS:             handlers.NewWSHandler(authService.TokenManager(), accessService, registry, cfg.Realtime.SessionBuffer, logger),
		AuthMiddleware: authMiddleware,
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
