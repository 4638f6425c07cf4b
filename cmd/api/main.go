package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/task-sync/internal/api/http"
	"github.com/spec-kit/task-sync/internal/api/http/handlers"
	"github.com/spec-kit/task-sync/internal/auth"
	"github.com/spec-kit/task-sync/internal/config"
	"github.com/spec-kit/task-sync/internal/events"
	"github.com/spec-kit/task-sync/internal/observability"
	"github.com/spec-kit/task-sync/internal/persistence"
	"github.com/spec-kit/task-sync/internal/repository"
	"github.com/spec-kit/task-sync/internal/service"
	"github.com/spec-kit/task-sync/internal/worker"
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

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		logger.Fatal("failed to init token verifier", zap.Error(err))
	}

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

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	itemRepo := repository.NewItemRepository(pool)

	bus := events.NewBus(cfg.Stream.Backlog)
	workerDone := worker.StartEventLogWorker(ctx, bus, logger)

	guard := service.NewLoginGuard(redis.Client, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow(), logger)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Verifier:   verifier,
		Guard:      guard,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	itemService := service.NewItemService(service.ItemDependencies{
		ItemRepo:  itemRepo,
		Publisher: bus,
		Logger:    logger,
	})

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		AllowedOrigin:  cfg.App.AllowedOrigin,
		RequestTimeout: cfg.App.RequestTimeout(),
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(handlers.HealthDependencies{
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Postgres:    pg,
			Redis:       redis,
			Metrics:     metrics,
			Bus:         bus,
		}),
		Auth:  handlers.NewAuthHandler(authService),
		Items: handlers.NewItemsHandler(itemService, verifier),
		Stream: handlers.NewStreamHandler(ctx, bus, verifier, handlers.StreamOptions{
			RequireToken: cfg.Stream.RequireToken,
			WriteTimeout: cfg.Stream.WriteTimeout(),
		}, logger.Named("stream")),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	bus.Close()
	<-workerDone
	if err := app.Shutdown(); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
