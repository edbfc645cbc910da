package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/caseperl/caseperl-api/internal/api"
	"github.com/caseperl/caseperl-api/internal/api/handler"
	"github.com/caseperl/caseperl-api/internal/api/middleware"
	"github.com/caseperl/caseperl-api/internal/core/service"
	"github.com/caseperl/caseperl-api/internal/infrastructure/config"
	mongostore "github.com/caseperl/caseperl-api/internal/infrastructure/db/mongo"
	redisstore "github.com/caseperl/caseperl-api/internal/infrastructure/db/redis"
	"github.com/caseperl/caseperl-api/internal/infrastructure/db/sqlite"
	"github.com/caseperl/caseperl-api/internal/infrastructure/queue"
	"github.com/caseperl/caseperl-api/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "caseperl-api",
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	store, err := sqlite.Open(ctx, cfg.SQLite.DSN)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.ApplyMigrations(); err != nil {
		return err
	}

	mongoClient, mongoDB, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	eventRepo := mongostore.NewEventRepository(mongoDB)
	if err := eventRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	redisClient, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// --- Services ---
	tokens := service.NewTokenManager(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})
	authService := service.NewAuthService(
		store.Users(),
		redisstore.NewRevocationStore(redisClient),
		tokens,
		service.AuthOptions{RotateRefresh: cfg.JWT.RotateRefresh},
		log,
	)

	eventService := service.NewEventService(store.Cases(), eventRepo, log)
	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, eventService, log)
	dispatcher.Start()

	caseService := service.NewCaseService(store.Cases(), dispatcher, log)

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Auth:   authService,
		Cases:  caseService,
		Events: eventService,
		Checks: map[string]handler.Pinger{
			"sqlite": store,
			"mongodb": handler.PingFunc(func(ctx context.Context) error {
				return mongoClient.Ping(ctx, nil)
			}),
			"redis": handler.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		},
		RateLimit: middleware.RateLimitConfig{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
			Burst:    cfg.RateLimit.Burst,
		},
		Logger: log,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("audit dispatcher did not drain before timeout")
	}

	log.Info().Msg("server stopped")
	return nil
}
