package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/anchorage-labs/anchorage/internal/app"
	"github.com/anchorage-labs/anchorage/internal/auth"
	"github.com/anchorage-labs/anchorage/internal/observability"
	"github.com/anchorage-labs/anchorage/internal/permissions"
	"github.com/anchorage-labs/anchorage/internal/platform/db"
	"github.com/anchorage-labs/anchorage/internal/rbac"
	"github.com/anchorage-labs/anchorage/internal/roles"
	"github.com/anchorage-labs/anchorage/internal/settings"
	"github.com/anchorage-labs/anchorage/internal/users"
	"github.com/anchorage-labs/anchorage/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	guard := db.NewGuard(cfg.GuardAttempts, cfg.GuardDelay, logger)
	guard.OnRetry(metrics.RecordGuardRetry)

	settingsRepo := settings.NewRepository(dbpool)
	settingsService := settings.NewService(settingsRepo, redisClient, cfg.SettingsCacheTTL, logger)

	hasher := auth.Hasher{}

	rolesRepo := roles.NewRepository(dbpool, guard)
	rolesService := roles.NewService(rolesRepo)

	usersRepo := users.NewRepository(dbpool, guard)
	usersService := users.NewService(usersRepo, hasher, settingsService, rolesRepo, logger)

	permissionsRepo := permissions.NewRepository(dbpool, guard)
	permissionsService := permissions.NewService(permissionsRepo)

	blacklist := auth.NewBlacklist(dbpool)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, blacklist, logger)

	rbacStore := rbac.NewStore(dbpool)
	rbacService := rbac.NewService(rbacStore)

	authService := auth.NewService(tokens, hasher, usersRepo, rolesRepo, usersService, logger)
	authHandler := auth.NewHandler(logger, authService, metrics, rbacService)
	authMiddleware := auth.Middleware{Tokens: tokens}

	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}
	rbacHandler := rbac.NewHandler(logger, rbacService)

	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)
	rolesHandler := roles.NewHandler(logger, rolesService, rbacMiddleware)
	permissionsHandler := permissions.NewHandler(logger, permissionsService, rbacMiddleware)
	settingsHandler := settings.NewHandler(logger, settingsService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		RBACHandler:        rbacHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		SettingsHandler:    settingsHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
