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

	"github.com/workforce-hr/workforce/internal/app"
	"github.com/workforce-hr/workforce/internal/audit"
	audithttp "github.com/workforce-hr/workforce/internal/audit/http"
	"github.com/workforce-hr/workforce/internal/auth"
	jobmetrics "github.com/workforce-hr/workforce/internal/jobs"
	"github.com/workforce-hr/workforce/internal/observability"
	"github.com/workforce-hr/workforce/internal/platform/cache"
	"github.com/workforce-hr/workforce/internal/platform/db"
	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/roles"
	"github.com/workforce-hr/workforce/internal/shared"
	"github.com/workforce-hr/workforce/internal/tenancy"
	"github.com/workforce-hr/workforce/internal/users"
	"github.com/workforce-hr/workforce/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	var roleCache *tenancy.RoleCache
	if cfg.RoleCacheTTL > 0 {
		roleCache = tenancy.NewRoleCache(redisClient, cfg.RoleCacheTTL)
	}
	tenancyService := tenancy.NewService(tenancy.NewRepository(dbpool), roleCache)
	rbacMiddleware := rbac.Middleware{Principals: tenancyService, Logger: logger, Metrics: metrics}

	authHandler := auth.NewHandler(logger, auth.NewService(auth.NewRepository(dbpool)), sessionManager, csrfManager, tenancyService, cfg.LoginRateLimit)
	tenancyHandler := tenancy.NewHandler(logger, tenancyService, auditLogger)
	permissionsHandler := rbac.NewPermissionsHandler(logger, rbacMiddleware)
	rolesHandler := roles.NewHandler(logger, roles.NewService(roles.NewRepository(dbpool)), rbacMiddleware)
	usersService := users.NewService(users.NewRepository(dbpool, auditLogger), tenancyService, logger)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)
	auditHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, rbacMiddleware, jobMetrics, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        authHandler,
		TenancyHandler:     tenancyHandler,
		PermissionsHandler: permissionsHandler,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		AuditHandler:       auditHandler,
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
