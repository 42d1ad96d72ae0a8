package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/workforce-hr/workforce/internal/app"
	jobmetrics "github.com/workforce-hr/workforce/internal/jobs"
	"github.com/workforce-hr/workforce/internal/platform/db"
	"github.com/workforce-hr/workforce/internal/shared"
	"github.com/workforce-hr/workforce/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditJob := jobs.NewMembershipAuditJob(
		jobs.NewPGMembershipStore(pool),
		shared.NewAuditLogger(pool),
		logger,
		jobmetrics.NewMetrics(nil),
	)

	auditTask, err := jobs.NewMembershipAuditTask(jobs.MembershipAuditPayload{})
	if err != nil {
		logger.Error("build membership audit task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskMembershipAudit, Handler: auditJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.MembershipAuditCron, Task: auditTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
