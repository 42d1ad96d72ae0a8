package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/workforce-hr/workforce/internal/jobs"
	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
			cfg.Logger.Info("scheduled task", slog.String("task", entry.Task.Type()), slog.String("cron", entry.Spec))
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueMembershipAudit enqueues a membership audit. Identical requests
// within the uniqueness window are rejected with asynq.ErrDuplicateTask.
func (c *Client) EnqueueMembershipAudit(ctx context.Context, payload MembershipAuditPayload) (*asynq.TaskInfo, error) {
	task, err := NewMembershipAuditTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Unique(10*time.Minute))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Enqueuer submits membership audits.
type Enqueuer interface {
	EnqueueMembershipAudit(ctx context.Context, payload MembershipAuditPayload) (*asynq.TaskInfo, error)
}

// QueueInspector reports queue depth.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler exposes HTTP endpoints for job observability and on-demand runs.
type Handler struct {
	inspector QueueInspector
	enqueuer  Enqueuer
	rbac      rbac.Middleware
	metrics   *jobmetrics.Metrics
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector QueueInspector, enqueuer Enqueuer, rbac rbac.Middleware, metrics *jobmetrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, enqueuer: enqueuer, rbac: rbac, metrics: metrics, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Authenticated()).Get("/health", h.health)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermComplianceRetention))
		r.Post("/membership-audit", h.enqueueMembershipAudit)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"queue": QueueDefault, "pending": 0})
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "queue unavailable")
		return
	}
	pending := 0
	queueName := QueueDefault
	if info != nil {
		pending = info.Pending
		queueName = info.Queue
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queue": queueName, "pending": pending})
}

// enqueueMembershipAudit scopes the run to the caller's tenant. Superusers
// without an active tenant audit every tenant.
func (h *Handler) enqueueMembershipAudit(w http.ResponseWriter, r *http.Request) {
	p, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue not configured")
		return
	}
	payload := MembershipAuditPayload{TenantID: p.TenantID, RequestedBy: p.UserID}
	info, err := h.enqueuer.EnqueueMembershipAudit(r.Context(), payload)
	h.metrics.ObserveEnqueue(TaskMembershipAudit, err)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "a membership audit for this scope is already queued")
			return
		}
		h.logger.Error("enqueue membership audit", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "could not enqueue")
		return
	}
	h.logger.Info("membership audit enqueued",
		slog.String("task_id", info.ID),
		slog.Int64("tenant_id", p.TenantID),
		slog.Int64("requested_by", p.UserID))
	httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": info.ID, "queue": info.Queue, "tenant_id": p.TenantID})
}
