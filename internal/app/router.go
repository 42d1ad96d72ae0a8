package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/workforce-hr/workforce/internal/audit/http"
	"github.com/workforce-hr/workforce/internal/auth"
	"github.com/workforce-hr/workforce/internal/observability"
	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/roles"
	"github.com/workforce-hr/workforce/internal/shared"
	"github.com/workforce-hr/workforce/internal/tenancy"
	"github.com/workforce-hr/workforce/internal/users"
	"github.com/workforce-hr/workforce/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware

	AuthHandler        *auth.Handler
	TenancyHandler     *tenancy.Handler
	PermissionsHandler *rbac.PermissionsHandler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	AuditHandler       *audithttp.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with workforce defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.TenancyHandler != nil {
		r.Route("/tenants", params.TenancyHandler.MountRoutes)
	}
	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		r.Route("/me", params.PermissionsHandler.MountSelfRoutes)
	}
	if params.RolesHandler != nil {
		r.Route("/roles", params.RolesHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	return r
}
