package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
)

// Handler serves the role catalogue.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView))
		r.Get("/", h.listRoles)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	p, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	entries, err := h.service.Catalogue(r.Context(), p)
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": entries})
}
