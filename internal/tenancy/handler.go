package tenancy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
)

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Handler exposes tenant listing and switching.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	audit     AuditRecorder
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit AuditRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, audit: audit, validator: validator.New()}
}

// MountRoutes registers tenant routes. These run before a tenant is bound,
// so they only require a logged-in session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listTenants)
	r.Post("/active", h.switchTenant)
}

type switchRequest struct {
	TenantID int64 `json:"tenant_id" validate:"required,gt=0"`
}

func (h *Handler) listTenants(w http.ResponseWriter, r *http.Request) {
	userID, activeID, ok := shared.CurrentUser(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	tenants, err := h.service.Tenants(r.Context(), userID)
	if err != nil {
		h.respondAccessError(w, err)
		return
	}
	if tenants == nil {
		tenants = []Tenant{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"tenants":   tenants,
		"active_id": activeID,
	})
}

func (h *Handler) switchTenant(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	userID, ok := sess.UserID()
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req switchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.SwitchTenant(r.Context(), sess, userID, req.TenantID)
	if err != nil {
		h.respondAccessError(w, err)
		return
	}
	if h.audit != nil {
		entry := shared.AuditLog{
			TenantID: req.TenantID,
			ActorID:  userID,
			Action:   shared.AuditTenantSwitched,
			Entity:   "tenant",
			EntityID: strconv.FormatInt(req.TenantID, 10),
			Meta:     map[string]any{"role": p.Role.String()},
		}
		if err := h.audit.Record(r.Context(), entry); err != nil {
			h.logger.Warn("audit tenant switch", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tenant_id": p.TenantID, "role": p.Role})
}

func (h *Handler) respondAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rbac.ErrNoMembership), errors.Is(err, rbac.ErrNoTenant):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error("tenancy request", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
