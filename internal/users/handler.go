package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
	"github.com/workforce-hr/workforce/internal/tenancy"
)

// Handler manages tenant members.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	_ = v.RegisterValidation("membership_role", func(fl validator.FieldLevel) bool {
		_, err := tenancy.MembershipRole(fl.Field().String())
		return err == nil
	})
	return &Handler{logger: logger, service: service, rbac: rbac, validator: v}
}

// MountRoutes registers member routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView))
		r.Get("/", h.listMembers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermUsersEdit))
		r.Put("/{id}/role", h.changeRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermUsersDelete))
		r.Delete("/{id}", h.removeMember)
	})
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,membership_role"`
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	members, pg, err := h.service.ListMembers(r.Context(), actor, page, perPage)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	if members == nil {
		members = []Member{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": members, "pagination": pg})
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	target, ok := parseID(w, r)
	if !ok {
		return
	}
	var req changeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	member, err := h.service.ChangeRole(r.Context(), actor, target, req.Role)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	h.logger.Info("member role changed",
		slog.Int64("tenant_id", actor.TenantID),
		slog.Int64("actor_id", actor.UserID),
		slog.Int64("user_id", target),
		slog.String("role", member.Role.String()))
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	target, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveMember(r.Context(), actor, target); err != nil {
		h.respond(w, r, err)
		return
	}
	h.logger.Info("member removed",
		slog.Int64("tenant_id", actor.TenantID),
		slog.Int64("actor_id", actor.UserID),
		slog.Int64("user_id", target))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, err error) {
	if !isPolicyError(err) {
		h.logger.Error("users request", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return 0, false
	}
	return id, true
}
