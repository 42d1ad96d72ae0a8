package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/shared"
	"github.com/workforce-hr/workforce/internal/tenancy"
)

// TenantLister lists the tenants a user may bind.
type TenantLister interface {
	Tenants(ctx context.Context, userID int64) ([]tenancy.Tenant, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	tenants        TenantLister
	loginLimit     int
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance. loginLimit caps login attempts
// per client IP and minute; zero disables the limit.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, tenants TenantLister, loginLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		tenants:        tenants,
		loginLimit:     loginLimit,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.issueToken)
	if h.loginLimit > 0 {
		r.With(httprate.LimitByIP(h.loginLimit, time.Minute)).Post("/login", h.handleLogin)
	} else {
		r.Post("/login", h.handleLogin)
	}
	r.Post("/logout", h.handleLogout)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	TenantID  int64  `json:"tenant_id,omitempty"`
	CSRFToken string `json:"csrf_token"`
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(shared.SessionFromContext(r.Context()))
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("authenticate", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		h.logger.Info("login rejected", slog.String("remote", r.RemoteAddr))
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrInvalidCredentials.Error())
		return
	}

	// A fresh id prevents fixation of a session planted before login.
	sess.Renew()
	sess.SetUser(user.ID)
	token, err := h.csrfManager.RotateToken(sess)
	if err != nil {
		h.logger.Error("rotate csrf token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.bindSoleTenant(r.Context(), sess, user.ID)

	record := SessionRecord{
		ID:        sess.ID,
		UserID:    user.ID,
		ExpiresAt: sessionExpiry(time.Now(), h.sessionManager.TTL()),
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	if err := h.service.RegisterSession(r.Context(), record); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.logger.Info("login", slog.Int64("user_id", user.ID))
	httpx.JSON(w, http.StatusOK, loginResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.DisplayName(),
		TenantID:  sess.TenantID(),
		CSRFToken: token,
	})
}

// bindSoleTenant activates the user's tenant when there is exactly one to
// choose from. Failures leave the session without a tenant.
func (h *Handler) bindSoleTenant(ctx context.Context, sess *shared.Session, userID int64) {
	if h.tenants == nil {
		return
	}
	tenants, err := h.tenants.Tenants(ctx, userID)
	if err != nil {
		h.logger.Warn("list tenants on login", slog.Int64("user_id", userID), slog.Any("error", err))
		return
	}
	if len(tenants) == 1 {
		sess.SetTenant(tenants[0].ID)
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}
