package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/shared"
)

// PermissionsHandler exposes the role/permission matrix and the caller's
// effective capabilities.
type PermissionsHandler struct {
	logger *slog.Logger
	rbac   Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, rbac Middleware) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionsHandler{logger: logger, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView))
		r.Get("/", h.listMatrix)
	})
}

// MountSelfRoutes registers the /me endpoints.
func (h *PermissionsHandler) MountSelfRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticated())
		r.Get("/permissions", h.showEffective)
	})
}

type roleGrants struct {
	Role        Role     `json:"role"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type capabilities struct {
	ManageUsers          bool `json:"manage_users"`
	ApproveTimesheets    bool `json:"approve_timesheets"`
	ManageBilling        bool `json:"manage_billing"`
	AccessAdvancedReport bool `json:"access_advanced_reports"`
	ManageSystem         bool `json:"manage_system"`
}

type effectivePermissions struct {
	UserID       int64        `json:"user_id"`
	TenantID     int64        `json:"tenant_id,omitempty"`
	Role         Role         `json:"role"`
	Permissions  []string     `json:"permissions"`
	Capabilities capabilities `json:"capabilities"`
	Manageable   []Role       `json:"manageable_roles"`
}

func (h *PermissionsHandler) listMatrix(w http.ResponseWriter, r *http.Request) {
	roles := RoleHierarchy()
	matrix := make([]roleGrants, 0, len(roles))
	for _, role := range roles {
		matrix = append(matrix, roleGrants{Role: role, Name: role.DisplayName(), Permissions: Permissions(role)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": matrix, "permissions": shared.AllScopes()})
}

func (h *PermissionsHandler) showEffective(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.logger.Error("principal missing after rbac middleware", slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, effectivePermissions{
		UserID:      p.UserID,
		TenantID:    p.TenantID,
		Role:        p.Role,
		Permissions: Permissions(p.Role),
		Capabilities: capabilities{
			ManageUsers:          CanManageUsers(p.Role),
			ApproveTimesheets:    CanApproveTimesheets(p.Role),
			ManageBilling:        CanManageBilling(p.Role),
			AccessAdvancedReport: CanAccessAdvancedReports(p.Role),
			ManageSystem:         CanManageSystem(p.Role),
		},
		Manageable: ManageableRoles(p.Role),
	})
}
