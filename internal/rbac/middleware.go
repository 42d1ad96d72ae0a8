package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/workforce-hr/workforce/internal/observability"
	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/shared"
)

// PrincipalSource resolves the role a user holds in a tenant.
type PrincipalSource interface {
	Principal(ctx context.Context, userID, tenantID int64) (Principal, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Principals PrincipalSource
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// RequirePermission ensures the current principal holds perm.
func (m Middleware) RequirePermission(perm string) func(http.Handler) http.Handler {
	return m.RequireAll(perm)
}

// RequireAny ensures the current principal has at least one of the required
// permissions. With no permissions every request is denied.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.guard(normalizePermissions(perms), HasAnyPermission)
}

// RequireAll ensures the current principal has all required permissions. With
// no permissions it only requires a resolvable principal.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.guard(normalizePermissions(perms), HasAllPermissions)
}

// Authenticated resolves the principal without checking any permission.
func (m Middleware) Authenticated() func(http.Handler) http.Handler {
	return m.RequireAll()
}

func (m Middleware) guard(required []string, check func(Role, ...string) bool) func(http.Handler) http.Handler {
	label := strings.Join(required, ",")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, tenantID, ok := shared.CurrentUser(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			principal, err := m.Principals.Principal(r.Context(), userID, tenantID)
			if err != nil {
				if errors.Is(err, ErrNoTenant) || errors.Is(err, ErrNoMembership) {
					m.deny(w, r, userID, label, err.Error())
					return
				}
				m.logger().Error("rbac resolve principal", slog.Int64("user_id", userID), slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !check(principal.Role, required...) {
				m.deny(w, r, userID, label, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, userID int64, label, detail string) {
	m.logger().Warn("rbac denied",
		slog.Int64("user_id", userID),
		slog.String("path", r.URL.Path),
		slog.String("required", label),
		slog.String("reason", detail))
	m.Metrics.ObserveDenied(label)
	httpx.Problem(w, http.StatusForbidden, "Forbidden", detail)
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
