package audithttp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/shared"
)

const (
	exportLimit  = 10
	exportWindow = time.Minute
)

// MountRoutes registers the audit trail and its CSV export.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(exportLimit, exportWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export limit reached")
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermAuditView))
		r.Get("/", h.handleTimeline)
		r.With(limiter).Get("/export.csv", h.handleExport)
	})
}

// rateLimitKey buckets exports per user and tenant, falling back to the
// client IP for requests that reach the limiter without a session user.
func rateLimitKey(r *http.Request) (string, error) {
	if userID, tenantID, ok := shared.CurrentUser(r.Context()); ok {
		return fmt.Sprintf("audit-export:%d:%d", tenantID, userID), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "audit-export:ip:" + key, nil
}
