package users

import (
	"errors"
	"fmt"
	"time"

	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
)

// Member is a user as seen from one tenant.
type Member struct {
	UserID   int64     `json:"user_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	IsActive bool      `json:"is_active"`
	Role     rbac.Role `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// MembershipChange is the decision applied to a locked membership row.
type MembershipChange struct {
	Remove bool
	Role   rbac.Role
	Audit  shared.AuditLog
}

var (
	ErrSelfManagement    = fmt.Errorf("%w: users cannot change their own membership", httpx.ErrForbidden)
	ErrRoleNotManageable = fmt.Errorf("%w: role is outside your delegation", httpx.ErrForbidden)
	ErrTenantRequired    = fmt.Errorf("%w: %w", httpx.ErrForbidden, rbac.ErrNoTenant)
	ErrMemberNotFound    = fmt.Errorf("%w: member", httpx.ErrNotFound)
	ErrInvalidRole       = fmt.Errorf("%w: role", httpx.ErrValidation)
	ErrLastTenantAdmin   = fmt.Errorf("%w: tenant must keep at least one tenant admin", httpx.ErrConflict)
)

// isPolicyError reports whether err was produced by membership policy rather
// than by storage.
func isPolicyError(err error) bool {
	for _, target := range []error{ErrSelfManagement, ErrRoleNotManageable, ErrTenantRequired, ErrMemberNotFound, ErrInvalidRole, ErrLastTenantAdmin} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
