package rbac

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is a privilege level held by a user within a tenant.
type Role string

// Roles ordered from most to least privileged.
const (
	RoleSuperuser   Role = "SUPERUSER"
	RoleTenantAdmin Role = "TENANT_ADMIN"
	RoleManager     Role = "MANAGER"
	RoleUser        Role = "USER"
)

var (
	// ErrUnknownRole is returned when a role string is outside the known set.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrNoTenant indicates the session has no active tenant bound.
	ErrNoTenant = errors.New("rbac: no active tenant")
	// ErrNoMembership indicates the user holds no role in the requested tenant.
	ErrNoMembership = errors.New("rbac: no membership in tenant")
)

// ParseRole converts a stored or submitted role name into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperuser, RoleTenantAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// DisplayName renders the role for humans, e.g. "Tenant Admin".
func (r Role) DisplayName() string {
	// Casers are stateful, so one is built per call.
	return cases.Title(language.English).String(strings.ReplaceAll(string(r), "_", " "))
}

// Principal is the authenticated actor evaluated by permission checks.
// TenantID is zero for superusers acting outside any tenant.
type Principal struct {
	UserID   int64
	TenantID int64
	Role     Role
}

// IsSuperUser reports whether the principal bypasses tenant scoping.
func (p Principal) IsSuperUser() bool {
	return p.Role == RoleSuperuser
}
