package rbac

import (
	"fmt"
	"sort"

	"github.com/workforce-hr/workforce/internal/shared"
)

var hierarchy = [...]Role{RoleSuperuser, RoleTenantAdmin, RoleManager, RoleUser}

var userGrants = []string{
	shared.PermTimesheetsCreate,
	shared.PermTimesheetsViewOwn,
	shared.PermTimesheetsEdit,
	shared.PermVacationsRequest,
	shared.PermSickLeaveReport,
	shared.PermReportsBasic,
	shared.PermTenantView,
}

var managerGrants = concat(userGrants, []string{
	shared.PermTimesheetsViewAll,
	shared.PermTimesheetsApprove,
	shared.PermTimesheetsExport,
	shared.PermVacationsViewAll,
	shared.PermVacationsApprove,
	shared.PermSickLeaveViewAll,
	shared.PermSickLeaveApprove,
	shared.PermUsersView,
	shared.PermReportsAdvanced,
	shared.PermReportsExport,
})

var tenantAdminGrants = concat(managerGrants, []string{
	shared.PermTimesheetsDelete,
	shared.PermUsersCreate,
	shared.PermUsersEdit,
	shared.PermUsersDelete,
	shared.PermTenantSettings,
	shared.PermBillingView,
	shared.PermBillingManage,
	shared.PermAuditView,
	shared.PermComplianceRetention,
})

var rolePermissions = map[Role]map[string]struct{}{
	RoleSuperuser:   toSet(shared.AllScopes()),
	RoleTenantAdmin: toSet(tenantAdminGrants),
	RoleManager:     toSet(managerGrants),
	RoleUser:        toSet(userGrants),
}

// manageable is the delegation policy. It is maintained by hand and must not be
// derived from the hierarchy: tenant admins cannot manage their peers.
var manageable = map[Role]map[Role]bool{
	RoleSuperuser: {
		RoleSuperuser:   true,
		RoleTenantAdmin: true,
		RoleManager:     true,
		RoleUser:        true,
	},
	RoleTenantAdmin: {
		RoleManager: true,
		RoleUser:    true,
	},
	RoleManager: {
		RoleUser: true,
	},
	RoleUser: {},
}

func init() {
	known := toSet(shared.AllScopes())
	for _, role := range hierarchy {
		perms, ok := rolePermissions[role]
		if !ok {
			panic(fmt.Sprintf("rbac: role %s missing from permission table", role))
		}
		for p := range perms {
			if _, ok := known[p]; !ok {
				panic(fmt.Sprintf("rbac: role %s grants undeclared permission %q", role, p))
			}
		}
		if _, ok := manageable[role]; !ok {
			panic(fmt.Sprintf("rbac: role %s missing from delegation table", role))
		}
	}
	if len(rolePermissions) != len(hierarchy) || len(manageable) != len(hierarchy) {
		panic("rbac: permission tables reference roles outside the hierarchy")
	}
}

func grants(role Role) map[string]struct{} {
	perms, ok := rolePermissions[role]
	if !ok {
		panic(fmt.Sprintf("rbac: unknown role %q", string(role)))
	}
	return perms
}

// HasPermission reports whether role is granted permission.
func HasPermission(role Role, permission string) bool {
	_, ok := grants(role)[permission]
	return ok
}

// HasAnyPermission reports whether role holds at least one of permissions.
// An empty list is never satisfied.
func HasAnyPermission(role Role, permissions ...string) bool {
	perms := grants(role)
	for _, p := range permissions {
		if _, ok := perms[p]; ok {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether role holds every one of permissions.
// An empty list is always satisfied.
func HasAllPermissions(role Role, permissions ...string) bool {
	perms := grants(role)
	for _, p := range permissions {
		if _, ok := perms[p]; !ok {
			return false
		}
	}
	return true
}

// Permissions returns the sorted permission names granted to role.
func Permissions(role Role) []string {
	perms := grants(role)
	out := make([]string, 0, len(perms))
	for p := range perms {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// CanManageUsers reports whether role may create, edit and delete users.
func CanManageUsers(role Role) bool {
	return HasAllPermissions(role, shared.PermUsersCreate, shared.PermUsersEdit, shared.PermUsersDelete)
}

// CanApproveTimesheets reports whether role holds timesheets.approve.
func CanApproveTimesheets(role Role) bool {
	return HasPermission(role, shared.PermTimesheetsApprove)
}

// CanManageBilling reports whether role holds billing.manage.
func CanManageBilling(role Role) bool {
	return HasPermission(role, shared.PermBillingManage)
}

// CanAccessAdvancedReports reports whether role holds reports.advanced or
// reports.export.
func CanAccessAdvancedReports(role Role) bool {
	return HasAnyPermission(role, shared.PermReportsAdvanced, shared.PermReportsExport)
}

// CanManageSystem reports whether role holds both system.manage and
// system.tenants.
func CanManageSystem(role Role) bool {
	return HasAllPermissions(role, shared.PermSystemManage, shared.PermSystemTenants)
}

// RoleHierarchy returns the roles from most to least privileged.
func RoleHierarchy() []Role {
	out := make([]Role, len(hierarchy))
	copy(out, hierarchy[:])
	return out
}

func rank(role Role) int {
	for i, r := range hierarchy {
		if r == role {
			return i
		}
	}
	panic(fmt.Sprintf("rbac: unknown role %q", string(role)))
}

// IsHigherRole reports whether a is strictly more privileged than b.
func IsHigherRole(a, b Role) bool {
	return rank(a) < rank(b)
}

// CanManageRole reports whether a user holding acting may assign, change or
// remove a user holding target.
func CanManageRole(acting, target Role) bool {
	targets, ok := manageable[acting]
	if !ok {
		panic(fmt.Sprintf("rbac: unknown role %q", string(acting)))
	}
	if !target.Valid() {
		panic(fmt.Sprintf("rbac: unknown role %q", string(target)))
	}
	return targets[target]
}

// ManageableRoles lists, in hierarchy order, the roles acting may manage.
func ManageableRoles(acting Role) []Role {
	var out []Role
	for _, r := range hierarchy {
		if CanManageRole(acting, r) {
			out = append(out, r)
		}
	}
	return out
}

func concat(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func toSet(perms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}
