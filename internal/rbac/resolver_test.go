package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workforce-hr/workforce/internal/shared"
)

var allRoles = []Role{RoleSuperuser, RoleTenantAdmin, RoleManager, RoleUser}

func TestHasPermissionMatchesTable(t *testing.T) {
	for _, role := range allRoles {
		granted := map[string]bool{}
		for _, p := range Permissions(role) {
			granted[p] = true
		}
		for _, p := range shared.AllScopes() {
			assert.Equal(t, granted[p], HasPermission(role, p), "role %s permission %s", role, p)
		}
		assert.False(t, HasPermission(role, "payroll.run"), "undeclared permission for %s", role)
	}
}

func TestSuperuserHoldsEveryPermission(t *testing.T) {
	assert.ElementsMatch(t, shared.AllScopes(), Permissions(RoleSuperuser))
}

func TestHigherRolesAreSupersets(t *testing.T) {
	hierarchy := RoleHierarchy()
	for i := 0; i < len(hierarchy)-1; i++ {
		higher, lower := hierarchy[i], hierarchy[i+1]
		for _, p := range Permissions(lower) {
			assert.True(t, HasPermission(higher, p), "%s should inherit %s from %s", higher, p, lower)
		}
	}
}

func TestEmptyPermissionLists(t *testing.T) {
	for _, role := range allRoles {
		assert.False(t, HasAnyPermission(role), "any([]) for %s", role)
		assert.True(t, HasAllPermissions(role), "all([]) for %s", role)
	}
}

func TestAnyAndAll(t *testing.T) {
	assert.True(t, HasAnyPermission(RoleUser, shared.PermBillingManage, shared.PermTimesheetsCreate))
	assert.False(t, HasAnyPermission(RoleUser, shared.PermBillingManage, shared.PermUsersDelete))
	assert.False(t, HasAllPermissions(RoleUser, shared.PermTimesheetsCreate, shared.PermTimesheetsApprove))
	assert.True(t, HasAllPermissions(RoleManager, shared.PermTimesheetsCreate, shared.PermTimesheetsApprove))
}

func TestRoleHierarchy(t *testing.T) {
	expected := []Role{RoleSuperuser, RoleTenantAdmin, RoleManager, RoleUser}
	first := RoleHierarchy()
	assert.Equal(t, expected, first)

	first[0] = RoleUser
	assert.Equal(t, expected, RoleHierarchy(), "callers must not be able to mutate the hierarchy")
}

func TestIsHigherRole(t *testing.T) {
	assert.True(t, IsHigherRole(RoleSuperuser, RoleUser))
	assert.False(t, IsHigherRole(RoleUser, RoleSuperuser))
	assert.True(t, IsHigherRole(RoleTenantAdmin, RoleManager))
	for _, r := range allRoles {
		assert.False(t, IsHigherRole(r, r), "IsHigherRole(%s, %s)", r, r)
	}
}

func TestCanManageRole(t *testing.T) {
	cases := []struct {
		acting, target Role
		want           bool
	}{
		{RoleSuperuser, RoleSuperuser, true},
		{RoleSuperuser, RoleTenantAdmin, true},
		{RoleSuperuser, RoleManager, true},
		{RoleSuperuser, RoleUser, true},

		{RoleTenantAdmin, RoleSuperuser, false},
		{RoleTenantAdmin, RoleTenantAdmin, false},
		{RoleTenantAdmin, RoleManager, true},
		{RoleTenantAdmin, RoleUser, true},

		{RoleManager, RoleSuperuser, false},
		{RoleManager, RoleTenantAdmin, false},
		{RoleManager, RoleManager, false},
		{RoleManager, RoleUser, true},

		{RoleUser, RoleSuperuser, false},
		{RoleUser, RoleTenantAdmin, false},
		{RoleUser, RoleManager, false},
		{RoleUser, RoleUser, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanManageRole(tc.acting, tc.target), "CanManageRole(%s, %s)", tc.acting, tc.target)
	}
}

func TestCanManageRoleIsNotHierarchyOrder(t *testing.T) {
	// Superusers manage their peers, which strict ordering would forbid.
	assert.True(t, CanManageRole(RoleSuperuser, RoleSuperuser))
	assert.False(t, IsHigherRole(RoleSuperuser, RoleSuperuser))
}

func TestManageableRoles(t *testing.T) {
	assert.Equal(t, allRoles, ManageableRoles(RoleSuperuser))
	assert.Equal(t, []Role{RoleManager, RoleUser}, ManageableRoles(RoleTenantAdmin))
	assert.Equal(t, []Role{RoleUser}, ManageableRoles(RoleManager))
	assert.Empty(t, ManageableRoles(RoleUser))
}

func TestCapabilityPredicates(t *testing.T) {
	assert.True(t, CanManageBilling(RoleTenantAdmin))
	assert.False(t, CanManageBilling(RoleUser))
	assert.False(t, CanManageBilling(RoleManager))

	assert.True(t, CanManageUsers(RoleTenantAdmin))
	assert.False(t, CanManageUsers(RoleManager))

	assert.True(t, CanApproveTimesheets(RoleManager))
	assert.False(t, CanApproveTimesheets(RoleUser))

	assert.True(t, CanAccessAdvancedReports(RoleManager))
	assert.False(t, CanAccessAdvancedReports(RoleUser))

	assert.True(t, CanManageSystem(RoleSuperuser))
	assert.False(t, CanManageSystem(RoleTenantAdmin))
}

func TestCapabilityPredicatesMatchPermissions(t *testing.T) {
	for _, role := range RoleHierarchy() {
		assert.Equal(t, HasAllPermissions(role, shared.PermUsersCreate, shared.PermUsersEdit, shared.PermUsersDelete), CanManageUsers(role), role)
		assert.Equal(t, HasPermission(role, shared.PermTimesheetsApprove), CanApproveTimesheets(role), role)
		assert.Equal(t, HasPermission(role, shared.PermBillingManage), CanManageBilling(role), role)
		assert.Equal(t, HasAnyPermission(role, shared.PermReportsAdvanced, shared.PermReportsExport), CanAccessAdvancedReports(role), role)
		assert.Equal(t, HasAllPermissions(role, shared.PermSystemManage, shared.PermSystemTenants), CanManageSystem(role), role)
	}
}

func TestUnknownRolePanics(t *testing.T) {
	bogus := Role("OWNER")
	assert.Panics(t, func() { HasPermission(bogus, shared.PermUsersView) })
	assert.Panics(t, func() { IsHigherRole(bogus, RoleUser) })
	assert.Panics(t, func() { CanManageRole(bogus, RoleUser) })
	assert.Panics(t, func() { CanManageRole(RoleSuperuser, bogus) })
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" tenant_admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleTenantAdmin, role)

	_, err = ParseRole("owner")
	assert.ErrorIs(t, err, ErrUnknownRole)
	_, err = ParseRole("")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Tenant Admin", RoleTenantAdmin.DisplayName())
	assert.Equal(t, "Superuser", RoleSuperuser.DisplayName())
	assert.Equal(t, "User", RoleUser.DisplayName())
}
