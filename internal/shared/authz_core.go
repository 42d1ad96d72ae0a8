package shared

// Core platform permissions.
const (
	PermUsersView   = "users.view"
	PermUsersCreate = "users.create"
	PermUsersEdit   = "users.edit"
	PermUsersDelete = "users.delete"

	PermTenantView     = "tenant.view"
	PermTenantSettings = "tenant.settings"
)

// CoreScopes lists all permissions related to user and tenant administration.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersCreate,
		PermUsersEdit,
		PermUsersDelete,
		PermTenantView,
		PermTenantSettings,
	}
}

// AllScopes returns every permission known to the platform.
func AllScopes() []string {
	groups := [][]string{
		CoreScopes(),
		TimesheetScopes(),
		LeaveScopes(),
		BillingScopes(),
		ReportScopes(),
		AdminScopes(),
	}
	var all []string
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}
