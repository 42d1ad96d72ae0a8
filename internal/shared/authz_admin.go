package shared

// System administration and compliance permissions.
const (
	PermSystemManage        = "system.manage"
	PermSystemTenants       = "system.tenants"
	PermAuditView           = "audit.view"
	PermComplianceRetention = "compliance.retention"
)

// AdminScopes lists platform administration and compliance permissions.
func AdminScopes() []string {
	return []string{
		PermSystemManage,
		PermSystemTenants,
		PermAuditView,
		PermComplianceRetention,
	}
}
