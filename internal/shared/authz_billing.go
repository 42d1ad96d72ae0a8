package shared

const (
	PermBillingView   = "billing.view"
	PermBillingManage = "billing.manage"
)

// BillingScopes lists subscription and invoice permissions.
func BillingScopes() []string {
	return []string{PermBillingView, PermBillingManage}
}
