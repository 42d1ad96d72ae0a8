package shared

// Reporting permissions.
const (
	PermReportsBasic    = "reports.basic"
	PermReportsAdvanced = "reports.advanced"
	PermReportsExport   = "reports.export"
)

// ReportScopes lists reporting permissions.
func ReportScopes() []string {
	return []string{PermReportsBasic, PermReportsAdvanced, PermReportsExport}
}
