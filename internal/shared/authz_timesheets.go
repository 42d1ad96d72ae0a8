package shared

// Timesheet permissions declared for RBAC.
const (
	PermTimesheetsCreate  = "timesheets.create"
	PermTimesheetsViewOwn = "timesheets.view_own"
	PermTimesheetsViewAll = "timesheets.view_all"
	PermTimesheetsEdit    = "timesheets.edit"
	PermTimesheetsDelete  = "timesheets.delete"
	PermTimesheetsApprove = "timesheets.approve"
	PermTimesheetsExport  = "timesheets.export"
)

// TimesheetScopes lists all permissions related to timesheets.
func TimesheetScopes() []string {
	return []string{
		PermTimesheetsCreate,
		PermTimesheetsViewOwn,
		PermTimesheetsViewAll,
		PermTimesheetsEdit,
		PermTimesheetsDelete,
		PermTimesheetsApprove,
		PermTimesheetsExport,
	}
}
