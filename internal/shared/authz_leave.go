package shared

// Vacation and sick leave permissions.
const (
	PermVacationsRequest = "vacations.request"
	PermVacationsViewAll = "vacations.view_all"
	PermVacationsApprove = "vacations.approve"

	PermSickLeaveReport  = "sickleave.report"
	PermSickLeaveViewAll = "sickleave.view_all"
	PermSickLeaveApprove = "sickleave.approve"
)

// LeaveScopes lists vacation and sick leave permissions.
func LeaveScopes() []string {
	return []string{
		PermVacationsRequest,
		PermVacationsViewAll,
		PermVacationsApprove,
		PermSickLeaveReport,
		PermSickLeaveViewAll,
		PermSickLeaveApprove,
	}
}
