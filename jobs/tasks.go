package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMembershipAudit scans tenant memberships for policy drift.
	TaskMembershipAudit = "rbac:membership_audit"
)

// MembershipAuditPayload scopes a membership audit. A zero TenantID scans
// every active tenant; RequestedBy is zero for scheduled runs.
type MembershipAuditPayload struct {
	TenantID    int64 `json:"tenant_id,omitempty"`
	RequestedBy int64 `json:"requested_by,omitempty"`
}

// NewMembershipAuditTask constructs an Asynq task.
func NewMembershipAuditTask(payload MembershipAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMembershipAudit, data), nil
}
