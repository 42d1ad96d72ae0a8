package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/workforce-hr/workforce/internal/jobs"
	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
	"github.com/workforce-hr/workforce/internal/tenancy"
)

// Finding kinds reported by the membership audit.
const (
	FindingInvalidRole    = "invalid_role"
	FindingInactiveMember = "inactive_member"
	FindingNoTenantAdmin  = "no_tenant_admin"
)

// TenantRecord is a tenant in scope of an audit run.
type TenantRecord struct {
	ID   int64
	Name string
}

// MembershipRecord is one stored membership row.
type MembershipRecord struct {
	TenantID   int64
	UserID     int64
	Email      string
	UserActive bool
	Role       string
}

// Finding describes one policy violation.
type Finding struct {
	TenantID int64  `json:"tenant_id"`
	UserID   int64  `json:"user_id,omitempty"`
	Kind     string `json:"kind"`
	Detail   string `json:"detail"`
}

// MembershipStore reads the data the audit inspects.
type MembershipStore interface {
	Tenants(ctx context.Context, tenantID int64) ([]TenantRecord, error)
	Memberships(ctx context.Context, tenantID int64) ([]MembershipRecord, error)
	// RecordedTenants returns the tenants that already hold a report for runID.
	RecordedTenants(ctx context.Context, runID string) (map[int64]bool, error)
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ClassifyMemberships returns the findings for the given tenants, ordered by
// tenant then user. Memberships of tenants outside the list are ignored.
func ClassifyMemberships(tenants []TenantRecord, memberships []MembershipRecord) []Finding {
	admins := make(map[int64]int, len(tenants))
	inScope := make(map[int64]bool, len(tenants))
	for _, t := range tenants {
		inScope[t.ID] = true
	}

	var findings []Finding
	for _, m := range memberships {
		if !inScope[m.TenantID] {
			continue
		}
		role, err := tenancy.MembershipRole(m.Role)
		if err != nil {
			findings = append(findings, Finding{
				TenantID: m.TenantID,
				UserID:   m.UserID,
				Kind:     FindingInvalidRole,
				Detail:   fmt.Sprintf("stored role %q is not assignable", m.Role),
			})
			continue
		}
		if !m.UserActive {
			findings = append(findings, Finding{
				TenantID: m.TenantID,
				UserID:   m.UserID,
				Kind:     FindingInactiveMember,
				Detail:   fmt.Sprintf("deactivated user %s still holds %s", m.Email, role),
			})
			continue
		}
		if role == rbac.RoleTenantAdmin {
			admins[m.TenantID]++
		}
	}
	for _, t := range tenants {
		if admins[t.ID] == 0 {
			findings = append(findings, Finding{
				TenantID: t.ID,
				Kind:     FindingNoTenantAdmin,
				Detail:   fmt.Sprintf("tenant %s has no active tenant admin", t.Name),
			})
		}
	}
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].TenantID != findings[j].TenantID {
			return findings[i].TenantID < findings[j].TenantID
		}
		return findings[i].UserID < findings[j].UserID
	})
	return findings
}

// MembershipAuditJob flags memberships that drifted from the role policy.
type MembershipAuditJob struct {
	Store   MembershipStore
	Audit   AuditRecorder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewMembershipAuditJob initialises the membership audit handler.
func NewMembershipAuditJob(store MembershipStore, audit AuditRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *MembershipAuditJob {
	return &MembershipAuditJob{Store: store, Audit: audit, Logger: logger, Metrics: metrics}
}

// Handle executes the membership audit.
func (j *MembershipAuditJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("membership audit: handler not configured")
	}
	var payload MembershipAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("membership audit: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	start := time.Now()
	tracker := j.Metrics.Track(TaskMembershipAudit)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int64("tenant_id", payload.TenantID), slog.Int64("requested_by", payload.RequestedBy))
	logger.Info("starting membership audit")

	findings, scanned, err := j.Run(ctx, payload)
	if err != nil {
		logger.Error("membership audit failed", slog.Any("error", err))
		return err
	}
	logger.Info("completed membership audit",
		slog.Int("tenants", scanned),
		slog.Int("findings", len(findings)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Run scans the payload's scope, logs and records the findings and returns
// them with the number of tenants scanned. Inside a worker the run id is the
// asynq task id, so a retried task resumes the same run.
func (j *MembershipAuditJob) Run(ctx context.Context, payload MembershipAuditPayload) ([]Finding, int, error) {
	return j.run(ctx, runIDFrom(ctx), payload)
}

func (j *MembershipAuditJob) run(ctx context.Context, runID string, payload MembershipAuditPayload) ([]Finding, int, error) {
	tenants, err := j.Store.Tenants(ctx, payload.TenantID)
	if err != nil {
		return nil, 0, fmt.Errorf("membership audit: tenants: %w", err)
	}
	memberships, err := j.Store.Memberships(ctx, payload.TenantID)
	if err != nil {
		return nil, 0, fmt.Errorf("membership audit: memberships: %w", err)
	}
	findings := ClassifyMemberships(tenants, memberships)
	done, err := j.Store.RecordedTenants(ctx, runID)
	if err != nil {
		return nil, 0, fmt.Errorf("membership audit: recorded tenants: %w", err)
	}
	logger := j.logger().With(slog.String("run_id", runID))

	perTenant := make(map[int64][]Finding)
	for _, f := range findings {
		logger.Warn("membership finding",
			slog.Int64("tenant_id", f.TenantID),
			slog.Int64("user_id", f.UserID),
			slog.String("kind", f.Kind),
			slog.String("detail", f.Detail))
		perTenant[f.TenantID] = append(perTenant[f.TenantID], f)
	}

	// Scheduled runs only record tenants with findings; an explicit request
	// always leaves a trace for the requesting tenant. Tenants reported by an
	// earlier attempt of this run are neither recorded nor counted again.
	for _, t := range tenants {
		tenantFindings := perTenant[t.ID]
		if done[t.ID] || (len(tenantFindings) == 0 && payload.TenantID == 0) {
			continue
		}
		if err := j.record(ctx, payload, runID, t.ID, tenantFindings); err != nil {
			return nil, 0, err
		}
		perKind := make(map[string]int)
		for _, f := range tenantFindings {
			perKind[f.Kind]++
		}
		for kind, n := range perKind {
			j.Metrics.AddFindings(kind, n)
		}
	}
	return findings, len(tenants), nil
}

func (j *MembershipAuditJob) record(ctx context.Context, payload MembershipAuditPayload, runID string, tenantID int64, findings []Finding) error {
	if j.Audit == nil {
		return nil
	}
	counts := make(map[string]any)
	for _, f := range findings {
		n, _ := counts[f.Kind].(int)
		counts[f.Kind] = n + 1
	}
	if findings == nil {
		findings = []Finding{}
	}
	err := j.Audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  payload.RequestedBy,
		Action:   shared.AuditMembershipReport,
		Entity:   "tenant",
		EntityID: strconv.FormatInt(tenantID, 10),
		Meta:     map[string]any{"run_id": runID, "counts": counts, "findings": findings},
	})
	if err != nil {
		return fmt.Errorf("membership audit: record tenant %d: %w", tenantID, err)
	}
	return nil
}

func runIDFrom(ctx context.Context) string {
	if id, ok := asynq.GetTaskID(ctx); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func (j *MembershipAuditJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskMembershipAudit))
	}
	return slog.Default().With(slog.String("job", TaskMembershipAudit))
}

// PGMembershipStore reads tenants and memberships from PostgreSQL.
type PGMembershipStore struct {
	pool *pgxpool.Pool
}

// NewPGMembershipStore constructs the store.
func NewPGMembershipStore(pool *pgxpool.Pool) *PGMembershipStore {
	return &PGMembershipStore{pool: pool}
}

// Tenants lists active tenants, or only tenantID when it is non-zero.
func (s *PGMembershipStore) Tenants(ctx context.Context, tenantID int64) ([]TenantRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM tenants
WHERE is_active AND ($1::bigint = 0 OR id = $1) ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TenantRecord
	for rows.Next() {
		var t TenantRecord
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Memberships lists memberships of active tenants in scope.
func (s *PGMembershipStore) Memberships(ctx context.Context, tenantID int64) ([]MembershipRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT ut.tenant_id, ut.user_id, u.email, u.is_active, ut.role
FROM user_tenants ut
JOIN users u ON u.id = ut.user_id
JOIN tenants t ON t.id = ut.tenant_id
WHERE t.is_active AND ($1::bigint = 0 OR ut.tenant_id = $1)
ORDER BY ut.tenant_id, ut.user_id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MembershipRecord
	for rows.Next() {
		var m MembershipRecord
		if err := rows.Scan(&m.TenantID, &m.UserID, &m.Email, &m.UserActive, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecordedTenants lists tenants that already have a membership report for runID.
func (s *PGMembershipStore) RecordedTenants(ctx context.Context, runID string) (map[int64]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM audit_logs
WHERE action = $1 AND meta->>'run_id' = $2 AND tenant_id IS NOT NULL`, shared.AuditMembershipReport, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

var _ MembershipStore = (*PGMembershipStore)(nil)
