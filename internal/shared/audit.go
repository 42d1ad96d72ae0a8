package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Audit actions recorded by the platform.
const (
	AuditRoleChanged      = "membership.role_changed"
	AuditMemberRemoved    = "membership.removed"
	AuditTenantSwitched   = "session.tenant_switched"
	AuditMembershipReport = "compliance.membership_audit"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ID       int64          `json:"id"`
	TenantID int64          `json:"tenant_id,omitempty"`
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx so audit rows can be written
// inside the caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AuditLogger writes audit_logs.
type AuditLogger struct {
	db DBTX
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(db DBTX) *AuditLogger {
	return &AuditLogger{db: db}
}

// Record persists the log entry using the logger's own connection.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	return l.RecordTx(ctx, l.db, log)
}

// RecordTx persists the log entry through tx.
func (l *AuditLogger) RecordTx(ctx context.Context, tx DBTX, log AuditLog) error {
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var tenantID *int64
	if log.TenantID != 0 {
		tenantID = &log.TenantID
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = tx.Exec(ctx, `INSERT INTO audit_logs (tenant_id, actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`, tenantID, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}
