package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
)

// scriptedRow scans fixed values into the destinations it is given.
type scriptedRow struct {
	values []any
	err    error
}

func (r scriptedRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *int:
			*p = r.values[i].(int)
		case *string:
			*p = r.values[i].(string)
		case *bool:
			*p = r.values[i].(bool)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

// scriptedTx answers the membership statements from fixed data and records
// every statement in order.
type scriptedTx struct {
	tenantExists bool
	storedRole   string
	admins       int
	statements   []string
}

func (tx *scriptedTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	tx.statements = append(tx.statements, sql)
	switch sql {
	case lockTenantSQL:
		if !tx.tenantExists {
			return scriptedRow{err: pgx.ErrNoRows}
		}
		return scriptedRow{values: []any{args[0].(int64)}}
	case lockMemberSQL:
		return scriptedRow{values: []any{args[1].(int64), "ada@acme.test", "Ada", true, tx.storedRole, time.Unix(0, 0)}}
	case countAdminsSQL:
		return scriptedRow{values: []any{tx.admins}}
	}
	return scriptedRow{err: errors.New("unexpected query: " + sql)}
}

func (tx *scriptedTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.statements = append(tx.statements, sql)
	return pgconn.NewCommandTag("OK 1"), nil
}

func (tx *scriptedTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query: " + sql)
}

func demoteTo(role rbac.Role) func(Member, int) (MembershipChange, error) {
	return func(m Member, admins int) (MembershipChange, error) {
		if m.Role == rbac.RoleTenantAdmin && admins <= 1 {
			return MembershipChange{}, ErrLastTenantAdmin
		}
		return MembershipChange{Role: role, Audit: shared.AuditLog{
			TenantID: 10, ActorID: 9, Action: shared.AuditRoleChanged, Entity: "membership", EntityID: "10:1",
		}}, nil
	}
}

func TestApplyMembershipChangeLocksTenantBeforeCounting(t *testing.T) {
	tx := &scriptedTx{tenantExists: true, storedRole: "TENANT_ADMIN", admins: 2}

	m, err := applyMembershipChange(context.Background(), tx, shared.NewAuditLogger(nil), 10, 1, demoteTo(rbac.RoleUser))
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleUser, m.Role)

	require.Len(t, tx.statements, 5)
	assert.Equal(t, lockTenantSQL, tx.statements[0], "the tenant lock serialises admin changes")
	assert.Equal(t, lockMemberSQL, tx.statements[1])
	assert.Equal(t, countAdminsSQL, tx.statements[2])
	assert.Equal(t, updateRoleSQL, tx.statements[3])
	assert.True(t, strings.HasPrefix(tx.statements[4], "INSERT INTO audit_logs"), "audit entry shares the transaction")
}

func TestApplyMembershipChangeCountsNormalisedRoles(t *testing.T) {
	assert.Contains(t, countAdminsSQL, "upper(btrim(role))")

	tx := &scriptedTx{tenantExists: true, storedRole: " tenant_admin ", admins: 1}
	_, err := applyMembershipChange(context.Background(), tx, shared.NewAuditLogger(nil), 10, 1, demoteTo(rbac.RoleUser))
	assert.ErrorIs(t, err, ErrLastTenantAdmin, "padded lower-case admin rows are still admins")
	assert.NotContains(t, tx.statements, updateRoleSQL)
}

func TestApplyMembershipChangeUnknownTenant(t *testing.T) {
	tx := &scriptedTx{}
	_, err := applyMembershipChange(context.Background(), tx, shared.NewAuditLogger(nil), 99, 1, demoteTo(rbac.RoleUser))
	assert.ErrorIs(t, err, ErrMemberNotFound)
	assert.Equal(t, []string{lockTenantSQL}, tx.statements)
}
