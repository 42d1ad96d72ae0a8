package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workforce-hr/workforce/internal/platform/db"
	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
	"github.com/workforce-hr/workforce/internal/tenancy"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool  *pgxpool.Pool
	audit *shared.AuditLogger
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, audit *shared.AuditLogger) *Repository {
	return &Repository{pool: pool, audit: audit}
}

// ListMembers returns one page of a tenant's members ordered by name.
func (r *Repository) ListMembers(ctx context.Context, tenantID int64, page, perPage int) ([]Member, shared.Pagination, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_tenants WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	pg := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.email, u.name, u.is_active, ut.role, ut.created_at
FROM user_tenants ut JOIN users u ON u.id = ut.user_id
WHERE ut.tenant_id = $1 ORDER BY u.name, u.id LIMIT $2 OFFSET $3`, tenantID, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var (
			m   Member
			raw string
		)
		if err := rows.Scan(&m.UserID, &m.Email, &m.Name, &m.IsActive, &raw, &m.JoinedAt); err != nil {
			return nil, shared.Pagination{}, err
		}
		if m.Role, err = tenancy.MembershipRole(raw); err != nil {
			return nil, shared.Pagination{}, fmt.Errorf("users: member %d: %w", m.UserID, err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, err
	}
	return members, pg, nil
}

// UpdateMembership locks the tenant and the membership of userID in it, asks
// decide what to do with the membership and applies the decision together
// with its audit entry. decide receives the number of tenant admins counted
// under the tenant lock, so concurrent demotions of different admins are
// serialised.
func (r *Repository) UpdateMembership(ctx context.Context, tenantID, userID int64, decide func(Member, int) (MembershipChange, error)) (Member, error) {
	var result Member
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		m, err := applyMembershipChange(ctx, tx, r.audit, tenantID, userID, decide)
		if err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return Member{}, err
	}
	return result, nil
}

const (
	lockTenantSQL = `SELECT id FROM tenants WHERE id = $1 FOR UPDATE`

	lockMemberSQL = `SELECT u.id, u.email, u.name, u.is_active, ut.role, ut.created_at
FROM user_tenants ut JOIN users u ON u.id = ut.user_id
WHERE ut.tenant_id = $1 AND ut.user_id = $2 FOR UPDATE OF ut`

	// Stored roles are matched the way tenancy.MembershipRole parses them.
	countAdminsSQL = `SELECT COUNT(*) FROM user_tenants WHERE tenant_id = $1 AND upper(btrim(role)) = $2`

	deleteMemberSQL = `DELETE FROM user_tenants WHERE tenant_id = $1 AND user_id = $2`

	updateRoleSQL = `UPDATE user_tenants SET role = $3, updated_at = NOW() WHERE tenant_id = $1 AND user_id = $2`
)

func applyMembershipChange(ctx context.Context, tx shared.DBTX, audit *shared.AuditLogger, tenantID, userID int64, decide func(Member, int) (MembershipChange, error)) (Member, error) {
	var locked int64
	if err := tx.QueryRow(ctx, lockTenantSQL, tenantID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrMemberNotFound
		}
		return Member{}, err
	}

	var (
		m   Member
		raw string
	)
	err := tx.QueryRow(ctx, lockMemberSQL, tenantID, userID).
		Scan(&m.UserID, &m.Email, &m.Name, &m.IsActive, &raw, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, ErrMemberNotFound
	}
	if err != nil {
		return Member{}, err
	}
	if m.Role, err = tenancy.MembershipRole(raw); err != nil {
		return Member{}, fmt.Errorf("users: member %d: %w", userID, err)
	}

	var admins int
	if err := tx.QueryRow(ctx, countAdminsSQL, tenantID, rbac.RoleTenantAdmin.String()).Scan(&admins); err != nil {
		return Member{}, err
	}

	change, err := decide(m, admins)
	if err != nil {
		return Member{}, err
	}
	if change.Remove {
		if _, err := tx.Exec(ctx, deleteMemberSQL, tenantID, userID); err != nil {
			return Member{}, err
		}
	} else {
		if _, err := tx.Exec(ctx, updateRoleSQL, tenantID, userID, change.Role.String()); err != nil {
			return Member{}, err
		}
		m.Role = change.Role
	}
	if err := audit.RecordTx(ctx, tx, change.Audit); err != nil {
		return Member{}, fmt.Errorf("users: audit: %w", err)
	}
	return m, nil
}
