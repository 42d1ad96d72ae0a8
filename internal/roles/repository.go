package roles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/tenancy"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountMembers returns the number of members per role in a tenant.
func (r *Repository) CountMembers(ctx context.Context, tenantID int64) (map[rbac.Role]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT role, COUNT(*) FROM user_tenants WHERE tenant_id = $1 GROUP BY role`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[rbac.Role]int)
	for rows.Next() {
		var (
			raw   string
			count int
		)
		if err := rows.Scan(&raw, &count); err != nil {
			return nil, err
		}
		role, err := tenancy.MembershipRole(raw)
		if err != nil {
			return nil, fmt.Errorf("roles: tenant %d: %w", tenantID, err)
		}
		counts[role] += count
	}
	return counts, rows.Err()
}
