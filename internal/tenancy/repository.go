package tenancy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workforce-hr/workforce/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadAccess reads the user's flags and, when tenantID is non-zero, the role
// held in that tenant. Memberships of inactive tenants are ignored.
func (r *Repository) LoadAccess(ctx context.Context, userID, tenantID int64) (Access, error) {
	var access Access
	err := r.pool.QueryRow(ctx, `SELECT is_active, is_superuser FROM users WHERE id = $1`, userID).
		Scan(&access.UserActive, &access.Superuser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Access{}, shared.ErrNotFound
		}
		return Access{}, err
	}
	if tenantID == 0 {
		return access, nil
	}
	err = r.pool.QueryRow(ctx, `SELECT ut.role FROM user_tenants ut
JOIN tenants t ON t.id = ut.tenant_id
WHERE ut.user_id = $1 AND ut.tenant_id = $2 AND t.is_active`, userID, tenantID).Scan(&access.Role)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return access, nil
	case err != nil:
		return Access{}, err
	}
	access.Member = true
	return access, nil
}

// ListTenantsForUser returns active tenants the user belongs to.
func (r *Repository) ListTenantsForUser(ctx context.Context, userID int64) ([]Tenant, error) {
	return r.listTenants(ctx, `SELECT t.id, t.name, t.slug, t.is_active, t.created_at FROM tenants t
JOIN user_tenants ut ON ut.tenant_id = t.id
WHERE ut.user_id = $1 AND t.is_active ORDER BY t.name`, userID)
}

// ListActiveTenants returns every active tenant.
func (r *Repository) ListActiveTenants(ctx context.Context) ([]Tenant, error) {
	return r.listTenants(ctx, `SELECT id, name, slug, is_active, created_at FROM tenants WHERE is_active ORDER BY name`)
}

func (r *Repository) listTenants(ctx context.Context, query string, args ...any) ([]Tenant, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tenants, nil
}
