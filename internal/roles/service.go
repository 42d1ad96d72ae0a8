package roles

import (
	"context"

	"github.com/workforce-hr/workforce/internal/rbac"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	CountMembers(ctx context.Context, tenantID int64) (map[rbac.Role]int, error)
}

// Service builds the role catalogue.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Catalogue lists every role, most privileged first. Member counts are only
// filled in when the principal has an active tenant. A role is assignable
// when the principal may delegate it through a membership.
func (s *Service) Catalogue(ctx context.Context, p rbac.Principal) ([]Entry, error) {
	var counts map[rbac.Role]int
	if p.TenantID != 0 {
		var err error
		if counts, err = s.repo.CountMembers(ctx, p.TenantID); err != nil {
			return nil, err
		}
	}
	roles := rbac.RoleHierarchy()
	entries := make([]Entry, 0, len(roles))
	for i, role := range roles {
		entries = append(entries, Entry{
			Role:        role,
			Name:        role.DisplayName(),
			Rank:        len(roles) - i,
			Permissions: len(rbac.Permissions(role)),
			Members:     counts[role],
			Assignable:  role != rbac.RoleSuperuser && rbac.CanManageRole(p.Role, role),
		})
	}
	return entries, nil
}
