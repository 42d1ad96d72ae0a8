package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
)

// RepositoryPort defines data access methods for tenancy.
type RepositoryPort interface {
	LoadAccess(ctx context.Context, userID, tenantID int64) (Access, error)
	ListTenantsForUser(ctx context.Context, userID int64) ([]Tenant, error)
	ListActiveTenants(ctx context.Context) ([]Tenant, error)
}

// Service resolves principals and the tenants a user may act in.
type Service struct {
	repo  RepositoryPort
	cache *RoleCache
}

// NewService builds Service instance. cache may be nil.
func NewService(repo RepositoryPort, cache *RoleCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Principal resolves the role userID holds in tenantID. Superusers resolve
// regardless of tenant; everyone else needs an active tenant membership.
func (s *Service) Principal(ctx context.Context, userID, tenantID int64) (rbac.Principal, error) {
	access, err := s.cache.Fetch(ctx, userID, tenantID, func(ctx context.Context) (Access, error) {
		return s.repo.LoadAccess(ctx, userID, tenantID)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return rbac.Principal{}, fmt.Errorf("%w: user %d not found", rbac.ErrNoMembership, userID)
		}
		return rbac.Principal{}, fmt.Errorf("tenancy: load access: %w", err)
	}
	if !access.UserActive {
		return rbac.Principal{}, fmt.Errorf("%w: user %d is inactive", rbac.ErrNoMembership, userID)
	}
	if access.Superuser {
		return rbac.Principal{UserID: userID, TenantID: tenantID, Role: rbac.RoleSuperuser}, nil
	}
	if tenantID == 0 {
		return rbac.Principal{}, rbac.ErrNoTenant
	}
	if !access.Member {
		return rbac.Principal{}, rbac.ErrNoMembership
	}
	role, err := MembershipRole(access.Role)
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("tenancy: membership %d/%d: %w", userID, tenantID, err)
	}
	return rbac.Principal{UserID: userID, TenantID: tenantID, Role: role}, nil
}

// MembershipRole parses a role stored on a tenant membership. Superuser is a
// global flag on the user and is never valid as a membership role.
func MembershipRole(raw string) (rbac.Role, error) {
	role, err := rbac.ParseRole(raw)
	if err != nil {
		return "", err
	}
	if role == rbac.RoleSuperuser {
		return "", fmt.Errorf("%w: %s", ErrInvalidMembershipRole, role)
	}
	return role, nil
}

// Tenants lists the tenants userID can switch into.
func (s *Service) Tenants(ctx context.Context, userID int64) ([]Tenant, error) {
	p, err := s.Principal(ctx, userID, 0)
	if err != nil && !errors.Is(err, rbac.ErrNoTenant) {
		return nil, err
	}
	if err == nil && p.IsSuperUser() {
		return s.repo.ListActiveTenants(ctx)
	}
	return s.repo.ListTenantsForUser(ctx, userID)
}

// SwitchTenant verifies userID may act in tenantID and binds it to sess.
func (s *Service) SwitchTenant(ctx context.Context, sess *shared.Session, userID, tenantID int64) (rbac.Principal, error) {
	if sess == nil {
		return rbac.Principal{}, shared.ErrSessionMissing
	}
	if tenantID <= 0 {
		return rbac.Principal{}, rbac.ErrNoTenant
	}
	p, err := s.Principal(ctx, userID, tenantID)
	if err != nil {
		return rbac.Principal{}, err
	}
	if p.IsSuperUser() {
		if err := s.ensureTenantActive(ctx, tenantID); err != nil {
			return rbac.Principal{}, err
		}
	}
	sess.SetTenant(tenantID)
	return p, nil
}

// Invalidate forgets cached access for userID after a membership change.
func (s *Service) Invalidate(ctx context.Context, userID int64) error {
	return s.cache.Invalidate(ctx, userID)
}

func (s *Service) ensureTenantActive(ctx context.Context, tenantID int64) error {
	tenants, err := s.repo.ListActiveTenants(ctx)
	if err != nil {
		return err
	}
	for _, t := range tenants {
		if t.ID == tenantID {
			return nil
		}
	}
	return fmt.Errorf("%w: tenant %d", rbac.ErrNoMembership, tenantID)
}

var _ rbac.PrincipalSource = (*Service)(nil)
