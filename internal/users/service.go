package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
	"github.com/workforce-hr/workforce/internal/tenancy"
)

// RepositoryPort defines data access methods for tenant members.
type RepositoryPort interface {
	ListMembers(ctx context.Context, tenantID int64, page, perPage int) ([]Member, shared.Pagination, error)
	UpdateMembership(ctx context.Context, tenantID, userID int64, decide func(Member, int) (MembershipChange, error)) (Member, error)
}

// AccessInvalidator drops cached principals after a membership change.
type AccessInvalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Service applies the delegation policy to membership changes.
type Service struct {
	repo   RepositoryPort
	access AccessInvalidator
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, access AccessInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, access: access, logger: logger}
}

// ListMembers returns the members of the actor's tenant.
func (s *Service) ListMembers(ctx context.Context, actor rbac.Principal, page, perPage int) ([]Member, shared.Pagination, error) {
	if actor.TenantID == 0 {
		return nil, shared.Pagination{}, ErrTenantRequired
	}
	return s.repo.ListMembers(ctx, actor.TenantID, page, perPage)
}

// ChangeRole moves target to rawRole within the actor's tenant. The actor must
// be able to manage both the member's current and requested role.
func (s *Service) ChangeRole(ctx context.Context, actor rbac.Principal, targetUserID int64, rawRole string) (Member, error) {
	newRole, err := tenancy.MembershipRole(rawRole)
	if err != nil {
		return Member{}, fmt.Errorf("%w: %w", ErrInvalidRole, err)
	}
	if err := s.checkActor(actor, targetUserID); err != nil {
		return Member{}, err
	}
	member, err := s.repo.UpdateMembership(ctx, actor.TenantID, targetUserID, func(m Member, admins int) (MembershipChange, error) {
		if !rbac.CanManageRole(actor.Role, m.Role) || !rbac.CanManageRole(actor.Role, newRole) {
			return MembershipChange{}, ErrRoleNotManageable
		}
		if m.Role == rbac.RoleTenantAdmin && newRole != rbac.RoleTenantAdmin && admins <= 1 {
			return MembershipChange{}, ErrLastTenantAdmin
		}
		return MembershipChange{
			Role:  newRole,
			Audit: membershipAudit(actor, targetUserID, shared.AuditRoleChanged, map[string]any{"from": m.Role.String(), "to": newRole.String()}),
		}, nil
	})
	if err != nil {
		return Member{}, err
	}
	s.invalidate(ctx, targetUserID)
	return member, nil
}

// RemoveMember deletes target's membership in the actor's tenant.
func (s *Service) RemoveMember(ctx context.Context, actor rbac.Principal, targetUserID int64) error {
	if err := s.checkActor(actor, targetUserID); err != nil {
		return err
	}
	_, err := s.repo.UpdateMembership(ctx, actor.TenantID, targetUserID, func(m Member, admins int) (MembershipChange, error) {
		if !rbac.CanManageRole(actor.Role, m.Role) {
			return MembershipChange{}, ErrRoleNotManageable
		}
		if m.Role == rbac.RoleTenantAdmin && admins <= 1 {
			return MembershipChange{}, ErrLastTenantAdmin
		}
		return MembershipChange{
			Remove: true,
			Audit:  membershipAudit(actor, targetUserID, shared.AuditMemberRemoved, map[string]any{"role": m.Role.String()}),
		}, nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, targetUserID)
	return nil
}

func (s *Service) checkActor(actor rbac.Principal, targetUserID int64) error {
	if actor.TenantID == 0 {
		return ErrTenantRequired
	}
	if actor.UserID == targetUserID {
		return ErrSelfManagement
	}
	return nil
}

// invalidate is best effort: the committed change stands and stale cache
// entries expire with the cache TTL.
func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.access == nil {
		return
	}
	if err := s.access.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("invalidate access cache", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func membershipAudit(actor rbac.Principal, targetUserID int64, action string, meta map[string]any) shared.AuditLog {
	meta["actor_role"] = actor.Role.String()
	return shared.AuditLog{
		TenantID: actor.TenantID,
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "membership",
		EntityID: fmt.Sprintf("%d:%d", actor.TenantID, targetUserID),
		Meta:     meta,
	}
}
