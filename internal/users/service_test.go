package users

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
)

// memberRepo is an in-memory membership table for a single tenant.
type memberRepo struct {
	mu      sync.Mutex
	tenant  int64
	members map[int64]Member
	audit   []shared.AuditLog
}

func newMemberRepo() *memberRepo {
	return &memberRepo{
		tenant: 10,
		members: map[int64]Member{
			1: {UserID: 1, Name: "Ada", Role: rbac.RoleTenantAdmin},
			2: {UserID: 2, Name: "Bob", Role: rbac.RoleManager},
			3: {UserID: 3, Name: "Cy", Role: rbac.RoleUser},
			4: {UserID: 4, Name: "Di", Role: rbac.RoleManager},
		},
	}
}

func (m *memberRepo) ListMembers(ctx context.Context, tenantID int64, page, perPage int) ([]Member, shared.Pagination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tenantID != m.tenant {
		return nil, shared.NewPagination(page, perPage, 0), nil
	}
	out := make([]Member, 0, len(m.members))
	for _, member := range m.members {
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, shared.NewPagination(page, perPage, len(out)), nil
}

func (m *memberRepo) UpdateMembership(ctx context.Context, tenantID, userID int64, decide func(Member, int) (MembershipChange, error)) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[userID]
	if !ok || tenantID != m.tenant {
		return Member{}, ErrMemberNotFound
	}
	admins := 0
	for _, other := range m.members {
		if other.Role == rbac.RoleTenantAdmin {
			admins++
		}
	}
	change, err := decide(member, admins)
	if err != nil {
		return Member{}, err
	}
	if change.Remove {
		delete(m.members, userID)
	} else {
		member.Role = change.Role
		m.members[userID] = member
	}
	m.audit = append(m.audit, change.Audit)
	return member, nil
}

type recordingInvalidator struct {
	users []int64
	err   error
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, userID int64) error {
	r.users = append(r.users, userID)
	return r.err
}

func admin() rbac.Principal   { return rbac.Principal{UserID: 1, TenantID: 10, Role: rbac.RoleTenantAdmin} }
func manager() rbac.Principal { return rbac.Principal{UserID: 2, TenantID: 10, Role: rbac.RoleManager} }

func TestChangeRoleWithinDelegation(t *testing.T) {
	repo := newMemberRepo()
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv, nil)

	member, err := svc.ChangeRole(context.Background(), admin(), 3, "manager")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleManager, member.Role)
	assert.Equal(t, []int64{3}, inv.users)

	require.Len(t, repo.audit, 1)
	entry := repo.audit[0]
	assert.Equal(t, shared.AuditRoleChanged, entry.Action)
	assert.Equal(t, int64(10), entry.TenantID)
	assert.Equal(t, int64(1), entry.ActorID)
	assert.Equal(t, "10:3", entry.EntityID)
	assert.Equal(t, "USER", entry.Meta["from"])
	assert.Equal(t, "MANAGER", entry.Meta["to"])
}

func TestChangeRoleChecksCurrentAndRequestedRole(t *testing.T) {
	repo := newMemberRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.ChangeRole(ctx, manager(), 3, "MANAGER")
	assert.ErrorIs(t, err, ErrRoleNotManageable, "managers cannot grant their own role")

	_, err = svc.ChangeRole(ctx, manager(), 4, "USER")
	assert.ErrorIs(t, err, ErrRoleNotManageable, "managers cannot demote peers")

	_, err = svc.ChangeRole(ctx, admin(), 3, "SUPERUSER")
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.ChangeRole(ctx, admin(), 3, "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)

	assert.Equal(t, rbac.RoleUser, repo.members[3].Role)
	assert.Empty(t, repo.audit, "denied changes are not audited")
}

func TestSelfManagementIsRejected(t *testing.T) {
	svc := NewService(newMemberRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.ChangeRole(ctx, admin(), 1, "USER")
	assert.ErrorIs(t, err, ErrSelfManagement)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	assert.ErrorIs(t, svc.RemoveMember(ctx, admin(), 1), ErrSelfManagement)
}

func TestTenantRequired(t *testing.T) {
	svc := NewService(newMemberRepo(), nil, nil)
	root := rbac.Principal{UserID: 99, Role: rbac.RoleSuperuser}

	_, err := svc.ChangeRole(context.Background(), root, 3, "MANAGER")
	assert.ErrorIs(t, err, ErrTenantRequired)
	assert.ErrorIs(t, err, rbac.ErrNoTenant)

	_, _, err = svc.ListMembers(context.Background(), root, 1, 20)
	assert.ErrorIs(t, err, ErrTenantRequired)
}

func TestSuperuserManagesTenantAdmins(t *testing.T) {
	repo := newMemberRepo()
	repo.members[5] = Member{UserID: 5, Role: rbac.RoleTenantAdmin}
	svc := NewService(repo, nil, nil)
	root := rbac.Principal{UserID: 99, TenantID: 10, Role: rbac.RoleSuperuser}

	member, err := svc.ChangeRole(context.Background(), root, 5, "USER")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleUser, member.Role)

	_, err = svc.ChangeRole(context.Background(), admin(), 2, "TENANT_ADMIN")
	assert.ErrorIs(t, err, ErrRoleNotManageable, "tenant admins cannot mint peers")
}

func TestLastTenantAdminIsProtected(t *testing.T) {
	repo := newMemberRepo()
	svc := NewService(repo, nil, nil)
	root := rbac.Principal{UserID: 99, TenantID: 10, Role: rbac.RoleSuperuser}
	ctx := context.Background()

	_, err := svc.ChangeRole(ctx, root, 1, "MANAGER")
	assert.ErrorIs(t, err, ErrLastTenantAdmin)
	assert.ErrorIs(t, err, httpx.ErrConflict)

	assert.ErrorIs(t, svc.RemoveMember(ctx, root, 1), ErrLastTenantAdmin)

	_, err = svc.ChangeRole(ctx, root, 1, "TENANT_ADMIN")
	assert.NoError(t, err, "keeping the role is not a demotion")
}

func TestRemoveMember(t *testing.T) {
	repo := newMemberRepo()
	inv := &recordingInvalidator{err: errors.New("redis down")}
	svc := NewService(repo, inv, nil)
	ctx := context.Background()

	require.NoError(t, svc.RemoveMember(ctx, admin(), 2), "cache failures do not undo the change")
	assert.NotContains(t, repo.members, int64(2))
	assert.Equal(t, []int64{2}, inv.users)
	require.Len(t, repo.audit, 1)
	assert.Equal(t, shared.AuditMemberRemoved, repo.audit[0].Action)
	assert.Equal(t, "MANAGER", repo.audit[0].Meta["role"])

	assert.ErrorIs(t, svc.RemoveMember(ctx, admin(), 2), ErrMemberNotFound)
	assert.ErrorIs(t, svc.RemoveMember(ctx, manager(), 4), ErrRoleNotManageable)
}

func TestIsPolicyError(t *testing.T) {
	assert.True(t, isPolicyError(ErrLastTenantAdmin))
	assert.True(t, isPolicyError(ErrTenantRequired))
	assert.False(t, isPolicyError(errors.New("conn refused")))
}
