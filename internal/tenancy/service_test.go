package tenancy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
)

type membershipKey struct{ user, tenant int64 }

type stubRepo struct {
	mu          sync.Mutex
	users       map[int64]Access
	memberships map[membershipKey]string
	tenants     []Tenant
	loads       int
	err         error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users: map[int64]Access{
			1: {UserActive: true, Superuser: true},
			2: {UserActive: true},
			3: {UserActive: true},
			4: {UserActive: false},
			5: {UserActive: true},
		},
		memberships: map[membershipKey]string{
			{2, 10}: "TENANT_ADMIN",
			{3, 10}: "manager",
			{3, 20}: "USER",
			{4, 10}: "USER",
			{5, 10}: "OWNER",
		},
		tenants: []Tenant{{ID: 10, Name: "Acme", IsActive: true}, {ID: 20, Name: "Globex", IsActive: true}},
	}
}

func (s *stubRepo) LoadAccess(ctx context.Context, userID, tenantID int64) (Access, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return Access{}, s.err
	}
	access, ok := s.users[userID]
	if !ok {
		return Access{}, shared.ErrNotFound
	}
	if tenantID != 0 {
		if role, ok := s.memberships[membershipKey{userID, tenantID}]; ok {
			access.Member = true
			access.Role = role
		}
	}
	return access, nil
}

func (s *stubRepo) ListTenantsForUser(ctx context.Context, userID int64) ([]Tenant, error) {
	var out []Tenant
	for _, t := range s.tenants {
		if _, ok := s.memberships[membershipKey{userID, t.ID}]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubRepo) ListActiveTenants(ctx context.Context) ([]Tenant, error) {
	return s.tenants, nil
}

func TestPrincipalResolution(t *testing.T) {
	svc := NewService(newStubRepo(), nil)
	ctx := context.Background()

	p, err := svc.Principal(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, rbac.Principal{UserID: 2, TenantID: 10, Role: rbac.RoleTenantAdmin}, p)

	p, err = svc.Principal(ctx, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleManager, p.Role, "stored roles are case-insensitive")

	p, err = svc.Principal(ctx, 3, 20)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleUser, p.Role, "role is scoped to the tenant")
}

func TestSuperuserBypassesTenantScoping(t *testing.T) {
	svc := NewService(newStubRepo(), nil)
	ctx := context.Background()

	p, err := svc.Principal(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSuperuser, p.Role)

	p, err = svc.Principal(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSuperuser, p.Role)
	assert.Equal(t, int64(20), p.TenantID)
}

func TestPrincipalFailures(t *testing.T) {
	svc := NewService(newStubRepo(), nil)
	ctx := context.Background()

	_, err := svc.Principal(ctx, 2, 0)
	assert.ErrorIs(t, err, rbac.ErrNoTenant)

	_, err = svc.Principal(ctx, 2, 20)
	assert.ErrorIs(t, err, rbac.ErrNoMembership)

	_, err = svc.Principal(ctx, 4, 10)
	assert.ErrorIs(t, err, rbac.ErrNoMembership, "inactive users resolve to nothing")

	_, err = svc.Principal(ctx, 404, 10)
	assert.ErrorIs(t, err, rbac.ErrNoMembership)

	_, err = svc.Principal(ctx, 5, 10)
	assert.ErrorIs(t, err, rbac.ErrUnknownRole)
	assert.NotErrorIs(t, err, rbac.ErrNoMembership, "corrupt data is a server error, not a denial")
}

func TestMembershipRoleRejectsSuperuser(t *testing.T) {
	_, err := MembershipRole("SUPERUSER")
	assert.ErrorIs(t, err, ErrInvalidMembershipRole)

	role, err := MembershipRole("manager")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleManager, role)
}

func TestTenantsForUserAndSuperuser(t *testing.T) {
	svc := NewService(newStubRepo(), nil)
	ctx := context.Background()

	tenants, err := svc.Tenants(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, tenants, 2)

	tenants, err = svc.Tenants(ctx, 2)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, int64(10), tenants[0].ID)

	tenants, err = svc.Tenants(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, tenants, 2, "superusers see every active tenant")

	_, err = svc.Tenants(ctx, 4)
	assert.ErrorIs(t, err, rbac.ErrNoMembership)
}

func newTestSession(t *testing.T) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "s", time.Hour, false)
	sess, err := sm.Load(context.Background(), mustRequest(t))
	require.NoError(t, err)
	return sess
}

func TestSwitchTenant(t *testing.T) {
	svc := NewService(newStubRepo(), nil)
	ctx := context.Background()
	sess := newTestSession(t)

	p, err := svc.SwitchTenant(ctx, sess, 3, 20)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleUser, p.Role)
	assert.Equal(t, int64(20), sess.TenantID())

	_, err = svc.SwitchTenant(ctx, sess, 2, 20)
	assert.ErrorIs(t, err, rbac.ErrNoMembership)
	assert.Equal(t, int64(20), sess.TenantID(), "failed switch keeps the previous tenant")

	_, err = svc.SwitchTenant(ctx, sess, 1, 99)
	assert.ErrorIs(t, err, rbac.ErrNoMembership, "superusers cannot bind unknown tenants")

	_, err = svc.SwitchTenant(ctx, sess, 3, 0)
	assert.ErrorIs(t, err, rbac.ErrNoTenant)

	_, err = svc.SwitchTenant(ctx, nil, 3, 20)
	assert.ErrorIs(t, err, shared.ErrSessionMissing)
}

func TestRoleCacheServesAndInvalidates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newStubRepo()
	svc := NewService(repo, NewRoleCache(client, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := svc.Principal(ctx, 3, 10)
		require.NoError(t, err)
		assert.Equal(t, rbac.RoleManager, p.Role)
	}
	assert.Equal(t, 1, repo.loads)

	repo.mu.Lock()
	repo.memberships[membershipKey{3, 10}] = "USER"
	repo.mu.Unlock()
	require.NoError(t, svc.Invalidate(ctx, 3))

	p, err := svc.Principal(ctx, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleUser, p.Role)
	assert.Equal(t, 2, repo.loads)
}

func TestRoleCacheDoesNotStoreFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newStubRepo()
	repo.err = errors.New("db down")
	svc := NewService(repo, NewRoleCache(client, time.Minute))
	ctx := context.Background()

	_, err := svc.Principal(ctx, 2, 10)
	require.Error(t, err)

	repo.mu.Lock()
	repo.err = nil
	repo.mu.Unlock()
	p, err := svc.Principal(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleTenantAdmin, p.Role)
}
