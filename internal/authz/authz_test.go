package authz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/storeadmin/storeadmin/internal/audit"
	"github.com/storeadmin/storeadmin/internal/authz"
	"github.com/storeadmin/storeadmin/internal/observability/metrics"
	"github.com/storeadmin/storeadmin/internal/rbac"
	"github.com/storeadmin/storeadmin/internal/store/memory"
)

type fixture struct {
	catalog   *rbac.Catalog
	roles     *authz.RoleService
	overrides *authz.OverrideService
	resolver  *authz.Resolver
	audit     *audit.MemoryLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	catalog := rbac.DefaultCatalog()
	auditLog := audit.NewMemoryLogger()
	roleRepo := memory.NewRoleRepository(db)

	roles := authz.NewRoleService(catalog, roleRepo, roleRepo, auditLog)
	overrides := authz.NewOverrideService(catalog, memory.NewOverrideRepository(db), auditLog)
	resolver, err := authz.NewResolver(roles, overrides)
	require.NoError(t, err)

	return &fixture{catalog: catalog, roles: roles, overrides: overrides, resolver: resolver, audit: auditLog}
}

func scope(id int64) *int64 { return &id }

func (f *fixture) check(t *testing.T, actor *authz.Actor, p rbac.Permission, s *int64) bool {
	t.Helper()
	ok, err := f.resolver.Check(context.Background(), actor, p, s)
	require.NoError(t, err)
	return ok
}

// TestPurpose: Validates the admin bypass grants every permission in every scope.
// Scope: Unit Test
// Security: Admin precedence is evaluated first and unconditionally.
// Expected: Check is true for all catalog permissions, scoped and unscoped, even with no grants.
// Test Case ID: RES-01
func TestResolver_AdminBypass(t *testing.T) {
	f := newFixture(t)
	// admin role exists with no permissions at all
	_, err := f.roles.CreateRole(context.Background(), authz.RoleAdmin, rbac.NewSet())
	require.NoError(t, err)

	admin := &authz.Actor{ID: 1, Roles: []string{authz.RoleAdmin}}
	for _, p := range f.catalog.Ordered() {
		assert.True(t, f.check(t, admin, p, nil), p)
		assert.True(t, f.check(t, admin, p, scope(42)), p)
	}

	d, err := f.resolver.Decide(context.Background(), admin, rbac.PermDeleteRoles, nil)
	require.NoError(t, err)
	assert.Equal(t, authz.ReasonAdmin, d.Reason)
}

// TestPurpose: Validates unscoped checks equal membership in the union of role grants.
// Scope: Unit Test
// Expected: True exactly for permissions in editor ∪ viewer grants.
// Test Case ID: RES-02
func TestResolver_GlobalGrantsUnion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.roles.CreateRole(ctx, "a", rbac.NewSet(rbac.PermViewCategories, rbac.PermEditProducts))
	require.NoError(t, err)
	_, err = f.roles.CreateRole(ctx, "b", rbac.NewSet(rbac.PermViewUsers))
	require.NoError(t, err)

	actor := &authz.Actor{ID: 2, Roles: []string{"a", "b"}}
	union := rbac.NewSet(rbac.PermViewCategories, rbac.PermEditProducts, rbac.PermViewUsers)

	for _, p := range f.catalog.Ordered() {
		assert.Equal(t, union.Has(p), f.check(t, actor, p, nil), p)
	}

	eff, err := f.roles.EffectivePermissions(ctx, actor)
	require.NoError(t, err)
	assert.True(t, eff.Equal(union))
}

// TestPurpose: Validates that a global grant dominates every scope.
// Scope: Unit Test
// Expected: A globally granted permission stays true in any scope, including after an override is set without it.
// Test Case ID: RES-03
func TestResolver_GlobalDominatesScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.roles.CreateRole(ctx, authz.RoleEditor, rbac.NewSet(authz.EditorPermissions...))
	require.NoError(t, err)

	actor := &authz.Actor{ID: 3, Roles: []string{authz.RoleEditor}}
	_, err = f.overrides.SetOverride(ctx, actor.ID, 7, rbac.NewSet())
	require.NoError(t, err)

	for _, s := range []int64{1, 7, 99} {
		assert.True(t, f.check(t, actor, rbac.PermEditCategories, scope(s)))
	}
	require.NoError(t, f.overrides.RemoveOverride(ctx, actor.ID, 7))
	assert.True(t, f.check(t, actor, rbac.PermEditCategories, scope(7)))
}

// TestPurpose: Validates override replace-not-merge semantics.
// Scope: Unit Test
// Expected: After setting {P1} then {P2}, P1 is denied and P2 allowed in that scope.
// Test Case ID: RES-04
func TestResolver_OverrideReplaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := &authz.Actor{ID: 4}

	_, err := f.overrides.SetOverride(ctx, actor.ID, 7, rbac.NewSet(rbac.PermEditCategories))
	require.NoError(t, err)
	_, err = f.overrides.SetOverride(ctx, actor.ID, 7, rbac.NewSet(rbac.PermDeleteCategories))
	require.NoError(t, err)

	assert.False(t, f.check(t, actor, rbac.PermEditCategories, scope(7)))
	assert.True(t, f.check(t, actor, rbac.PermDeleteCategories, scope(7)))
}

// TestPurpose: Validates the editor scenario.
// Scope: Unit Test
// Expected: delete categories denied; edit categories allowed.
// Test Case ID: RES-05
func TestResolver_EditorScenario(t *testing.T) {
	f := newFixture(t)
	_, err := f.roles.CreateRole(context.Background(), authz.RoleEditor,
		rbac.NewSet(rbac.PermViewCategories, rbac.PermCreateCategories, rbac.PermEditCategories))
	require.NoError(t, err)

	u := &authz.Actor{ID: 5, Roles: []string{authz.RoleEditor}}
	assert.False(t, f.check(t, u, rbac.PermDeleteCategories, nil))
	assert.True(t, f.check(t, u, rbac.PermEditCategories, nil))
}

// TestPurpose: Validates the scoped override scenario for an actor with no roles.
// Scope: Unit Test
// Security: Override grants must not leak to other categories or other permissions.
// Expected: edit in 7 true; edit in 8 false; view in 7 false; unscoped edit false.
// Test Case ID: RES-06
func TestResolver_OverrideScenario(t *testing.T) {
	f := newFixture(t)
	u := &authz.Actor{ID: 6}
	_, err := f.overrides.SetOverride(context.Background(), u.ID, 7, rbac.NewSet(rbac.PermEditCategories))
	require.NoError(t, err)

	assert.True(t, f.check(t, u, rbac.PermEditCategories, scope(7)))
	assert.False(t, f.check(t, u, rbac.PermEditCategories, scope(8)))
	assert.False(t, f.check(t, u, rbac.PermViewCategories, scope(7)))
	assert.False(t, f.check(t, u, rbac.PermEditCategories, nil))

	d, err := f.resolver.Decide(context.Background(), u, rbac.PermEditCategories, scope(7))
	require.NoError(t, err)
	assert.Equal(t, authz.ReasonOverride, d.Reason)
}

// TestPurpose: Validates a nil actor is never allowed.
// Scope: Unit Test
// Expected: Check returns false with reason unauthenticated.
// Test Case ID: RES-07
func TestResolver_NilActor(t *testing.T) {
	f := newFixture(t)
	d, err := f.resolver.Decide(context.Background(), nil, rbac.PermViewCategories, scope(1))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, authz.ReasonUnauthenticated, d.Reason)
}

// TestPurpose: Validates that every decision is counted by reason.
// Scope: Unit Test
// Expected: authz.checks carries one data point per reason with the number of decisions made for it.
// Test Case ID: RES-08
func TestResolver_ChecksMetric(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reader := sdkmetric.NewManualReader()
	meter, err := metrics.New(ctx, metrics.Config{Enabled: true, ServiceName: "storeadmin-test", Reader: reader})
	require.NoError(t, err)
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	resolver, err := authz.NewResolver(f.roles, f.overrides, authz.WithMeter(meter))
	require.NoError(t, err)

	_, err = f.roles.CreateRole(ctx, authz.RoleEditor, rbac.NewSet(authz.EditorPermissions...))
	require.NoError(t, err)
	_, err = f.overrides.SetOverride(ctx, 5, 7, rbac.NewSet(rbac.PermDeleteProducts))
	require.NoError(t, err)

	admin := &authz.Actor{ID: 1, Roles: []string{authz.RoleAdmin}}
	editor := &authz.Actor{ID: 2, Roles: []string{authz.RoleEditor}}
	scoped := &authz.Actor{ID: 5}

	decisions := []struct {
		actor *authz.Actor
		perm  rbac.Permission
		scope *int64
	}{
		{admin, rbac.PermDeleteRoles, nil},
		{editor, rbac.PermEditCategories, nil},
		{editor, rbac.PermEditCategories, scope(7)},
		{scoped, rbac.PermDeleteProducts, scope(7)},
		{scoped, rbac.PermDeleteProducts, scope(8)},
		{nil, rbac.PermViewCategories, nil},
	}
	for _, d := range decisions {
		_, err := resolver.Decide(ctx, d.actor, d.perm, d.scope)
		require.NoError(t, err)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != "storeadmin-test" {
			continue
		}
		for _, md := range sm.Metrics {
			if md.Name != "authz.checks" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				reason, ok := dp.Attributes.Value(attribute.Key("decision.reason"))
				require.True(t, ok)
				counts[reason.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, map[string]int64{
		authz.ReasonAdmin:           1,
		authz.ReasonRole:            2,
		authz.ReasonOverride:        1,
		authz.ReasonDenied:          1,
		authz.ReasonUnauthenticated: 1,
	}, counts)
}

// TestPurpose: Validates override round-trip including the empty set, and absence versus empty.
// Scope: Unit Test
// Expected: GetOverride returns the stored set; ok=false only when no record exists.
// Test Case ID: OVR-01
func TestOverrideService_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sets := []rbac.Set{
		rbac.NewSet(),
		rbac.NewSet(rbac.PermViewProducts),
		rbac.NewSet(rbac.PermViewCategories, rbac.PermEditCategories, rbac.PermDeleteProducts),
	}
	for i, s := range sets {
		cat := int64(i + 1)
		_, err := f.overrides.SetOverride(ctx, 1, cat, s)
		require.NoError(t, err)

		got, ok, err := f.overrides.GetOverride(ctx, 1, cat)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, got.Equal(s))
	}

	got, ok, err := f.overrides.GetOverride(ctx, 1, 99)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

// TestPurpose: Validates RemoveOverride is idempotent.
// Scope: Unit Test
// Expected: Removing twice or removing a never-set pair returns nil.
// Test Case ID: OVR-02
func TestOverrideService_RemoveIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.NoError(t, f.overrides.RemoveOverride(ctx, 1, 1))
	_, err := f.overrides.SetOverride(ctx, 1, 1, rbac.NewSet(rbac.PermViewProducts))
	require.NoError(t, err)
	assert.NoError(t, f.overrides.RemoveOverride(ctx, 1, 1))
	assert.NoError(t, f.overrides.RemoveOverride(ctx, 1, 1))

	_, ok, err := f.overrides.GetOverride(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestPurpose: Validates overrides referencing permissions outside the catalog are rejected.
// Scope: Unit Test
// Security: Prevents arbitrary capability strings being persisted.
// Expected: ErrUnknownPermission and the previous override is unchanged.
// Test Case ID: OVR-03
func TestOverrideService_UnknownPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.overrides.SetOverride(ctx, 1, 7, rbac.NewSet(rbac.PermViewProducts))
	require.NoError(t, err)

	_, err = f.overrides.SetOverride(ctx, 1, 7, rbac.NewSet(rbac.PermEditProducts, "launch missiles"))
	assert.ErrorIs(t, err, authz.ErrUnknownPermission)

	got, ok, err := f.overrides.GetOverride(ctx, 1, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(rbac.NewSet(rbac.PermViewProducts)))
}

// TestPurpose: Validates listing visibility: unclaimed categories and the user's own scoped categories.
// Scope: Unit Test
// Expected: Category claimed only by another user is hidden; empty override still lists; input order kept.
// Test Case ID: OVR-04
func TestOverrideService_AccessibleResources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.overrides.SetOverride(ctx, 1, 10, rbac.NewSet())
	require.NoError(t, err)
	_, err = f.overrides.SetOverride(ctx, 2, 20, rbac.NewSet(rbac.PermViewCategories))
	require.NoError(t, err)
	_, err = f.overrides.SetOverride(ctx, 2, 10, rbac.NewSet(rbac.PermViewCategories))
	require.NoError(t, err)

	got, err := f.overrides.AccessibleResources(ctx, 1, []int64{30, 20, 10, 30})
	require.NoError(t, err)
	assert.Equal(t, []int64{30, 10}, got)

	got, err = f.overrides.AccessibleResources(ctx, 2, []int64{10, 20, 30})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, got)

	got, err = f.overrides.AccessibleResources(ctx, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestPurpose: Validates duplicate role names are rejected without touching the existing role.
// Scope: Unit Test
// Expected: ErrDuplicateName; the original role keeps its permission set.
// Test Case ID: ROL-01
func TestRoleService_CreateDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orig, err := f.roles.CreateRole(ctx, "editor", rbac.NewSet(rbac.PermEditCategories))
	require.NoError(t, err)

	_, err = f.roles.CreateRole(ctx, "  editor ", rbac.NewSet(rbac.PermDeleteCategories))
	assert.ErrorIs(t, err, authz.ErrDuplicateName)

	got, err := f.roles.GetRole(ctx, orig.ID)
	require.NoError(t, err)
	assert.True(t, got.Permissions.Equal(rbac.NewSet(rbac.PermEditCategories)))
}

// TestPurpose: Validates a failed update leaves name and permissions untouched.
// Scope: Unit Test
// Expected: ErrUnknownPermission; stored role unchanged. Valid update replaces the whole set.
// Test Case ID: ROL-02
func TestRoleService_UpdateAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	role, err := f.roles.CreateRole(ctx, "viewer", rbac.NewSet(rbac.PermViewCategories, rbac.PermViewProducts))
	require.NoError(t, err)

	_, err = f.roles.UpdateRole(ctx, role.ID, "renamed", rbac.NewSet(rbac.PermViewUsers, "fly"))
	assert.ErrorIs(t, err, authz.ErrUnknownPermission)

	got, err := f.roles.GetRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, "viewer", got.Name)
	assert.True(t, got.Permissions.Equal(rbac.NewSet(rbac.PermViewCategories, rbac.PermViewProducts)))

	updated, err := f.roles.UpdateRole(ctx, role.ID, "viewer", rbac.NewSet(rbac.PermViewUsers))
	require.NoError(t, err)
	assert.True(t, updated.Permissions.Equal(rbac.NewSet(rbac.PermViewUsers)))

	_, err = f.roles.UpdateRole(ctx, 999, "ghost", rbac.NewSet())
	assert.ErrorIs(t, err, authz.ErrRoleNotFound)
	assert.ErrorIs(t, err, authz.ErrNotFound)
}

// TestPurpose: Validates role name validation.
// Scope: Unit Test
// Expected: Blank and over-long names are rejected with ErrInvalidRoleName.
// Test Case ID: ROL-03
func TestRoleService_InvalidName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.roles.CreateRole(ctx, "   ", rbac.NewSet())
	assert.ErrorIs(t, err, authz.ErrInvalidRoleName)

	long := make([]rune, authz.MaxRoleNameLength+1)
	for i := range long {
		long[i] = 'r'
	}
	_, err = f.roles.CreateRole(ctx, string(long), rbac.NewSet())
	assert.ErrorIs(t, err, authz.ErrInvalidRoleName)
}

// TestPurpose: Validates role deletion removes grants from holders and reports missing roles.
// Scope: Unit Test
// Expected: Holder loses the permission; second delete is ErrRoleNotFound; audit event recorded.
// Test Case ID: ROL-04
func TestRoleService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	role, err := f.roles.CreateRole(ctx, "temp", rbac.NewSet(rbac.PermViewUsers))
	require.NoError(t, err)
	require.NoError(t, f.roles.AssignRoles(ctx, 9, []string{"temp"}))

	names, err := f.roles.RoleNames(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, []string{"temp"}, names)

	require.NoError(t, f.roles.DeleteRole(ctx, role.ID))
	assert.ErrorIs(t, f.roles.DeleteRole(ctx, role.ID), authz.ErrRoleNotFound)

	names, err = f.roles.RoleNames(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Len(t, f.audit.OfType(audit.TypeRoleDeleted), 1)
}

// TestPurpose: Validates admin effective permissions equal the full catalog.
// Scope: Unit Test
// Expected: EffectivePermissions(admin) == catalog; nil actor yields empty set.
// Test Case ID: ROL-05
func TestRoleService_EffectivePermissionsAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	eff, err := f.roles.EffectivePermissions(ctx, &authz.Actor{ID: 1, Roles: []string{authz.RoleAdmin}})
	require.NoError(t, err)
	assert.True(t, eff.Equal(f.catalog.List()))

	eff, err = f.roles.EffectivePermissions(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, eff.Len())
}

// TestPurpose: Validates AssignRoles replaces memberships and rejects unknown roles.
// Scope: Unit Test
// Expected: Sync semantics; ErrRoleNotFound for an unknown name.
// Test Case ID: ROL-06
func TestRoleService_AssignRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, n := range []string{"a", "b"} {
		_, err := f.roles.CreateRole(ctx, n, rbac.NewSet())
		require.NoError(t, err)
	}

	require.NoError(t, f.roles.AssignRoles(ctx, 1, []string{"b", "a", "a"}))
	names, err := f.roles.RoleNames(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, f.roles.AssignRoles(ctx, 1, []string{"b"}))
	names, err = f.roles.RoleNames(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)

	assert.ErrorIs(t, f.roles.AssignRoles(ctx, 1, []string{"nope"}), authz.ErrRoleNotFound)
}

// MockChecker is a testify mock of authz.Checker
type MockChecker struct {
	mock.Mock
}

func (m *MockChecker) Decide(ctx context.Context, actor *authz.Actor, p rbac.Permission, s *int64) (authz.Decision, error) {
	args := m.Called(ctx, actor, p, s)
	return args.Get(0).(authz.Decision), args.Error(1)
}

// TestPurpose: Validates gate outcomes for missing actor, denial, allowance and store failure.
// Scope: Unit Test
// Security: Denials are audited; unauthenticated requests never reach the resolver.
// Expected: ErrUnauthenticated, ErrForbidden, nil, wrapped error respectively.
// Test Case ID: GATE-01
func TestGate_Authorize(t *testing.T) {
	ctx := context.Background()
	actor := &authz.Actor{ID: 5}
	cat := scope(7)

	checker := new(MockChecker)
	auditLog := audit.NewMemoryLogger()
	gate := authz.NewGate(checker, auditLog)

	assert.ErrorIs(t, gate.Authorize(ctx, nil, rbac.PermViewCategories, nil), authz.ErrUnauthenticated)
	checker.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	checker.On("Decide", ctx, actor, rbac.PermDeleteCategories, cat).
		Return(authz.Decision{Reason: authz.ReasonDenied}, nil).Once()
	assert.ErrorIs(t, gate.Authorize(ctx, actor, rbac.PermDeleteCategories, cat), authz.ErrForbidden)

	denied := auditLog.OfType(audit.TypeAccessDenied)
	require.Len(t, denied, 1)
	assert.Equal(t, int64(7), denied[0].Metadata[audit.AttrCategoryID])

	checker.On("Decide", ctx, actor, rbac.PermViewCategories, cat).
		Return(authz.Decision{Allowed: true, Reason: authz.ReasonOverride}, nil).Once()
	assert.NoError(t, gate.Authorize(ctx, actor, rbac.PermViewCategories, cat))

	boom := errors.New("connection reset")
	checker.On("Decide", ctx, actor, rbac.PermEditCategories, (*int64)(nil)).
		Return(authz.Decision{}, boom).Once()
	err := gate.Authorize(ctx, actor, rbac.PermEditCategories, nil)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, authz.ErrForbidden)

	checker.AssertExpectations(t)
}

// TestPurpose: Validates the actor context helpers.
// Scope: Unit Test
// Expected: Actor round-trips through context; missing actor is nil.
// Test Case ID: GATE-02
func TestActorContext(t *testing.T) {
	assert.Nil(t, authz.ActorFromContext(context.Background()))

	a := &authz.Actor{ID: 3, Roles: []string{authz.RoleViewer}}
	ctx := authz.WithActor(context.Background(), a)
	assert.Same(t, a, authz.ActorFromContext(ctx))
	assert.False(t, a.IsAdmin())
	assert.True(t, a.HasRole(authz.RoleViewer))
}
