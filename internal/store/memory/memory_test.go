package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/storeadmin/storeadmin/internal/audit"
	"github.com/storeadmin/storeadmin/internal/authz"
	"github.com/storeadmin/storeadmin/internal/category"
	"github.com/storeadmin/storeadmin/internal/identity"
	"github.com/storeadmin/storeadmin/internal/rbac"
)

// TestPurpose: Validates that stored permission sets are isolated from caller mutation.
// Scope: Unit Test
// Security: Prevents a caller from altering grants without going through the store.
// Expected: Mutating the input or returned set leaves the stored role unchanged.
// Test Case ID: MEM-01
func TestRoleRepository_CopiesSets(t *testing.T) {
	ctx := context.Background()
	repo := NewRoleRepository(New())

	perms := rbac.NewSet(rbac.PermViewProducts)
	role := &authz.Role{Name: "viewer", Permissions: perms}
	require.NoError(t, repo.Create(ctx, role))
	perms.Add(rbac.PermDeleteProducts)

	got, err := repo.GetByID(ctx, role.ID)
	require.NoError(t, err)
	assert.False(t, got.HasPermission(rbac.PermDeleteProducts))

	got.Permissions.Add(rbac.PermDeleteUsers)
	again, err := repo.GetByName(ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Permissions.Len())
}

// TestPurpose: Validates name uniqueness on create and update.
// Scope: Unit Test
// Expected: ErrDuplicateName on collision; renaming a role to its own name succeeds.
// Test Case ID: MEM-02
func TestRoleRepository_UniqueName(t *testing.T) {
	ctx := context.Background()
	repo := NewRoleRepository(New())

	a := &authz.Role{Name: "a", Permissions: rbac.NewSet()}
	b := &authz.Role{Name: "b", Permissions: rbac.NewSet()}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	assert.ErrorIs(t, repo.Create(ctx, &authz.Role{Name: "a"}), authz.ErrDuplicateName)
	assert.ErrorIs(t, repo.Update(ctx, &authz.Role{ID: b.ID, Name: "a"}), authz.ErrDuplicateName)
	assert.NoError(t, repo.Update(ctx, &authz.Role{ID: a.ID, Name: "a", Permissions: rbac.NewSet(rbac.PermViewRoles)}))
	assert.ErrorIs(t, repo.Update(ctx, &authz.Role{ID: 999, Name: "z"}), authz.ErrRoleNotFound)
}

// TestPurpose: Validates role deletion cascades into user memberships.
// Scope: Unit Test
// Expected: After delete, the user no longer lists the role and the role is gone.
// Test Case ID: MEM-03
func TestRoleRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	repo := NewRoleRepository(New())

	editor := &authz.Role{Name: "editor", Permissions: rbac.NewSet(rbac.PermEditCategories)}
	viewer := &authz.Role{Name: "viewer", Permissions: rbac.NewSet(rbac.PermViewCategories)}
	require.NoError(t, repo.Create(ctx, editor))
	require.NoError(t, repo.Create(ctx, viewer))
	require.NoError(t, repo.SyncRoles(ctx, 7, []string{"editor", "viewer"}))

	require.NoError(t, repo.Delete(ctx, editor.ID))

	names, err := repo.RoleNames(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"viewer"}, names)

	_, err = repo.GetByID(ctx, editor.ID)
	assert.ErrorIs(t, err, authz.ErrRoleNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, editor.ID), authz.ErrRoleNotFound)
}

// TestPurpose: Validates SyncRoles is all-or-nothing.
// Scope: Unit Test
// Expected: Unknown role name returns ErrRoleNotFound and keeps previous memberships.
// Test Case ID: MEM-04
func TestRoleRepository_SyncRolesAtomic(t *testing.T) {
	ctx := context.Background()
	repo := NewRoleRepository(New())
	require.NoError(t, repo.Create(ctx, &authz.Role{Name: "viewer", Permissions: rbac.NewSet()}))
	require.NoError(t, repo.SyncRoles(ctx, 1, []string{"viewer"}))

	err := repo.SyncRoles(ctx, 1, []string{"viewer", "ghost"})
	assert.ErrorIs(t, err, authz.ErrRoleNotFound)

	names, err := repo.RoleNames(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"viewer"}, names)
}

// TestPurpose: Validates override upsert replaces, and empty sets are stored as records.
// Scope: Unit Test
// Expected: Second upsert replaces; empty set is retrievable; delete is idempotent.
// Test Case ID: MEM-05
func TestOverrideRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewOverrideRepository(New())

	require.NoError(t, repo.Upsert(ctx, &authz.Override{UserID: 1, CategoryID: 7, Permissions: rbac.NewSet(rbac.PermEditCategories)}))
	require.NoError(t, repo.Upsert(ctx, &authz.Override{UserID: 1, CategoryID: 7, Permissions: rbac.NewSet(rbac.PermViewProducts)}))

	o, err := repo.Get(ctx, 1, 7)
	require.NoError(t, err)
	assert.True(t, o.Permissions.Equal(rbac.NewSet(rbac.PermViewProducts)))

	require.NoError(t, repo.Upsert(ctx, &authz.Override{UserID: 2, CategoryID: 7}))
	o, err = repo.Get(ctx, 2, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, o.Permissions.Len())

	require.NoError(t, repo.Delete(ctx, 1, 7))
	require.NoError(t, repo.Delete(ctx, 1, 7))
	_, err = repo.Get(ctx, 1, 7)
	assert.ErrorIs(t, err, authz.ErrOverrideNotFound)
	assert.ErrorIs(t, err, authz.ErrNotFound)

	byCat, err := repo.ListForCategories(ctx, []int64{7, 8})
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, int64(2), byCat[0].UserID)
}

// TestPurpose: Validates user and category repositories enforce uniqueness and lookups.
// Scope: Unit Test
// Expected: Duplicate email/slug rejected; lookups by email/slug find records.
// Test Case ID: MEM-06
func TestUserAndCategoryRepositories(t *testing.T) {
	ctx := context.Background()
	db := New()
	users := NewUserRepository(db)
	cats := NewCategoryRepository(db)

	u := &identity.User{Name: "Viewer", Email: "viewer@example.com"}
	require.NoError(t, users.Create(ctx, u))
	assert.ErrorIs(t, users.Create(ctx, &identity.User{Email: "viewer@example.com"}), identity.ErrUserAlreadyExists)

	got, err := users.GetByEmail(ctx, "viewer@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.GetCredentials(ctx, u.ID)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
	require.NoError(t, users.AddCredentials(ctx, &identity.Credentials{UserID: u.ID, PasswordHash: "h"}))
	c, err := users.GetCredentials(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "h", c.PasswordHash)

	books := &category.Category{Name: "Books", Slug: "books"}
	require.NoError(t, cats.Create(ctx, books))
	assert.ErrorIs(t, cats.Create(ctx, &category.Category{Name: "Books 2", Slug: "books"}), category.ErrDuplicateSlug)

	gotCat, err := cats.GetBySlug(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, books.ID, gotCat.ID)

	_, err = cats.GetByID(ctx, 999)
	assert.ErrorIs(t, err, category.ErrCategoryNotFound)
}

// TestPurpose: Validates that readers never observe a partially written permission set.
// Scope: Unit Test (run with -race)
// Security: A check racing an override or role update sees either the old or the new grants, never a mix.
// Expected: Every concurrent read returns exactly one of the two sets being written.
// Test Case ID: MEM-07
func TestConcurrentWritesAreAtomic(t *testing.T) {
	ctx := context.Background()
	db := New()
	catalog := rbac.DefaultCatalog()
	auditLog := audit.NewMemoryLogger()
	roleRepo := NewRoleRepository(db)

	roles := authz.NewRoleService(catalog, roleRepo, roleRepo, auditLog)
	overrides := authz.NewOverrideService(catalog, NewOverrideRepository(db), auditLog)
	resolver, err := authz.NewResolver(roles, overrides)
	require.NoError(t, err)

	setA := rbac.NewSet(rbac.PermViewProducts, rbac.PermEditProducts)
	setB := rbac.NewSet(rbac.PermDeleteProducts, rbac.PermCreateProducts, rbac.PermEditCategories)

	role, err := roles.CreateRole(ctx, "rotating", setA)
	require.NoError(t, err)
	actor := &authz.Actor{ID: 9, Roles: []string{"rotating"}}
	const categoryID = int64(3)
	_, err = overrides.SetOverride(ctx, actor.ID, categoryID, setA)
	require.NoError(t, err)

	const rounds = 200
	var g errgroup.Group

	g.Go(func() error {
		for i := range rounds {
			next := setA
			if i%2 == 0 {
				next = setB
			}
			if _, err := overrides.SetOverride(ctx, actor.ID, categoryID, next); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for i := range rounds {
			next := setA
			if i%2 == 0 {
				next = setB
			}
			if _, err := roles.UpdateRole(ctx, role.ID, "rotating", next); err != nil {
				return err
			}
		}
		return nil
	})

	for range 4 {
		g.Go(func() error {
			for range rounds {
				scoped, ok, err := overrides.GetOverride(ctx, actor.ID, categoryID)
				if err != nil {
					return err
				}
				if !ok || !(scoped.Equal(setA) || scoped.Equal(setB)) {
					return fmt.Errorf("torn override read: %v", scoped.Strings())
				}

				global, err := roles.EffectivePermissions(ctx, actor)
				if err != nil {
					return err
				}
				if !global.Equal(setA) && !global.Equal(setB) {
					return fmt.Errorf("torn role read: %v", global.Strings())
				}

				if _, err := resolver.Check(ctx, actor, rbac.PermDeleteProducts, ptr(categoryID)); err != nil {
					return err
				}
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
}

func ptr(v int64) *int64 { return &v }
