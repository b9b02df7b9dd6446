// Copyright 2026 The StoreAdmin Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package authz

import "github.com/storeadmin/storeadmin/internal/rbac"

// -----------------------------------------------------------------------------
// Role Name Constants
// These are the canonical names for roles stored in the database.
// -----------------------------------------------------------------------------

const (
	// RoleAdmin satisfies every permission check regardless of explicit grants.
	RoleAdmin = "admin"

	// RoleEditor can view, create and edit catalogue content but not delete it.
	RoleEditor = "editor"

	// RoleViewer has read-only access to catalogue content.
	RoleViewer = "viewer"

	// RoleCategoryManager has full category control and limited product control.
	RoleCategoryManager = "category_manager"
)

// -----------------------------------------------------------------------------
// Role Permission Mappings
// These define the default permissions for each role.
// Used for seeding.
// -----------------------------------------------------------------------------

// EditorPermissions defines permissions for the editor role.
var EditorPermissions = []rbac.Permission{
	rbac.PermViewCategories,
	rbac.PermCreateCategories,
	rbac.PermEditCategories,
	rbac.PermViewProducts,
	rbac.PermCreateProducts,
	rbac.PermEditProducts,
}

// ViewerPermissions defines permissions for the viewer role.
var ViewerPermissions = []rbac.Permission{
	rbac.PermViewCategories,
	rbac.PermViewProducts,
}

// CategoryManagerPermissions defines permissions for the category_manager role.
var CategoryManagerPermissions = []rbac.Permission{
	rbac.PermViewCategories,
	rbac.PermCreateCategories,
	rbac.PermEditCategories,
	rbac.PermDeleteCategories,
	rbac.PermViewProducts,
	rbac.PermCreateProducts,
	rbac.PermEditProducts,
}

// SeedRole is a role created at bootstrap.
type SeedRole struct {
	Name        string
	Permissions []rbac.Permission
}

// DefaultRoles returns the bootstrap roles. The admin role is granted the full
// catalog explicitly even though the bypass makes it redundant, so role
// listings show what admin can do.
func DefaultRoles(catalog *rbac.Catalog) []SeedRole {
	return []SeedRole{
		{Name: RoleAdmin, Permissions: catalog.Ordered()},
		{Name: RoleEditor, Permissions: EditorPermissions},
		{Name: RoleViewer, Permissions: ViewerPermissions},
		{Name: RoleCategoryManager, Permissions: CategoryManagerPermissions},
	}
}
