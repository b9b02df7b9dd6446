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

package http

import (
	"time"

	"github.com/storeadmin/storeadmin/internal/authz"
	"github.com/storeadmin/storeadmin/internal/category"
	"github.com/storeadmin/storeadmin/internal/identity"
	"github.com/storeadmin/storeadmin/internal/rbac"
)

type userResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *identity.User, roles []string) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
	}
}

type roleResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Permissions rbac.Set  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newRoleResponse(r *authz.Role) roleResponse {
	return roleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Permissions: r.Permissions.Clone(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type overrideResponse struct {
	UserID      int64     `json:"user_id"`
	CategoryID  int64     `json:"category_id"`
	Permissions rbac.Set  `json:"permissions"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

func newOverrideResponse(o *authz.Override) overrideResponse {
	return overrideResponse{
		UserID:      o.UserID,
		CategoryID:  o.CategoryID,
		Permissions: o.Permissions.Clone(),
		UpdatedAt:   o.UpdatedAt,
	}
}

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func newCategoryResponse(c *category.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

type decisionResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

type permissionGroup struct {
	Resource    rbac.ResourceType `json:"resource"`
	Permissions []rbac.Permission `json:"permissions"`
}

// toPermissions converts request strings without validating them; the
// services check membership in the catalog.
func toPermissions(raw []string) rbac.Set {
	set := rbac.NewSet()
	for _, p := range raw {
		set.Add(rbac.Permission(p))
	}
	return set
}
