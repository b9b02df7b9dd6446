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
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RoleRequest is the body for creating or replacing a role
type RoleRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Permissions []string `json:"permissions" validate:"dive,required"`
}

// AssignRolesRequest replaces a user's role memberships
type AssignRolesRequest struct {
	Roles []string `json:"roles" validate:"required,dive,required"`
}

// ListPermissions returns the permission catalog grouped by resource type
// @Summary List Permissions
// @Tags Roles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} permissionGroup
// @Router /permissions [get]
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	catalog := h.roleService.Catalog()
	grouped := catalog.GroupByResourceType()

	groups := make([]permissionGroup, 0, len(grouped))
	for _, rt := range catalog.ResourceTypes() {
		groups = append(groups, permissionGroup{Resource: rt, Permissions: grouped[rt]})
	}
	respondJSON(w, http.StatusOK, groups)
}

// ListRoles returns all roles with their permissions
// @Summary List Roles
// @Tags Roles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} roleResponse
// @Router /roles [get]
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleService.ListRoles(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "list_roles")
		return
	}

	resp := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		resp = append(resp, newRoleResponse(role))
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetRole returns a single role
// @Summary Get Role
// @Tags Roles
// @Produce json
// @Security BearerAuth
// @Param roleID path int true "Role ID"
// @Success 200 {object} roleResponse
// @Failure 404 {object} map[string]string
// @Router /roles/{roleID} [get]
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "roleID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	role, err := h.roleService.GetRole(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "get_role")
		return
	}
	respondJSON(w, http.StatusOK, newRoleResponse(role))
}

// CreateRole creates a role
// @Summary Create Role
// @Tags Roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RoleRequest true "Role"
// @Success 201 {object} roleResponse
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /roles [post]
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	role, err := h.roleService.CreateRole(r.Context(), req.Name, toPermissions(req.Permissions))
	if err != nil {
		respondServiceError(w, r, err, "create_role")
		return
	}
	respondJSON(w, http.StatusCreated, newRoleResponse(role))
}

// UpdateRole replaces a role's name and permission set
// @Summary Update Role
// @Tags Roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param roleID path int true "Role ID"
// @Param request body RoleRequest true "Role"
// @Success 200 {object} roleResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /roles/{roleID} [put]
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "roleID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req RoleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	role, err := h.roleService.UpdateRole(r.Context(), id, req.Name, toPermissions(req.Permissions))
	if err != nil {
		respondServiceError(w, r, err, "update_role")
		return
	}
	respondJSON(w, http.StatusOK, newRoleResponse(role))
}

// DeleteRole deletes a role
// @Summary Delete Role
// @Tags Roles
// @Security BearerAuth
// @Param roleID path int true "Role ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /roles/{roleID} [delete]
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "roleID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.roleService.DeleteRole(r.Context(), id); err != nil {
		respondServiceError(w, r, err, "delete_role")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignRoles replaces the roles held by a user
// @Summary Assign Roles
// @Tags Users
// @Accept json
// @Security BearerAuth
// @Param userID path int true "User ID"
// @Param request body AssignRolesRequest true "Role names"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /users/{userID}/roles [put]
func (h *Handler) AssignRoles(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req AssignRolesRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.identityService.GetUser(r.Context(), userID); err != nil {
		respondServiceError(w, r, err, "assign_roles")
		return
	}
	if err := h.roleService.AssignRoles(r.Context(), userID, req.Roles); err != nil {
		respondServiceError(w, r, err, "assign_roles")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
