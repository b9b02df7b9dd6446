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

	"github.com/storeadmin/storeadmin/internal/authz"
)

// OverrideRequest replaces a user's permission set for one category
type OverrideRequest struct {
	Permissions []string `json:"permissions" validate:"required,dive,required"`
}

// overrideTarget resolves and verifies the routed user and category
func (h *Handler) overrideTarget(w http.ResponseWriter, r *http.Request, op string) (int64, int64, bool) {
	userID, err := parseID(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	categoryID, err := parseID(chi.URLParam(r, "categoryID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}

	if _, err := h.identityService.GetUser(r.Context(), userID); err != nil {
		respondServiceError(w, r, err, op)
		return 0, 0, false
	}
	if _, err := h.categoryService.Get(r.Context(), categoryID); err != nil {
		respondServiceError(w, r, err, op)
		return 0, 0, false
	}
	return userID, categoryID, true
}

// ListUserOverrides returns every category override held by a user
// @Summary List User Overrides
// @Tags Overrides
// @Produce json
// @Security BearerAuth
// @Param userID path int true "User ID"
// @Success 200 {array} overrideResponse
// @Router /users/{userID}/overrides [get]
func (h *Handler) ListUserOverrides(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.identityService.GetUser(r.Context(), userID); err != nil {
		respondServiceError(w, r, err, "list_overrides")
		return
	}

	overrides, err := h.overrideService.ListOverrides(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "list_overrides")
		return
	}

	resp := make([]overrideResponse, 0, len(overrides))
	for _, o := range overrides {
		resp = append(resp, newOverrideResponse(o))
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetOverride returns the override for (user, category)
// @Summary Get Override
// @Tags Overrides
// @Produce json
// @Security BearerAuth
// @Param userID path int true "User ID"
// @Param categoryID path int true "Category ID"
// @Success 200 {object} overrideResponse
// @Failure 404 {object} map[string]string
// @Router /users/{userID}/categories/{categoryID}/permissions [get]
func (h *Handler) GetOverride(w http.ResponseWriter, r *http.Request) {
	userID, categoryID, ok := h.overrideTarget(w, r, "get_override")
	if !ok {
		return
	}

	perms, found, err := h.overrideService.GetOverride(r.Context(), userID, categoryID)
	if err != nil {
		respondServiceError(w, r, err, "get_override")
		return
	}
	if !found {
		respondServiceError(w, r, authz.ErrOverrideNotFound, "get_override")
		return
	}
	respondJSON(w, http.StatusOK, overrideResponse{
		UserID:      userID,
		CategoryID:  categoryID,
		Permissions: perms,
	})
}

// SetOverride creates or replaces the override for (user, category)
// @Summary Set Override
// @Tags Overrides
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path int true "User ID"
// @Param categoryID path int true "Category ID"
// @Param request body OverrideRequest true "Permissions"
// @Success 200 {object} overrideResponse
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /users/{userID}/categories/{categoryID}/permissions [put]
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	userID, categoryID, ok := h.overrideTarget(w, r, "set_override")
	if !ok {
		return
	}

	var req OverrideRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	override, err := h.overrideService.SetOverride(r.Context(), userID, categoryID, toPermissions(req.Permissions))
	if err != nil {
		respondServiceError(w, r, err, "set_override")
		return
	}
	respondJSON(w, http.StatusOK, newOverrideResponse(override))
}

// RemoveOverride deletes the override for (user, category)
// @Summary Remove Override
// @Tags Overrides
// @Security BearerAuth
// @Param userID path int true "User ID"
// @Param categoryID path int true "Category ID"
// @Success 204
// @Router /users/{userID}/categories/{categoryID}/permissions [delete]
func (h *Handler) RemoveOverride(w http.ResponseWriter, r *http.Request) {
	userID, categoryID, ok := h.overrideTarget(w, r, "remove_override")
	if !ok {
		return
	}

	if err := h.overrideService.RemoveOverride(r.Context(), userID, categoryID); err != nil {
		respondServiceError(w, r, err, "remove_override")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
