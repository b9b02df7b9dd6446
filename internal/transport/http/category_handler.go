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
	"github.com/storeadmin/storeadmin/internal/rbac"
)

// AccessibleCategories lists the categories visible to the current user
// @Summary Accessible Categories
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Success 200 {array} categoryResponse
// @Router /categories/accessible [get]
func (h *Handler) AccessibleCategories(w http.ResponseWriter, r *http.Request) {
	actor := authz.ActorFromContext(r.Context())

	categories, err := h.categoryService.Accessible(r.Context(), actor.ID)
	if err != nil {
		respondServiceError(w, r, err, "accessible_categories")
		return
	}

	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, newCategoryResponse(c))
	}
	respondJSON(w, http.StatusOK, resp)
}

// CategoryAccess reports which category and product permissions the current
// user holds inside one category, with the reason for each decision.
// @Summary Category Access
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param categoryID path int true "Category ID"
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /categories/{categoryID}/access [get]
func (h *Handler) CategoryAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := authz.ActorFromContext(ctx)

	categoryID, err := parseID(chi.URLParam(r, "categoryID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.categoryService.Get(ctx, categoryID)
	if err != nil {
		respondServiceError(w, r, err, "category_access")
		return
	}

	resp := make(map[rbac.Permission]decisionResponse)
	for _, p := range h.roleService.Catalog().Ordered() {
		rt := p.ResourceType()
		if rt != rbac.ResourceCategories && rt != rbac.ResourceProducts {
			continue
		}
		d, err := h.checker.Decide(ctx, actor, p, &categoryID)
		if err != nil {
			respondServiceError(w, r, err, "category_access")
			return
		}
		resp[p] = decisionResponse{Allowed: d.Allowed, Reason: d.Reason}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"category":    newCategoryResponse(c),
		"permissions": resp,
	})
}
