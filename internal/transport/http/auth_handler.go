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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/storeadmin/storeadmin/internal/audit"
	"github.com/storeadmin/storeadmin/internal/authz"
	"github.com/storeadmin/storeadmin/internal/identity"
	"github.com/storeadmin/storeadmin/internal/observability/logger"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued session token
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

// Login handles user login
// @Summary User Login
// @Description Authenticates a user and issues a session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} map[string]string
// @Failure 423 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrAccountLocked):
			respondError(w, http.StatusLocked, "account is locked")
		case errors.Is(err, identity.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			slog.ErrorContext(r.Context(), "login failed", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	token, sess, err := h.sessions.Issue(user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue session", logger.UserID(user.ID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	roles, err := h.roleService.RoleNames(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, r, err, "login")
		return
	}

	h.setSessionCookie(w, token, sess.ExpiresAt)

	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		User:      newUserResponse(user, roles),
	})
}

// Logout clears the session cookie. Tokens are stateless and expire on
// their own.
// @Summary Logout
// @Tags Auth
// @Success 204
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if actor := authz.ActorFromContext(r.Context()); actor != nil {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypeLogout,
			ActorID:   actor.ID,
			Resource:  "session",
			IPAddress: clientIP(r, h.config.TrustedProxies),
			UserAgent: r.UserAgent(),
		})
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// GetCurrentUser returns the authenticated user with the permissions they
// hold globally and their category overrides.
// @Summary Current User
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /auth/me [get]
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := authz.ActorFromContext(ctx)

	user, err := h.identityService.GetUser(ctx, actor.ID)
	if err != nil {
		respondServiceError(w, r, err, "get_current_user")
		return
	}

	perms, err := h.roleService.EffectivePermissions(ctx, actor)
	if err != nil {
		respondServiceError(w, r, err, "get_current_user")
		return
	}

	overrides, err := h.overrideService.ListOverrides(ctx, actor.ID)
	if err != nil {
		respondServiceError(w, r, err, "get_current_user")
		return
	}
	scoped := make([]overrideResponse, 0, len(overrides))
	for _, o := range overrides {
		scoped = append(scoped, newOverrideResponse(o))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":        newUserResponse(user, actor.Roles),
		"permissions": perms,
		"overrides":   scoped,
		"session_id":  GetSessionID(ctx),
	})
}

// ListUsers returns every user with their role names
// @Summary List Users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} userResponse
// @Router /users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identityService.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "list_users")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		roles, err := h.roleService.RoleNames(r.Context(), u.ID)
		if err != nil {
			respondServiceError(w, r, err, "list_users")
			return
		}
		resp = append(resp, newUserResponse(u, roles))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Cookie.Name,
		Value:    token,
		Path:     h.config.Cookie.Path,
		Domain:   h.config.Cookie.Domain,
		Expires:  expires,
		Secure:   h.config.Cookie.Secure,
		HttpOnly: true,
		SameSite: h.config.Cookie.SameSite,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Cookie.Name,
		Value:    "",
		Path:     h.config.Cookie.Path,
		Domain:   h.config.Cookie.Domain,
		MaxAge:   -1,
		Secure:   h.config.Cookie.Secure,
		HttpOnly: true,
		SameSite: h.config.Cookie.SameSite,
	})
}
