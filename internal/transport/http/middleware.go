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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/storeadmin/storeadmin/internal/authz"
	"github.com/storeadmin/storeadmin/internal/observability/logger"
	"github.com/storeadmin/storeadmin/internal/rbac"
)

const csrfHeader = "X-CSRF-Token"

var errInvalidScope = errors.New("invalid resource identifier")

// ScopeExtractor derives the category scope of a request from its route.
// A nil scope means the check is global.
type ScopeExtractor func(r *http.Request) (*int64, error)

// URLParamScope reads the scope from a routed URL parameter.
func URLParamScope(name string) ScopeExtractor {
	return func(r *http.Request) (*int64, error) {
		id, err := parseID(chi.URLParam(r, name))
		if err != nil {
			return nil, err
		}
		return &id, nil
	}
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.DebugContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware resolves the session token into an actor. Requests without
// a valid token continue anonymously; gates decide what that means.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromCookie := h.tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := h.sessions.Parse(token)
		if err != nil {
			slog.DebugContext(r.Context(), "rejected session token", logger.Error(err))
			h.clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		actor, err := h.loadActor(ctx, sess.UserID)
		if err != nil {
			slog.WarnContext(ctx, "failed to load actor", logger.UserID(sess.UserID), logger.Error(err))
			h.clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx = authz.WithActor(ctx, actor)
		ctx = context.WithValue(ctx, sessionIDKey, sess.ID)
		ctx = context.WithValue(ctx, cookieAuthKey, fromCookie)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CSRFMiddleware requires the X-CSRF-Token header on state-changing requests
// authenticated by the session cookie. Bearer clients are exempt.
func (h *Handler) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		if authenticatedByCookie(r.Context()) && r.Header.Get(csrfHeader) == "" {
			slog.WarnContext(r.Context(), "missing CSRF token header",
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)
			respondError(w, http.StatusForbidden, "X-CSRF-Token header is required for state-changing operations")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) loadActor(ctx context.Context, userID int64) (*authz.Actor, error) {
	if _, err := h.identityService.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	roles, err := h.roleService.RoleNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &authz.Actor{ID: userID, Roles: roles}, nil
}

// tokenFromRequest prefers the Authorization header over the session cookie.
// fromCookie is set when the token was read from the cookie.
func (h *Handler) tokenFromRequest(r *http.Request) (token string, fromCookie bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if bearer, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(bearer), false
		}
		return "", false
	}
	if cookie, err := r.Cookie(h.config.Cookie.Name); err == nil {
		return cookie.Value, true
	}
	return "", false
}

// RequireActor rejects anonymous requests.
func (h *Handler) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authz.ActorFromContext(r.Context()) == nil {
			h.respondUnauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Require passes the request through the authorization gate for permission.
// The scope, when present, comes from the route and never from the body.
func (h *Handler) Require(permission rbac.Permission, scope ScopeExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := authz.ActorFromContext(r.Context())
			if actor == nil {
				h.respondUnauthenticated(w, r)
				return
			}

			var categoryID *int64
			if scope != nil {
				id, err := scope(r)
				if err != nil {
					respondError(w, http.StatusBadRequest, err.Error())
					return
				}
				categoryID = id
			}

			err := h.gate.Authorize(r.Context(), actor, permission, categoryID)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, authz.ErrUnauthenticated):
				h.respondUnauthenticated(w, r)
			case errors.Is(err, authz.ErrForbidden):
				respondError(w, http.StatusForbidden, "forbidden")
			default:
				slog.ErrorContext(r.Context(), "authorization check failed",
					logger.Permission(permission.String()),
					logger.Error(err),
				)
				respondError(w, http.StatusInternalServerError, "internal error")
			}
		})
	}
}

// respondUnauthenticated redirects browsers to the login page and answers
// API clients with 401.
func (h *Handler) respondUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, h.config.LoginPath, http.StatusFound)
		return
	}
	respondError(w, http.StatusUnauthorized, "not authenticated")
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidScope
	}
	return id, nil
}
