// @title storeadmin API
// @version 1.0
// @description Role and category-scoped permission administration.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/storeadmin/storeadmin/internal/audit"
	"github.com/storeadmin/storeadmin/internal/authz"
	"github.com/storeadmin/storeadmin/internal/category"
	"github.com/storeadmin/storeadmin/internal/identity"
	"github.com/storeadmin/storeadmin/internal/observability/logger"
	"github.com/storeadmin/storeadmin/internal/rbac"
	"github.com/storeadmin/storeadmin/internal/session"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// Pinger reports backing store health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	sessions        *session.Manager
	roleService     *authz.RoleService
	overrideService *authz.OverrideService
	categoryService *category.Service
	checker         authz.Checker
	gate            *authz.Gate
	auditLogger     audit.Logger
	validate        *validator.Validate
	pinger          Pinger
	config          Config
}

// Config holds transport configuration
type Config struct {
	// LoginPath receives unauthenticated browser requests
	LoginPath      string
	RequestTimeout time.Duration
	Cookie         CookieConfig
	// TrustedProxies may set X-Forwarded-For
	TrustedProxies []netip.Prefix
}

// CookieConfig holds session cookie configuration
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	sessions *session.Manager,
	roleService *authz.RoleService,
	overrideService *authz.OverrideService,
	categoryService *category.Service,
	checker authz.Checker,
	auditLogger audit.Logger,
	pinger Pinger,
	config Config,
) *Handler {
	if config.LoginPath == "" {
		config.LoginPath = "/login"
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if config.Cookie.Name == "" {
		config.Cookie.Name = "storeadmin_session"
	}
	if config.Cookie.Path == "" {
		config.Cookie.Path = "/"
	}

	return &Handler{
		identityService: identityService,
		sessions:        sessions,
		roleService:     roleService,
		overrideService: overrideService,
		categoryService: categoryService,
		checker:         checker,
		gate:            authz.NewGate(checker, auditLogger),
		auditLogger:     auditLogger,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		pinger:          pinger,
		config:          config,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.config.RequestTimeout))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Use(h.CSRFMiddleware)

		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)
		r.With(h.RequireActor).Get("/auth/me", h.GetCurrentUser)

		r.With(h.Require(rbac.PermViewRoles, nil)).Get("/permissions", h.ListPermissions)

		r.Route("/roles", func(r chi.Router) {
			r.With(h.Require(rbac.PermViewRoles, nil)).Get("/", h.ListRoles)
			r.With(h.Require(rbac.PermCreateRoles, nil)).Post("/", h.CreateRole)

			r.Route("/{roleID}", func(r chi.Router) {
				r.With(h.Require(rbac.PermViewRoles, nil)).Get("/", h.GetRole)
				r.With(h.Require(rbac.PermEditRoles, nil)).Put("/", h.UpdateRole)
				r.With(h.Require(rbac.PermDeleteRoles, nil)).Delete("/", h.DeleteRole)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.Require(rbac.PermViewUsers, nil)).Get("/", h.ListUsers)

			r.Route("/{userID}", func(r chi.Router) {
				r.With(h.Require(rbac.PermAssignRoles, nil)).Put("/roles", h.AssignRoles)
				r.With(h.Require(rbac.PermViewUsers, nil)).Get("/overrides", h.ListUserOverrides)

				r.Route("/categories/{categoryID}/permissions", func(r chi.Router) {
					r.With(h.Require(rbac.PermViewUsers, nil)).Get("/", h.GetOverride)
					r.With(h.Require(rbac.PermEditUsers, nil)).Put("/", h.SetOverride)
					r.With(h.Require(rbac.PermEditUsers, nil)).Delete("/", h.RemoveOverride)
				})
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.With(h.RequireActor).Get("/accessible", h.AccessibleCategories)
			r.With(h.Require(rbac.PermViewCategories, URLParamScope("categoryID"))).
				Get("/{categoryID}/access", h.CategoryAccess)
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service and its store are reachable
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "health check failed", logger.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": "storeadmin",
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "storeadmin",
	})
}

// decodeJSON reads a bounded JSON body into dst and validates it. On
// failure the response has been written and false is returned.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "validation failed",
				"fields": fields,
			})
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondServiceError maps domain errors onto HTTP statuses
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, authz.ErrDuplicateName):
		respondError(w, http.StatusConflict, "role name already exists")
	case errors.Is(err, authz.ErrUnknownPermission), errors.Is(err, authz.ErrInvalidRoleName):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, authz.ErrRoleNotFound):
		respondError(w, http.StatusNotFound, "role not found")
	case errors.Is(err, authz.ErrOverrideNotFound):
		respondError(w, http.StatusNotFound, "override not found")
	case errors.Is(err, identity.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, category.ErrCategoryNotFound):
		respondError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, authz.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, authz.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	default:
		slog.ErrorContext(r.Context(), "request failed", logger.Operation(op), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
