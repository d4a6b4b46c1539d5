package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AquariesX/quick-delivey-sub001/internal/domain"
	"github.com/AquariesX/quick-delivey-sub001/internal/health"
	"github.com/AquariesX/quick-delivey-sub001/internal/http/handler"
	"github.com/AquariesX/quick-delivey-sub001/internal/http/middleware"
	"github.com/AquariesX/quick-delivey-sub001/internal/http/response"
	"github.com/AquariesX/quick-delivey-sub001/internal/security"
)

type Dependencies struct {
	ActivationHandler *handler.ActivationHandler
	AuthHandler       *handler.AuthHandler
	JWTManager        *security.JWTManager
	CORSOrigins       []string
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	// ActivationRateLimiter overrides the per-route limiter on the
	// activation and auth endpoints; the redis-backed limiter goes here.
	ActivationRateLimiter func(http.Handler) http.Handler
	Readiness             *health.ProbeRunner
	EnableOTelHTTP        bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(middleware.NewDistributedRateLimiter(
		middleware.NewLocalFixedWindowLimiter(), dep.APIRateLimitRPM, time.Minute, middleware.FailOpen, "api",
	).Middleware())

	activationLimiter := dep.ActivationRateLimiter
	if activationLimiter == nil {
		activationLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute, "activation").Middleware()
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/activation", func(r chi.Router) {
			r.Use(activationLimiter)
			r.Post("/verify", dep.ActivationHandler.Verify)
			r.Post("/apply-action-code", dep.ActivationHandler.ApplyActionCode)
			r.Post("/reset-vendor-password", dep.ActivationHandler.ResetVendorPassword)
			r.With(
				middleware.AuthMiddleware(dep.JWTManager),
				middleware.RequireRoles(domain.RoleAdmin, domain.RoleSuperAdmin),
			).Post("/repair-identity", dep.ActivationHandler.RepairIdentity)
		})
		r.With(activationLimiter).Post("/auth/login", dep.AuthHandler.Login)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
