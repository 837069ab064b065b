package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quotagate/quotagate-backend/api/controllers"
	"github.com/quotagate/quotagate-backend/api/middleware"
	"github.com/quotagate/quotagate-backend/internal/auth"
	"github.com/quotagate/quotagate-backend/internal/billing"
	"github.com/quotagate/quotagate-backend/internal/credentials"
	"github.com/quotagate/quotagate-backend/internal/guard"
	"github.com/quotagate/quotagate-backend/pkg/auth/session"
	"github.com/quotagate/quotagate-backend/pkg/config"
	"github.com/quotagate/quotagate-backend/pkg/logger"
	"github.com/quotagate/quotagate-backend/pkg/redis"
)

// Deps carries everything the router needs. Keeping it a struct avoids the
// parameter list growing with every new service.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       controllers.Pinger
	RedisClient    *redis.Client
	SessionManager session.AccessSessionChecker
	AuthService    auth.Service
	RegisterSvc    auth.RegisterService
	Credentials    credentials.Service
	Billing        billing.Service
	Guard          guard.Service
	Metrics        prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	var redisPinger controllers.Pinger
	if deps.RedisClient != nil {
		redisPinger = deps.RedisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DBPinger, redisPinger, logg))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.RedisClient, logg)).
			Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.RedisClient, logg),
			middleware.Idempotency(deps.RedisClient, logg),
		).Post("/register", controllers.AuthRegister(deps.RegisterSvc, deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, deps.SessionManager, logg)).
			Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
	})

	// Credential-based guard check. Callers present an API key or wallet
	// address; no bearer token involved.
	r.Post("/api/v1/access/check", controllers.AccessCheck(deps.Guard, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.Idempotency(deps.RedisClient, logg))

		r.Post("/keys", controllers.KeysCreate(deps.Credentials, logg))
		r.Get("/keys", controllers.KeysList(deps.Credentials, logg))
		r.Delete("/keys/{keyID}", controllers.KeysDeactivate(deps.Credentials, logg))

		r.Route("/billing", func(r chi.Router) {
			r.Get("/state", controllers.BillingState(deps.Billing, logg))
			r.Get("/payment-request", controllers.BillingPaymentRequest(deps.Billing, logg))
			r.Get("/usage", controllers.BillingUsage(deps.Billing, logg))
			r.Get("/payments", controllers.BillingPayments(deps.Billing, logg))
		})

		r.Post("/payments/simulate", controllers.PaymentsSimulate(deps.Billing, logg))

		// Sample metered surface. Every request here consumes quota.
		r.Route("/protected", func(r chi.Router) {
			r.Use(middleware.Guard(deps.Guard, logg))
			r.Get("/ping", controllers.ProtectedPing())
		})
	})

	return r
}
