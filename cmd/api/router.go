package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kidsstudy/kidsstudy/internal/config"
	"github.com/kidsstudy/kidsstudy/internal/handler"
	"github.com/kidsstudy/kidsstudy/internal/middleware"
)

// routerDeps are the handlers and stores the router is assembled from.
type routerDeps struct {
	handler  *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	checkout *handler.CheckoutHandler
	webhook  *handler.WebhookHandler
	access   *handler.AccessHandler
	ops      *handler.OpsHandler

	gate     middleware.AccessChecker
	sessions middleware.TokenVerifier
	opsKeys  middleware.OpsKeyStore
	limiter  middleware.IPLimiter
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	r.Use(middleware.Session(d.sessions, logger))
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Get("/metrics", d.metrics.Metrics)

	rateLimit := func(scope string) func(http.Handler) http.Handler {
		return middleware.RateLimitIP(middleware.RateLimitConfig{
			Logger:  logger,
			Limiter: d.limiter,
			Scope:   scope,
			Enabled: cfg.RateLimitEnabled,
			RPS:     cfg.RateLimitRPS,
			Burst:   cfg.RateLimitBurst,
		})
	}

	r.With(rateLimit("checkout")).Get("/checkout", d.checkout.Checkout)

	// Never rate limited: a throttled delivery is a lost payment.
	r.Post("/webhook", d.webhook.Receive)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit("api"))
		r.Use(middleware.RequireUser)

		r.Get("/access", d.access.Access)
		r.With(middleware.RequireAccess(d.gate, d.access.Deny)).Get("/games", d.access.Games)
	})

	r.Route("/ops/v1", func(r chi.Router) {
		r.Use(middleware.OpsAuth(middleware.OpsAuthConfig{Logger: logger, Store: d.opsKeys}))

		r.Get("/profiles/{userID}/access", d.ops.ProfileAccess)
	})

	r.NotFound(d.handler.NotFound)
	r.MethodNotAllowed(d.handler.MethodNotAllowed)

	return r
}
