package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/plantops/plantsentry/internal/api/middleware"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)

	// Global middleware
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recoverer(s.logger))
	r.Use(middleware.PrometheusMiddleware)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ipLimiter))

		r.Post("/subscribe/{phone}", s.handleSubscribe)
		r.Post("/unsubscribe/{phone}", s.handleUnsubscribe)
		r.Get("/subscribers", s.handleListSubscribers)
		r.Get("/stats", s.handleStats)
		r.Get("/alerts/history", s.handleAlertHistory)
		r.Post("/action_callback", s.handleActionCallback)
	})

	// Probes are exempt from rate limiting.
	r.Get("/health", s.healthHandler.Health)
	r.Get("/healthz", s.healthHandler.Live)
	r.Get("/readyz", s.healthHandler.Ready)

	return r
}
