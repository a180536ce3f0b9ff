// Package server exposes the download pipeline over HTTP.
package server

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vidgrab/pkg/config"
	"vidgrab/pkg/logger"
)

// NewRouter creates the HTTP router with all routes configured
func NewRouter(h *Handler, cfg config.ServerConfig, log logger.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(recoverer(log))
	r.Use(middleware.Timeout(5 * time.Minute))

	// Health endpoint (no auth, no rate limit)
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.APIKeyRequired {
			r.Use(apiKeyAuth(cfg.APIKey))
		}
		if cfg.RateLimitEnabled {
			r.Use(rateLimit(newIPRateLimiter(cfg.RateLimitPerMinute, time.Minute)))
		}
		r.Use(requireJSON)

		r.Post("/download", h.Download)
		r.Post("/info", h.Info)
		r.Get("/platforms", h.Platforms)
	})

	return r
}
