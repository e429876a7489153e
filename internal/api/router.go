// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tuneframe/tuneframe/internal/config"
)

// NewRouter builds the HTTP routing tree.
func NewRouter(handler *Handler, cfg config.ServerConfig, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order to every route.
	r.Use(RequestIDWithLogging(logger))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogging())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	r.Get("/health", handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(
				cfg.RateLimit,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}
		r.Use(PrometheusMetrics())

		r.Post("/interactions", handler.RecordInteraction)

		r.Get("/recommendations", handler.Recommendations)
		r.Get("/foryou", handler.ForYou)
		r.Get("/similar/{id}", handler.Similar)
		r.Get("/moods/{mood}", handler.Moods)
		r.Get("/interests", handler.Interests)

		r.Post("/plays", handler.RecordPlay)
		r.Post("/plays/skip", handler.RecordSkip)
		r.Post("/plays/complete", handler.RecordCompletion)

		r.Route("/cache", func(r chi.Router) {
			r.Get("/", handler.CacheEntries)
			r.Delete("/", handler.CacheClear)
			r.Get("/stats", handler.CacheStats)
			r.Head("/{id}", handler.CacheHead)
			r.Get("/{id}", handler.CachePayload)
		})
	})

	return r
}
