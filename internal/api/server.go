// Package api wires the chi router, middleware stack and handlers.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/PhilippCounter/DestinyWeb/internal/api/handler"
	"github.com/PhilippCounter/DestinyWeb/internal/cache"
	"github.com/PhilippCounter/DestinyWeb/internal/config"
	"github.com/PhilippCounter/DestinyWeb/internal/manifest"
	"github.com/PhilippCounter/DestinyWeb/internal/pipeline"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(cfg *config.Config, appCache *cache.Cache, stats handler.StatsClient, streams handler.StreamClient, sessions *pipeline.Registry, man *manifest.Store, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(cfg, appCache, stats, streams, sessions, man, logger)

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/cache", h.HealthCheckCache)
	})

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Players
		r.Get("/players/search", h.SearchPlayers)
		r.Get("/players/{membershipType}/{membershipId}", h.GetPlayer)
		r.Get("/players/{membershipType}/{membershipId}/characters/{characterId}/activities", h.GetCharacterActivities)

		// Streams
		r.Get("/streams/{accountName}", h.GetStreamArchive)

		// Manifest
		r.Get("/manifest", h.GetManifest)
		r.Put("/manifest", h.RefreshManifest)

		// Prediction
		r.Post("/predict", h.PredictOutcome)
		r.Post("/train", h.TrainModel)
	})

	return r
}
