// Package handler provides HTTP handlers for all API endpoints. Handlers
// proxy and aggregate the upstream game-stats and streaming APIs; the
// assembled responses are fronted by an in-memory TTL cache.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/PhilippCounter/DestinyWeb/internal/api/respond"
	"github.com/PhilippCounter/DestinyWeb/internal/bungie"
	"github.com/PhilippCounter/DestinyWeb/internal/cache"
	"github.com/PhilippCounter/DestinyWeb/internal/config"
	"github.com/PhilippCounter/DestinyWeb/internal/manifest"
	"github.com/PhilippCounter/DestinyWeb/internal/pipeline"
	"github.com/PhilippCounter/DestinyWeb/internal/predict"
	"github.com/PhilippCounter/DestinyWeb/internal/twitch"
)

// StatsClient is the slice of the Bungie client the handlers use directly.
// *bungie.Client satisfies it.
type StatsClient interface {
	pipeline.StatsAPI
	GetProfile(ctx context.Context, membershipType int, membershipID string) (*bungie.ProfileResponse, error)
	SearchByGlobalNamePrefix(ctx context.Context, prefix string, page int) (*bungie.UserSearchResponse, error)
	GetHistoricalStatsForAccount(ctx context.Context, membershipType int, membershipID string) (*bungie.HistoricalStatsAccountResult, error)
	GetHistoricalStats(ctx context.Context, membershipType int, membershipID, characterID string) (map[string]json.RawMessage, error)
	GetManifestTable(ctx context.Context, table, language string, out any) error
}

// StreamClient is the slice of the streaming platform client the handlers
// use directly. *twitch.Client satisfies it.
type StreamClient interface {
	PullArchive(ctx context.Context, displayName string) (*twitch.Archive, error)
	IsConfigured() bool
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	cfg      *config.Config
	cache    *cache.Cache
	stats    StatsClient
	streams  StreamClient
	sessions *pipeline.Registry
	manifest *manifest.Store
	logger   *slog.Logger

	modelMu sync.Mutex
	model   *predict.Model
}

// New creates a Handler with shared dependencies.
func New(cfg *config.Config, c *cache.Cache, stats StatsClient, streams StreamClient, sessions *pipeline.Registry, man *manifest.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:      cfg,
		cache:    c,
		stats:    stats,
		streams:  streams,
		sessions: sessions,
		manifest: man,
		logger:   logger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "DestinyWeb API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache and session statistics.
// @Summary Cache health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"cache":         h.cache.Stats(),
		"live_sessions": h.sessions.Len(),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}
