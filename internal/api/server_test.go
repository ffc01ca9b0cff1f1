package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PhilippCounter/DestinyWeb/internal/bungie"
	"github.com/PhilippCounter/DestinyWeb/internal/cache"
	"github.com/PhilippCounter/DestinyWeb/internal/config"
	"github.com/PhilippCounter/DestinyWeb/internal/manifest"
	"github.com/PhilippCounter/DestinyWeb/internal/pipeline"
	"github.com/PhilippCounter/DestinyWeb/internal/twitch"
)

// routerStats is a minimal StatsClient for routing tests.
type routerStats struct{}

func (routerStats) GetActivityHistory(context.Context, int, string, string, bungie.HistoryParams) ([]bungie.ActivitySummary, error) {
	return nil, nil
}
func (routerStats) GetPostGameReport(context.Context, string) (*bungie.PostGameReport, error) {
	return &bungie.PostGameReport{}, nil
}
func (routerStats) GetMembershipDataByID(context.Context, int, string) (*bungie.UserMembershipData, error) {
	return &bungie.UserMembershipData{}, nil
}
func (routerStats) GetProfile(context.Context, int, string) (*bungie.ProfileResponse, error) {
	return &bungie.ProfileResponse{}, nil
}
func (routerStats) SearchByGlobalNamePrefix(context.Context, string, int) (*bungie.UserSearchResponse, error) {
	return &bungie.UserSearchResponse{}, nil
}
func (routerStats) GetHistoricalStatsForAccount(context.Context, int, string) (*bungie.HistoricalStatsAccountResult, error) {
	return &bungie.HistoricalStatsAccountResult{}, nil
}
func (routerStats) GetHistoricalStats(context.Context, int, string, string) (map[string]json.RawMessage, error) {
	return map[string]json.RawMessage{}, nil
}
func (routerStats) GetManifestTable(context.Context, string, string, any) error { return nil }

type routerStreams struct{}

func (routerStreams) IsConfigured() bool { return false }
func (routerStreams) PullArchive(context.Context, string) (*twitch.Archive, error) {
	return &twitch.Archive{Videos: []twitch.Video{}}, nil
}

func newTestRouter(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := &config.Config{
		BungieAPIKey: "test-key",
		DataDir:      t.TempDir(),
		SessionTTL:   time.Hour,
	}
	if mutate != nil {
		mutate(cfg)
	}
	stats := routerStats{}
	streams := routerStreams{}
	sessions := pipeline.NewRegistry(stats, streams, cfg.SessionTTL, nil)
	t.Cleanup(sessions.Close)
	man := manifest.NewStore(cfg.ManifestPath())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(cfg, cache.New(false), stats, streams, sessions, man, logger)
}

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/health/cache", http.StatusOK},
		{http.MethodGet, "/api/v1/players/search?name=x", http.StatusOK},
		{http.MethodGet, "/api/v1/players/2/mid", http.StatusOK},
		{http.MethodGet, "/api/v1/players/2/mid/characters/c1/activities", http.StatusOK},
		{http.MethodGet, "/api/v1/streams/streamer", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/manifest", http.StatusNotFound},
		{http.MethodPut, "/api/v1/manifest", http.StatusForbidden},
		{http.MethodPost, "/api/v1/train", http.StatusForbidden},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		if w.Code != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}
}

func TestTimingMiddleware(t *testing.T) {
	router := newTestRouter(t, nil)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Header().Get("X-Process-Time") == "" {
		t.Error("X-Process-Time header missing")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimitMiddleware(4, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var limited bool
	for i := 0; i < 10; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code == http.StatusTooManyRequests {
			limited = true
			if w.Header().Get("Retry-After") == "" {
				t.Error("Retry-After header missing on 429")
			}
			break
		}
	}
	if !limited {
		t.Error("burst of requests from one IP was never limited")
	}

	// A different IP gets its own bucket.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("fresh IP blocked: %d", w.Code)
	}
}
