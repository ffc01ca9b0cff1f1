// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/api and cmd/admin.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Activity modes: subset of the Destiny activity mode enum used here
// --------------------------------------------------------------------------

const (
	ModeAllPvP         = 5
	ModeTrialsOfOsiris = 84
)

// Membership (platform) types.
const (
	PlatformAll  = -1
	PlatformXbox = 1
	PlatformPSN  = 2
	PlatformPC   = 3
)

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting (inbound)
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Bungie stats API
	BungieAPIKey string
	BungieRPS    int // outbound token bucket, requests per second

	// Twitch (streaming platform) API
	TwitchClientID     string
	TwitchClientSecret string

	// Administrative operations (manifest refresh, model training) are
	// rejected unless this flag is set.
	AllowSpecialEndpoints bool

	// Data directory: manifest snapshot, carnage report cache, model weights.
	DataDir string

	// Cache
	CacheEnabled bool
	SessionTTL   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	apiKey := envOr("BUNGIE_API_KEY", envOr("API_SECRET", ""))
	if apiKey == "" {
		return nil, fmt.Errorf("BUNGIE_API_KEY must be set")
	}

	return &Config{
		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		BungieAPIKey: apiKey,
		BungieRPS:    envInt("BUNGIE_REQUESTS_PER_SECOND", 20),

		TwitchClientID:     envOr("TWITCH_CLIENT_ID", ""),
		TwitchClientSecret: envOr("TWITCH_CLIENT_SECRET", ""),

		AllowSpecialEndpoints: envBool("ALLOW_SPECIAL_ENDPOINTS", false),

		DataDir: envOr("DATA_DIR", "data"),

		CacheEnabled: envBool("CACHE_ENABLED", true),
		SessionTTL:   time.Duration(envInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ManifestPath is the flat-file location of the manifest snapshot.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.DataDir, "manifest.json")
}

// ReportCachePath is the sqlite file backing the carnage report cache.
func (c *Config) ReportCachePath() string {
	return filepath.Join(c.DataDir, "pgcr.db")
}

// ModelPath is the JSON snapshot of the trained prediction model.
func (c *Config) ModelPath() string {
	return filepath.Join(c.DataDir, "ai_model", "model.json")
}

// DatasetPath is the training dataset produced by the train command.
func (c *Config) DatasetPath() string {
	return filepath.Join(c.DataDir, "ai_set.json")
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
