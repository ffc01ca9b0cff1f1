// Command api is the DestinyWeb dashboard API server.
//
// Usage:
//
//	destinyweb-api
//	API_PORT=8080 destinyweb-api

// @title DestinyWeb API
// @version 1.0.0
// @description Player dashboard API: match history, livestream correlation, win prediction.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/PhilippCounter/DestinyWeb/internal/api"
	"github.com/PhilippCounter/DestinyWeb/internal/bungie"
	"github.com/PhilippCounter/DestinyWeb/internal/cache"
	"github.com/PhilippCounter/DestinyWeb/internal/config"
	"github.com/PhilippCounter/DestinyWeb/internal/manifest"
	"github.com/PhilippCounter/DestinyWeb/internal/pipeline"
	"github.com/PhilippCounter/DestinyWeb/internal/twitch"

	_ "github.com/PhilippCounter/DestinyWeb/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Carnage report disk cache
	reports, err := bungie.OpenReportCache(cfg.ReportCachePath())
	if err != nil {
		logger.Error("Failed to open report cache", "error", err)
		os.Exit(1)
	}
	defer reports.Close()

	// Upstream clients
	stats := bungie.NewClient(bungie.ClientConfig{
		APIKey:            cfg.BungieAPIKey,
		RequestsPerSecond: cfg.BungieRPS,
		Reports:           reports,
	}, logger)

	streams := twitch.NewClient(twitch.ClientConfig{
		ClientID:     cfg.TwitchClientID,
		ClientSecret: cfg.TwitchClientSecret,
	}, logger)
	if !streams.IsConfigured() {
		logger.Warn("Twitch credentials not configured; stream correlation disabled")
	}

	// Response cache and per-view correlation sessions
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	sessions := pipeline.NewRegistry(stats, streams, cfg.SessionTTL, logger)
	defer sessions.Close()

	// Manifest snapshot store
	man := manifest.NewStore(cfg.ManifestPath())

	router := api.NewRouter(cfg, appCache, stats, streams, sessions, man, logger)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting DestinyWeb API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
