// Command admin is the DestinyWeb administrative CLI.
//
// All commands are gated by ALLOW_SPECIAL_ENDPOINTS.
//
// Usage:
//
//	destinyweb-admin manifest refresh
//	destinyweb-admin train --membership-type 2 --membership-id 4611686018429254495 --character-id 2305843009261515325
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/PhilippCounter/DestinyWeb/internal/bungie"
	"github.com/PhilippCounter/DestinyWeb/internal/config"
	"github.com/PhilippCounter/DestinyWeb/internal/manifest"
	"github.com/PhilippCounter/DestinyWeb/internal/predict"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "destinyweb-admin",
		Short: "DestinyWeb administrative CLI",
	}

	root.AddCommand(manifestCmd())
	root.AddCommand(trainCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// manifest command
// --------------------------------------------------------------------------

func manifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Manage the manifest snapshot",
	}
	cmd.AddCommand(manifestRefreshCmd())
	return cmd
}

func manifestRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Download fresh manifest tables and persist the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(func(ctx context.Context, cfg *config.Config, client *bungie.Client) error {
				store := manifest.NewStore(cfg.ManifestPath())
				start := time.Now()
				snap, err := store.Refresh(ctx, client)
				if err != nil {
					return err
				}
				logger.Info("Manifest refreshed",
					"activities", len(snap.ActivityDefinitions),
					"classes", len(snap.ClassDefinitions),
					"duration", time.Since(start).Round(time.Second))
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// train command
// --------------------------------------------------------------------------

func trainCmd() *cobra.Command {
	var (
		membershipType int
		membershipID   string
		characterID    string
		mode           int
		count          int
		epochs         int
		rebuild        bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Regenerate the training dataset and fit the prediction model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(func(ctx context.Context, cfg *config.Config, client *bungie.Client) error {
				samples, err := predict.LoadDataset(cfg.DatasetPath())
				if err != nil || rebuild {
					if membershipID == "" || characterID == "" {
						return fmt.Errorf("--membership-id and --character-id are required to build a dataset")
					}
					start := time.Now()
					samples, err = predict.BuildDataset(ctx, client, predict.DatasetOptions{
						MembershipType: membershipType,
						MembershipID:   membershipID,
						CharacterID:    characterID,
						Mode:           mode,
						Count:          count,
					}, logger)
					if err != nil {
						return fmt.Errorf("build dataset: %w", err)
					}
					if err := predict.SaveDataset(cfg.DatasetPath(), samples); err != nil {
						return err
					}
					logger.Info("Dataset built", "samples", len(samples),
						"duration", time.Since(start).Round(time.Second))
				} else {
					logger.Info("Reusing existing dataset", "samples", len(samples))
				}

				opts := predict.DefaultTrainOptions()
				opts.Epochs = epochs

				start := time.Now()
				model, loss, err := predict.Train(samples, opts)
				if err != nil {
					return fmt.Errorf("train: %w", err)
				}
				if err := model.Save(cfg.ModelPath()); err != nil {
					return err
				}
				logger.Info("Model trained",
					"samples", len(samples), "epochs", opts.Epochs, "loss", loss,
					"duration", time.Since(start).Round(time.Second),
					"model", cfg.ModelPath())
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&membershipType, "membership-type", config.PlatformPSN, "Reference player platform")
	cmd.Flags().StringVar(&membershipID, "membership-id", "", "Reference player membership id")
	cmd.Flags().StringVar(&characterID, "character-id", "", "Reference character id")
	cmd.Flags().IntVar(&mode, "mode", config.ModeTrialsOfOsiris, "Activity mode for the training history")
	cmd.Flags().IntVar(&count, "count", 200, "Matches to pull from the reference history")
	cmd.Flags().IntVar(&epochs, "epochs", 2000, "Training epochs")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Rebuild the dataset even if one exists")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runAdmin handles config loading, the allow-flag gate, client setup and
// context cancellation.
func runAdmin(fn func(ctx context.Context, cfg *config.Config, client *bungie.Client) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.AllowSpecialEndpoints {
		return fmt.Errorf("administrative operations are disabled; set ALLOW_SPECIAL_ENDPOINTS=true")
	}

	reports, err := bungie.OpenReportCache(cfg.ReportCachePath())
	if err != nil {
		return fmt.Errorf("open report cache: %w", err)
	}
	defer reports.Close()

	client := bungie.NewClient(bungie.ClientConfig{
		APIKey:            cfg.BungieAPIKey,
		RequestsPerSecond: cfg.BungieRPS,
		Reports:           reports,
	}, logger)

	return fn(ctx, cfg, client)
}
