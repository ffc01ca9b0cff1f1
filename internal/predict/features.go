package predict

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/PhilippCounter/DestinyWeb/internal/bungie"
)

// StatsSource fetches account-wide aggregate stats for feature building.
type StatsSource interface {
	GetHistoricalStatsForAccount(ctx context.Context, membershipType int, membershipID string) (*bungie.HistoricalStatsAccountResult, error)
}

// PlayerRef identifies one roster slot for feature building.
type PlayerRef struct {
	MembershipType int    `json:"membershipType"`
	MembershipID   string `json:"membershipId"`
}

// PlayerFeatures extracts the three per-player inputs from an account's
// all-time PvP aggregates: K/D ratio, kills, win/loss ratio. Missing stats
// contribute zeros.
func PlayerFeatures(stats *bungie.HistoricalStatsAccountResult) [FeaturesPerPlayer]float64 {
	var out [FeaturesPerPlayer]float64
	pvp := stats.AllPvPStats()
	if pvp == nil {
		return out
	}
	out[0] = pvp["killsDeathsRatio"].Basic.Value
	out[1] = pvp["kills"].Basic.Value
	out[2] = pvp["winLossRatio"].Basic.Value
	return out
}

// BuildFeatures produces the 18-scalar input vector for two team rosters.
// The layout is order-dependent: team one's first three players, then team
// two's, three stats each. Rosters shorter than three players, and
// players whose stats lookup fails, are zero-padded in place.
//
// Per-player lookups fan out concurrently; each goroutine writes only its
// own slots.
func BuildFeatures(ctx context.Context, source StatsSource, teams [TeamCount][]PlayerRef, logger *slog.Logger) ([]float64, error) {
	if logger == nil {
		logger = slog.Default()
	}
	features := make([]float64, FeatureCount)

	g, ctx := errgroup.WithContext(ctx)
	for t := 0; t < TeamCount; t++ {
		for p := 0; p < PlayersPerTeam && p < len(teams[t]); p++ {
			offset := (t*PlayersPerTeam + p) * FeaturesPerPlayer
			ref := teams[t][p]
			g.Go(func() error {
				stats, err := source.GetHistoricalStatsForAccount(ctx, ref.MembershipType, ref.MembershipID)
				if err != nil {
					// Missing slots stay zero-padded.
					logger.Debug("account stats lookup failed",
						"membership_id", ref.MembershipID, "error", err)
					return nil
				}
				vals := PlayerFeatures(stats)
				copy(features[offset:offset+FeaturesPerPlayer], vals[:])
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return features, nil
}
