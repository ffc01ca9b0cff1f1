package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/PhilippCounter/DestinyWeb/internal/bungie"
)

// Sample is one training example: a feature vector and whether team one
// (the reference player's team) won.
type Sample struct {
	Features []float64 `json:"features"`
	Win      float64   `json:"win"`
}

// TrainOptions control the gradient descent run.
type TrainOptions struct {
	Epochs       int
	LearningRate float64
	Seed         int64
}

// DefaultTrainOptions mirror the original training configuration.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{Epochs: 2000, LearningRate: 0.05, Seed: 1}
}

// Train fits a fresh model to the samples with stochastic gradient descent
// on squared error. Returns the trained model and the final mean loss.
func Train(samples []Sample, opts TrainOptions) (*Model, float64, error) {
	if len(samples) == 0 {
		return nil, 0, fmt.Errorf("no training samples")
	}
	for i, s := range samples {
		if len(s.Features) != FeatureCount {
			return nil, 0, fmt.Errorf("sample %d has %d features, want %d", i, len(s.Features), FeatureCount)
		}
	}

	m := NewModel(opts.Seed)
	rng := rand.New(rand.NewSource(opts.Seed))

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}

	var loss float64
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		loss = 0
		for _, idx := range order {
			loss += m.step(samples[idx], opts.LearningRate)
		}
		loss /= float64(len(samples))
	}
	return m, loss, nil
}

// step runs one forward/backward pass for a sample and applies the
// gradients in place. Returns the sample's squared error before the update.
func (m *Model) step(s Sample, lr float64) float64 {
	activations := m.forward(s.Features)
	out := activations[len(activations)-1][0]
	err := out - s.Win

	// delta for the current layer, starting at the output. With sigmoid
	// units and squared error: delta = err * out * (1 - out).
	deltas := []float64{err * out * (1 - out)}

	for li := len(m.Layers) - 1; li >= 0; li-- {
		layer := &m.Layers[li]
		input := activations[li]

		// Backpropagate before mutating this layer's weights.
		var prevDeltas []float64
		if li > 0 {
			prevDeltas = make([]float64, len(input))
			for j := range input {
				var sum float64
				for i, d := range deltas {
					sum += d * layer.Weights[i][j]
				}
				prevDeltas[j] = sum * input[j] * (1 - input[j])
			}
		}

		for i, d := range deltas {
			for j := range layer.Weights[i] {
				layer.Weights[i][j] -= lr * d * input[j]
			}
			layer.Biases[i] -= lr * d
		}
		deltas = prevDeltas
	}

	return err * err
}

// --------------------------------------------------------------------------
// Dataset generation
// --------------------------------------------------------------------------

// DatasetSource is the slice of the stats client the dataset builder uses.
type DatasetSource interface {
	StatsSource
	GetActivityHistory(ctx context.Context, membershipType int, membershipID, characterID string, p bungie.HistoryParams) ([]bungie.ActivitySummary, error)
	GetPostGameReport(ctx context.Context, instanceID string) (*bungie.PostGameReport, error)
}

// DatasetOptions select the reference player whose history seeds the
// training set.
type DatasetOptions struct {
	MembershipType int
	MembershipID   string
	CharacterID    string
	Mode           int
	Count          int
}

// BuildDataset walks the reference player's match history and produces one
// sample per match: team one is the reference player's team, and the label
// is whether that team won (standing 0). Account stats are memoized per
// player across matches.
func BuildDataset(ctx context.Context, source DatasetSource, opts DatasetOptions, logger *slog.Logger) ([]Sample, error) {
	if logger == nil {
		logger = slog.Default()
	}
	history, err := source.GetActivityHistory(ctx, opts.MembershipType, opts.MembershipID, opts.CharacterID,
		bungie.HistoryParams{Page: 0, Count: opts.Count, Mode: opts.Mode})
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	logger.Info("building training dataset", "matches", len(history))

	statsCache := make(map[string]*bungie.HistoricalStatsAccountResult)
	samples := make([]Sample, 0, len(history))

	for _, match := range history {
		report, err := source.GetPostGameReport(ctx, match.ActivityDetails.InstanceID)
		if err != nil {
			logger.Warn("skipping match, report unavailable",
				"instance_id", match.ActivityDetails.InstanceID, "error", err)
			continue
		}

		referenceTeam := bungie.TeamNone
		for _, entry := range report.Entries {
			if entry.Player.DestinyUserInfo.MembershipID == opts.MembershipID {
				referenceTeam = entry.TeamID()
				break
			}
		}
		if referenceTeam == bungie.TeamNone {
			continue
		}

		features := make([]float64, FeatureCount)
		var slot [TeamCount]int
		for _, entry := range report.Entries {
			if entry.TeamID() == bungie.TeamNone {
				continue
			}
			team := 1
			if entry.TeamID() == referenceTeam {
				team = 0
			}
			if slot[team] >= PlayersPerTeam {
				continue
			}

			info := entry.Player.DestinyUserInfo
			key := fmt.Sprintf("%d|%s", info.MembershipType, info.MembershipID)
			stats, ok := statsCache[key]
			if !ok {
				stats, err = source.GetHistoricalStatsForAccount(ctx, info.MembershipType, info.MembershipID)
				if err != nil {
					logger.Debug("account stats lookup failed", "membership_id", info.MembershipID, "error", err)
					stats = nil
				}
				statsCache[key] = stats
			}
			if stats == nil || stats.AllPvPStats() == nil {
				continue
			}

			vals := PlayerFeatures(stats)
			offset := (team*PlayersPerTeam + slot[team]) * FeaturesPerPlayer
			copy(features[offset:offset+FeaturesPerPlayer], vals[:])
			slot[team]++
		}

		win := 0.0
		if standing, ok := match.Values["standing"]; ok && standing.Basic.Value == 0 {
			win = 1.0
		}
		samples = append(samples, Sample{Features: features, Win: win})
	}

	return samples, nil
}

// SaveDataset writes samples as JSON.
func SaveDataset(path string, samples []Sample) error {
	raw, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}

// LoadDataset reads samples written by SaveDataset.
func LoadDataset(path string) ([]Sample, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var samples []Sample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return samples, nil
}
