// Package predict implements the win-probability model: a small sigmoid
// feed-forward network over 18 scalar features (3 stats x 3 players x 2
// teams), with JSON weight snapshots on disk.
package predict

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
)

// Feature vector shape.
const (
	FeaturesPerPlayer = 3
	PlayersPerTeam    = 3
	TeamCount         = 2
	FeatureCount      = FeaturesPerPlayer * PlayersPerTeam * TeamCount
)

// Layer is one dense layer. Weights[i][j] connects input j to unit i.
type Layer struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

// Model is a sigmoid-activated feed-forward network.
type Model struct {
	Layers []Layer `json:"layers"`
}

// NewModel creates a randomly initialized 18 -> 18 -> 1 network.
func NewModel(seed int64) *Model {
	rng := rand.New(rand.NewSource(seed))
	return &Model{Layers: []Layer{
		randomLayer(rng, FeatureCount, FeatureCount),
		randomLayer(rng, 1, FeatureCount),
	}}
}

func randomLayer(rng *rand.Rand, units, inputs int) Layer {
	l := Layer{
		Weights: make([][]float64, units),
		Biases:  make([]float64, units),
	}
	// Small symmetric init keeps the sigmoids off their flat tails.
	scale := 1.0 / math.Sqrt(float64(inputs))
	for i := range l.Weights {
		l.Weights[i] = make([]float64, inputs)
		for j := range l.Weights[i] {
			l.Weights[i][j] = (rng.Float64()*2 - 1) * scale
		}
	}
	return l
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// forward runs the network and returns every layer's activations, input
// first. The last slice is the output layer.
func (m *Model) forward(in []float64) [][]float64 {
	activations := make([][]float64, 0, len(m.Layers)+1)
	activations = append(activations, in)

	current := in
	for _, layer := range m.Layers {
		next := make([]float64, len(layer.Weights))
		for i, weights := range layer.Weights {
			sum := layer.Biases[i]
			for j, w := range weights {
				sum += w * current[j]
			}
			next[i] = sigmoid(sum)
		}
		activations = append(activations, next)
		current = next
	}
	return activations
}

// Predict returns the win probability for team one.
func (m *Model) Predict(features []float64) (float64, error) {
	if len(features) != FeatureCount {
		return 0, fmt.Errorf("expected %d features, got %d", FeatureCount, len(features))
	}
	if len(m.Layers) == 0 {
		return 0, fmt.Errorf("model has no layers")
	}
	activations := m.forward(features)
	out := activations[len(activations)-1]
	return out[0], nil
}

// Verdict maps a probability to its display label at the 0.5 threshold.
func Verdict(p float64) string {
	if p > 0.5 {
		return "win"
	}
	return "loss"
}

// Load reads a model snapshot from disk.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if len(m.Layers) == 0 {
		return nil, fmt.Errorf("model %s has no layers", path)
	}
	return &m, nil
}

// Save writes the model snapshot to disk.
func (m *Model) Save(path string) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create model dir: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}
