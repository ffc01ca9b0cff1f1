package predict

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/PhilippCounter/DestinyWeb/internal/bungie"
)

func accountStats(kd, kills, wl float64) *bungie.HistoricalStatsAccountResult {
	r := &bungie.HistoricalStatsAccountResult{}
	period := bungie.HistoricalStatsByPeriod{AllTime: map[string]bungie.StatValue{}}

	set := func(name string, v float64) {
		sv := bungie.StatValue{}
		sv.Basic.Value = v
		period.AllTime[name] = sv
	}
	set("killsDeathsRatio", kd)
	set("kills", kills)
	set("winLossRatio", wl)

	r.MergedAllCharacters.Results = map[string]bungie.HistoricalStatsByPeriod{"allPvP": period}
	return r
}

func TestPlayerFeatures(t *testing.T) {
	got := PlayerFeatures(accountStats(1.5, 4200, 0.9))
	want := [FeaturesPerPlayer]float64{1.5, 4200, 0.9}
	if got != want {
		t.Errorf("PlayerFeatures = %v, want %v", got, want)
	}

	if got := PlayerFeatures(nil); got != ([FeaturesPerPlayer]float64{}) {
		t.Errorf("nil stats must contribute zeros, got %v", got)
	}
	if got := PlayerFeatures(&bungie.HistoricalStatsAccountResult{}); got != ([FeaturesPerPlayer]float64{}) {
		t.Errorf("empty stats must contribute zeros, got %v", got)
	}
}

// mockStatsSource serves canned per-player aggregates.
type mockStatsSource struct {
	calls atomic.Int64
	stats map[string]*bungie.HistoricalStatsAccountResult
	errs  map[string]error
}

func (m *mockStatsSource) GetHistoricalStatsForAccount(_ context.Context, _ int, membershipID string) (*bungie.HistoricalStatsAccountResult, error) {
	m.calls.Add(1)
	if err, ok := m.errs[membershipID]; ok {
		return nil, err
	}
	return m.stats[membershipID], nil
}

func TestBuildFeaturesLayout(t *testing.T) {
	source := &mockStatsSource{stats: map[string]*bungie.HistoricalStatsAccountResult{
		"a1": accountStats(1, 10, 0.1),
		"a2": accountStats(2, 20, 0.2),
		"b1": accountStats(3, 30, 0.3),
	}, errs: map[string]error{
		"down": errors.New("upstream down"),
	}}

	teams := [TeamCount][]PlayerRef{
		{{MembershipType: 2, MembershipID: "a1"}, {MembershipType: 2, MembershipID: "a2"}},
		{{MembershipType: 2, MembershipID: "b1"}, {MembershipType: 2, MembershipID: "down"}},
	}

	features, err := BuildFeatures(context.Background(), source, teams, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != FeatureCount {
		t.Fatalf("got %d features, want %d", len(features), FeatureCount)
	}

	want := make([]float64, FeatureCount)
	copy(want[0:3], []float64{1, 10, 0.1})  // team one, slot 0
	copy(want[3:6], []float64{2, 20, 0.2})  // team one, slot 1
	copy(want[9:12], []float64{3, 30, 0.3}) // team two, slot 0

	for i := range want {
		if features[i] != want[i] {
			t.Fatalf("feature[%d] = %v, want %v (full: %v)", i, features[i], want[i], features)
		}
	}
}

func TestTrainSeparatesLabels(t *testing.T) {
	winFeatures := make([]float64, FeatureCount)
	lossFeatures := make([]float64, FeatureCount)
	for i := range winFeatures {
		winFeatures[i] = 1
	}

	samples := []Sample{
		{Features: winFeatures, Win: 1},
		{Features: lossFeatures, Win: 0},
	}

	m, loss, err := Train(samples, TrainOptions{Epochs: 2000, LearningRate: 0.5, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if loss > 0.1 {
		t.Errorf("final loss = %v, expected the two samples to be fit", loss)
	}

	pWin, err := m.Predict(winFeatures)
	if err != nil {
		t.Fatal(err)
	}
	pLoss, err := m.Predict(lossFeatures)
	if err != nil {
		t.Fatal(err)
	}
	if Verdict(pWin) != "win" {
		t.Errorf("winning vector predicted %v", pWin)
	}
	if Verdict(pLoss) != "loss" {
		t.Errorf("losing vector predicted %v", pLoss)
	}
}

func TestTrainValidation(t *testing.T) {
	if _, _, err := Train(nil, DefaultTrainOptions()); err == nil {
		t.Error("empty sample set must fail")
	}
	bad := []Sample{{Features: []float64{1, 2, 3}, Win: 1}}
	if _, _, err := Train(bad, DefaultTrainOptions()); err == nil {
		t.Error("malformed sample must fail")
	}
}

// mockDatasetSource serves a canned history plus reports.
type mockDatasetSource struct {
	mockStatsSource
	history []bungie.ActivitySummary
	reports map[string]*bungie.PostGameReport
}

func (m *mockDatasetSource) GetActivityHistory(context.Context, int, string, string, bungie.HistoryParams) ([]bungie.ActivitySummary, error) {
	return m.history, nil
}

func (m *mockDatasetSource) GetPostGameReport(_ context.Context, instanceID string) (*bungie.PostGameReport, error) {
	r, ok := m.reports[instanceID]
	if !ok {
		return nil, errors.New("no such report")
	}
	return r, nil
}

func datasetEntry(membershipID string, team float64) bungie.ReportEntry {
	e := bungie.ReportEntry{Values: map[string]bungie.StatValue{}}
	e.Player.DestinyUserInfo.MembershipType = 2
	e.Player.DestinyUserInfo.MembershipID = membershipID
	e.Player.DestinyUserInfo.DisplayName = membershipID
	v := bungie.StatValue{}
	v.Basic.Value = team
	e.Values["team"] = v
	return e
}

func datasetSummary(instanceID string, standing float64) bungie.ActivitySummary {
	s := bungie.ActivitySummary{Values: map[string]bungie.StatValue{}}
	s.ActivityDetails.InstanceID = instanceID
	v := bungie.StatValue{}
	v.Basic.Value = standing
	s.Values["standing"] = v
	return s
}

func TestBuildDataset(t *testing.T) {
	roster := []bungie.ReportEntry{
		datasetEntry("ref", bungie.TeamBravo),
		datasetEntry("ally", bungie.TeamBravo),
		datasetEntry("enemy", bungie.TeamAlpha),
		datasetEntry("ghost", bungie.TeamNone),
	}

	source := &mockDatasetSource{
		history: []bungie.ActivitySummary{
			datasetSummary("won", 0),
			datasetSummary("lost", 1),
			datasetSummary("missing", 0),
		},
		reports: map[string]*bungie.PostGameReport{
			"won":  {ActivityDetails: bungie.ActivityDetails{InstanceID: "won"}, Entries: roster},
			"lost": {ActivityDetails: bungie.ActivityDetails{InstanceID: "lost"}, Entries: roster},
		},
	}
	source.stats = map[string]*bungie.HistoricalStatsAccountResult{
		"ref":   accountStats(1, 10, 0.1),
		"ally":  accountStats(2, 20, 0.2),
		"enemy": accountStats(3, 30, 0.3),
		"ghost": accountStats(9, 90, 0.9),
	}

	opts := DatasetOptions{MembershipType: 2, MembershipID: "ref", Mode: 84, Count: 50}
	samples, err := BuildDataset(context.Background(), source, opts, nil)
	if err != nil {
		t.Fatal(err)
	}

	// The match without a report is skipped.
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if samples[0].Win != 1 || samples[1].Win != 0 {
		t.Errorf("labels = %v, %v; want 1, 0", samples[0].Win, samples[1].Win)
	}

	// Team one holds the reference player's side regardless of the raw
	// team id; the sentinel entry contributes nothing.
	s := samples[0]
	if s.Features[0] != 1 || s.Features[3] != 2 {
		t.Errorf("reference side not in team one slots: %v", s.Features[:9])
	}
	if s.Features[9] != 3 {
		t.Errorf("opposing side not in team two slots: %v", s.Features[9:])
	}
	for i := 6; i < 9; i++ {
		if s.Features[i] != 0 {
			t.Errorf("unfilled slot %d not zero padded: %v", i, s.Features[i])
		}
	}

	// Per-player aggregates are fetched once across matches.
	if got := source.calls.Load(); got != 3 {
		t.Errorf("account stats fetched %d times, want 3", got)
	}
}

func TestDatasetSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.json")
	in := []Sample{
		{Features: make([]float64, FeatureCount), Win: 1},
		{Features: make([]float64, FeatureCount), Win: 0},
	}
	in[0].Features[4] = 2.5

	if err := SaveDataset(path, in); err != nil {
		t.Fatal(err)
	}
	out, err := LoadDataset(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].Features[4] != 2.5 || out[0].Win != 1 || out[1].Win != 0 {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestDefaultTrainOptions(t *testing.T) {
	opts := DefaultTrainOptions()
	if opts.Epochs != 2000 || opts.LearningRate != 0.05 {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}
