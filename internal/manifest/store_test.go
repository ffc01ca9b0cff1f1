package manifest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func snapshotFixture() *Snapshot {
	snap := &Snapshot{
		ActivityDefinitions: map[string]Definition{},
		ClassDefinitions:    map[string]Definition{},
	}
	var trials Definition
	trials.DisplayProperties.Name = "Trials of Osiris"
	trials.PGCRImage = "/img/trials.jpg"
	snap.ActivityDefinitions["1234567890"] = trials

	var hunter Definition
	hunter.DisplayProperties.Name = "Hunter"
	snap.ClassDefinitions["671679327"] = hunter
	return snap
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "manifest.json")

	if err := NewStore(path).Save(snapshotFixture()); err != nil {
		t.Fatal(err)
	}

	// A fresh store reads the same snapshot back from disk.
	snap, err := NewStore(path).Load()
	if err != nil {
		t.Fatal(err)
	}

	def, ok := snap.Activity(1234567890)
	if !ok {
		t.Fatal("activity definition missing after reload")
	}
	if def.DisplayProperties.Name != "Trials of Osiris" || def.PGCRImage != "/img/trials.jpg" {
		t.Errorf("got %+v", def)
	}
	if _, ok := snap.Activity(999); ok {
		t.Error("unknown hash must miss")
	}
	if snap.ClassDefinitions["671679327"].DisplayProperties.Name != "Hunter" {
		t.Errorf("class definitions = %+v", snap.ClassDefinitions)
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	if _, err := NewStore(filepath.Join(t.TempDir(), "missing.json")).Load(); err == nil {
		t.Error("missing snapshot file must fail")
	}
}

// fakeFetcher serves canned manifest tables.
type fakeFetcher struct {
	tables map[string]map[string]Definition
	err    error
}

func (f *fakeFetcher) GetManifestTable(_ context.Context, table, language string, out any) error {
	if f.err != nil {
		return f.err
	}
	if language != "en" {
		return errors.New("unexpected language")
	}
	*out.(*map[string]Definition) = f.tables[table]
	return nil
}

func TestStoreRefresh(t *testing.T) {
	src := snapshotFixture()
	fetcher := &fakeFetcher{tables: map[string]map[string]Definition{
		"DestinyActivityDefinition": src.ActivityDefinitions,
		"DestinyClassDefinition":    src.ClassDefinitions,
	}}

	path := filepath.Join(t.TempDir(), "manifest.json")
	store := NewStore(path)

	snap, err := store.Refresh(context.Background(), fetcher)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := snap.Activity(1234567890); !ok {
		t.Error("refreshed snapshot missing activity table")
	}

	// Refresh persists: a fresh store over the same path sees the data.
	reloaded, err := NewStore(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reloaded.Activity(1234567890); !ok {
		t.Error("refresh did not persist the snapshot")
	}
}

func TestStoreRefreshFetchFailure(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "manifest.json"))
	fetcher := &fakeFetcher{err: errors.New("upstream down")}

	if _, err := store.Refresh(context.Background(), fetcher); err == nil {
		t.Fatal("fetch failure must fail the refresh")
	}
	// A failed refresh leaves no snapshot behind.
	if _, err := store.Load(); err == nil {
		t.Error("failed refresh must not produce a loadable snapshot")
	}
}
