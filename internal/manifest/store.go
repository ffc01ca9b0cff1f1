// Package manifest persists a snapshot of the game's reference tables
// (activity and class definitions) in a flat JSON file. The snapshot is
// refreshed on demand; there is no schema versioning.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Definition is one reference table entry: a display name plus the image
// path used as a row background.
type Definition struct {
	DisplayProperties struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	} `json:"displayProperties"`
	PGCRImage string `json:"pgcrImage,omitempty"`
}

// Snapshot holds the manifest tables this service renders from. Tables are
// keyed by definition hash (decimal string, as served by the upstream
// content files).
type Snapshot struct {
	ActivityDefinitions map[string]Definition `json:"DestinyActivityDefinition"`
	ClassDefinitions    map[string]Definition `json:"DestinyClassDefinition"`
}

// Activity looks up an activity definition by hash.
func (s *Snapshot) Activity(hash int64) (Definition, bool) {
	def, ok := s.ActivityDefinitions[strconv.FormatInt(hash, 10)]
	return def, ok
}

// TableFetcher downloads one manifest world component table into out.
type TableFetcher interface {
	GetManifestTable(ctx context.Context, table, language string, out any) error
}

// Store reads and writes the snapshot file, keeping the last loaded
// snapshot in memory.
type Store struct {
	path string

	mu   sync.RWMutex
	snap *Snapshot
}

// NewStore creates a store over the given snapshot file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the snapshot, reading the file on first use. A missing file
// is an error: the snapshot must be refreshed at least once.
func (s *Store) Load() (*Snapshot, error) {
	s.mu.RLock()
	if s.snap != nil {
		snap := s.snap
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap != nil {
		return s.snap, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read manifest snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode manifest snapshot: %w", err)
	}
	s.snap = &snap
	return s.snap, nil
}

// Save writes a snapshot to the file and makes it the current one.
func (s *Store) Save(snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode manifest snapshot: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create manifest dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write manifest snapshot: %w", err)
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

// Refresh downloads the activity and class tables and persists them as the
// new snapshot.
func (s *Store) Refresh(ctx context.Context, fetcher TableFetcher) (*Snapshot, error) {
	snap := &Snapshot{}

	if err := fetcher.GetManifestTable(ctx, "DestinyActivityDefinition", "en", &snap.ActivityDefinitions); err != nil {
		return nil, fmt.Errorf("fetch activity definitions: %w", err)
	}
	if err := fetcher.GetManifestTable(ctx, "DestinyClassDefinition", "en", &snap.ClassDefinitions); err != nil {
		return nil, fmt.Errorf("fetch class definitions: %w", err)
	}

	if err := s.Save(snap); err != nil {
		return nil, err
	}
	return snap, nil
}
