package bungie

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ReportCache is a write-once on-disk cache for post game carnage reports.
// Reports are immutable once a match finishes, so entries are never
// invalidated or rewritten.
type ReportCache struct {
	db *sql.DB
}

// OpenReportCache opens (creating if needed) the sqlite file at path.
func OpenReportCache(path string) (*ReportCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open report cache: %w", err)
	}
	// sqlite handles one writer at a time; serialize through a single conn.
	db.SetMaxOpenConns(1)

	const schema = `
		CREATE TABLE IF NOT EXISTS post_game_reports (
			instance_id TEXT PRIMARY KEY,
			body        BLOB NOT NULL,
			fetched_at  TIMESTAMP NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create report cache schema: %w", err)
	}

	return &ReportCache{db: db}, nil
}

// Get returns the cached report body for an instance id, if present.
func (c *ReportCache) Get(ctx context.Context, instanceID string) ([]byte, bool, error) {
	var body []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT body FROM post_game_reports WHERE instance_id = ?`, instanceID,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read report %s: %w", instanceID, err)
	}
	return body, true, nil
}

// Put stores a report body. Existing entries are left untouched.
func (c *ReportCache) Put(ctx context.Context, instanceID string, body []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO post_game_reports (instance_id, body, fetched_at) VALUES (?, ?, ?)`,
		instanceID, body, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("write report %s: %w", instanceID, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *ReportCache) Close() error {
	return c.db.Close()
}
