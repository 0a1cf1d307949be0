// Package store is the persisted properties key-value store: read/write by
// key, last-write-wins, no transactions. It holds cross-run bookkeeping only;
// the diff never consults it, so losing the file is harmless.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Bookkeeping keys.
const (
	KeyLastDailySummaryDate    = "last_daily_summary_date"
	KeyLastReleaseVersionAlert = "last_released_version_alerted"
)

const (
	xdgAppName = "gcal-sync"
	dbFile     = "properties.db"
)

const schema = `
CREATE TABLE IF NOT EXISTS properties (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// Store is a sqlite-backed properties store.
type Store struct {
	db *sql.DB
}

// Open creates or opens the properties database at path. An empty path uses
// the default location under ~/.config.
func Open(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".config", xdgAppName, dbFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open properties store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize properties store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key and whether it exists.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM properties WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read property %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes the value for key, overwriting any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO properties (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write property %s: %w", key, err)
	}
	return nil
}

// Delete removes the key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM properties WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete property %s: %w", key, err)
	}
	return nil
}
