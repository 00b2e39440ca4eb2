// Package store persists compiled outputs in a SQLite cache keyed by
// program fingerprint and target.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vibelang/vl/compiler"
)

// ErrNotFound indicates the requested cache entry doesn't exist.
var ErrNotFound = errors.New("cache entry not found")

// Store is a compile cache. Entries are addressed by the content
// fingerprint of the source program plus the output target, so formatting
// changes never invalidate and semantic changes always do.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens or creates a cache database at the given path.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS outputs (
		fingerprint TEXT NOT NULL,
		target TEXT NOT NULL,
		code TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (fingerprint, target)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// OpenDefault opens the cache under the user's home directory, honoring
// VL_CACHE_DB as an override.
func OpenDefault() (*Store, error) {
	dbPath := os.Getenv("VL_CACHE_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home dir: %w", err)
		}
		dbPath = filepath.Join(home, ".vl", "cache.db")
	}
	return Open(dbPath)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the cached code for a fingerprint and target.
func (s *Store) Get(fingerprint string, target compiler.Target) (string, error) {
	var code string
	err := s.db.QueryRow(
		"SELECT code FROM outputs WHERE fingerprint = ? AND target = ?",
		fingerprint, string(target),
	).Scan(&code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("querying cache: %w", err)
	}
	return code, nil
}

// Put stores generated code for a fingerprint and target, replacing any
// previous entry.
func (s *Store) Put(fingerprint string, target compiler.Target, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO outputs (fingerprint, target, code, created_at) VALUES (?, ?, ?, ?)",
		fingerprint, string(target), code, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	return nil
}

// Delete removes every cached target for a fingerprint.
func (s *Store) Delete(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM outputs WHERE fingerprint = ?", fingerprint)
	if err != nil {
		return fmt.Errorf("deleting cache entries: %w", err)
	}
	return nil
}

// Purge drops all cached outputs.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM outputs")
	if err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}

// Stats reports the number of entries per target.
func (s *Store) Stats() (map[compiler.Target]int, error) {
	rows, err := s.db.Query("SELECT target, COUNT(*) FROM outputs GROUP BY target")
	if err != nil {
		return nil, fmt.Errorf("querying cache stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[compiler.Target]int)
	for rows.Next() {
		var target string
		var count int
		if err := rows.Scan(&target, &count); err != nil {
			return nil, fmt.Errorf("scanning cache stats: %w", err)
		}
		stats[compiler.Target(target)] = count
	}
	return stats, rows.Err()
}
