package favourites

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteFileName is the database file the SQLite store uses.
const SQLiteFileName = "favourites.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS favourites (
	id TEXT PRIMARY KEY,
	is_favourite INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);`

// SQLiteStore keeps favourites in a SQLite database. Unfavouriting keeps
// the row with is_favourite = 0 so updated_at records when it happened.
type SQLiteStore struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[string]bool
}

// NewSQLiteStore opens (creating if needed) the database at path and loads
// the current favourites into memory. Use ":memory:" in tests.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open favourites db: %w", err)
	}
	// One connection: ":memory:" databases are per-connection.
	db.SetMaxOpenConns(1)

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, cache: map[string]bool{}}
	ids, err := s.query(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, id := range ids {
		s.cache[id] = true
	}
	return s, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=1000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create favourites table: %w", err)
	}
	return nil
}

// IsFavourite reports whether id is a favourite.
func (s *SQLiteStore) IsFavourite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[id]
}

// Set upserts the favourite flag for id.
func (s *SQLiteStore) Set(ctx context.Context, id string, favourite bool) error {
	if id == "" {
		return fmt.Errorf("favourite id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO favourites (id, is_favourite, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			is_favourite=excluded.is_favourite,
			updated_at=excluded.updated_at
	`, id, boolToInt(favourite), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save favourite: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save favourite: %w", err)
	}

	s.mu.Lock()
	if favourite {
		s.cache[id] = true
	} else {
		delete(s.cache, id)
	}
	s.mu.Unlock()
	return nil
}

// List returns favourite IDs, most recently changed first.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	return s.query(ctx)
}

func (s *SQLiteStore) query(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM favourites
		WHERE is_favourite = 1
		ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list favourites: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
