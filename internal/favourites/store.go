// Package favourites persists the user's favourite restaurants and provides
// optimistic toggling on top of the persisted set.
package favourites

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store is a persisted set of favourite restaurant IDs.
//
// IsFavourite answers from memory and never blocks on I/O; Set writes
// through before updating what IsFavourite reports.
type Store interface {
	IsFavourite(id string) bool
	Set(ctx context.Context, id string, favourite bool) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown favourites backend")

// Open opens the store for backend in dir. An empty backend selects the
// file store; an empty dir selects DefaultDir.
func Open(ctx context.Context, backend, dir string) (Store, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	switch backend {
	case "", BackendFile:
		return NewFileStore(dir)
	case BackendSQLite:
		return NewSQLiteStore(ctx, filepath.Join(dir, SQLiteFileName))
	default:
		return nil, fmt.Errorf("%w %q (want %s or %s)", ErrUnknownBackend, backend, BackendFile, BackendSQLite)
	}
}

// DefaultDir returns the directory favourites are stored in when none is
// configured: $XDG_DATA_HOME/lunchbox, falling back to ~/.local/share/lunchbox.
func DefaultDir() string {
	if dataDir := os.Getenv("XDG_DATA_HOME"); dataDir != "" {
		return filepath.Join(dataDir, "lunchbox")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", "lunchbox")
	}
	return filepath.Join(os.TempDir(), "lunchbox")
}
