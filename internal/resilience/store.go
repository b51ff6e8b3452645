// Package resilience throttles search API requests across concurrent
// lunchbox processes. A token bucket and any Retry-After pause live in a
// small JSON file guarded by a file lock.
package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
)

const (
	// StateFileName is the state file inside the store directory.
	StateFileName = "ratelimit.json"

	// LockTimeout bounds how long an update waits for the file lock. Past
	// it the update runs unlocked rather than stall the command.
	LockTimeout = 100 * time.Millisecond
)

// Store reads and writes State under a file lock.
type Store struct {
	dir string
}

// NewStore creates a store in dir, or in the user cache directory when
// dir is empty.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{dir: dir}
}

// DefaultDir returns $XDG_CACHE_HOME/lunchbox or the platform cache dir.
func DefaultDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "lunchbox")
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "lunchbox")
	}
	return filepath.Join(os.TempDir(), "lunchbox")
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the state file path.
func (s *Store) Path() string { return filepath.Join(s.dir, StateFileName) }

// lock takes the directory lock. A nil unlock func with a nil error means
// the lock timed out and the caller proceeds without it.
func (s *Store) lock() (func(), error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(s.dir, ".ratelimit.lock"))

	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()
	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, err
	}
	if !locked {
		return nil, nil
	}
	return func() { _ = fl.Unlock() }, nil
}

// Load returns the stored state, or a fresh one when the file is missing
// or unreadable.
func (s *Store) Load() (*State, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	if unlock != nil {
		defer unlock()
	}
	return s.read()
}

func (s *Store) read() (*State, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return NewState(), nil
	}
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil || st.Version != StateVersion {
		return NewState(), nil
	}
	return &st, nil
}

func (s *Store) write(st *State) error {
	st.Version = StateVersion
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, StateFileName+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	// Windows refuses to rename over an existing file.
	if runtime.GOOS == "windows" {
		_ = os.Remove(s.Path())
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Update runs fn on the current state and saves the result, holding the
// lock across the read-modify-write.
func (s *Store) Update(fn func(*State) error) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	if unlock != nil {
		defer unlock()
	}

	st, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return s.write(st)
}

// Clear removes the state file.
func (s *Store) Clear() error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	if unlock != nil {
		defer unlock()
	}
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
