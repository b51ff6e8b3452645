package favourites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileName is the JSON file the file store writes.
const FileName = "favourites.json"

// LockTimeout bounds how long a write waits for the cross-process lock.
// Past it the write proceeds unlocked rather than hang the CLI.
const LockTimeout = 100 * time.Millisecond

type fileState struct {
	Version    int                  `json:"version"`
	Favourites map[string]time.Time `json:"favourites"`
}

const fileStateVersion = 1

// ErrCorruptFile is returned by Set when the favourites file exists but
// cannot be parsed. The file is left untouched.
var ErrCorruptFile = errors.New("favourites file is not valid JSON")

// FileStore keeps favourites in a JSON file guarded by a lock file, so
// several lunchbox processes can share it.
type FileStore struct {
	dir string

	mu    sync.RWMutex
	cache map[string]time.Time
}

// NewFileStore loads the favourites file in dir. A missing or corrupt file
// yields an empty store; writes to a corrupt file fail with ErrCorruptFile.
func NewFileStore(dir string) (*FileStore, error) {
	s := &FileStore{dir: dir}
	state, err := s.load()
	if errors.Is(err, ErrCorruptFile) {
		state, err = emptyFileState(), nil
	}
	if err != nil {
		return nil, err
	}
	s.cache = state.Favourites
	return s, nil
}

// Path returns the favourites file path.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, FileName)
}

func (s *FileStore) lockPath() string {
	return filepath.Join(s.dir, ".favourites.lock")
}

// IsFavourite reports whether id is a favourite.
func (s *FileStore) IsFavourite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[id]
	return ok
}

// List returns favourite IDs, most recently added first.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.cache), nil
}

// Set marks or unmarks id. The file is re-read under the lock so changes
// made by other processes survive.
func (s *FileStore) Set(ctx context.Context, id string, favourite bool) error {
	if id == "" {
		return fmt.Errorf("favourite id is required")
	}
	lock, err := s.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("lock favourites: %w", err)
	}
	if lock != nil {
		defer func() { _ = lock.Unlock() }()
	}

	state, err := s.load()
	if err != nil {
		return err
	}
	if favourite {
		if _, ok := state.Favourites[id]; !ok {
			state.Favourites[id] = time.Now().UTC()
		}
	} else {
		delete(state.Favourites, id)
	}
	if err := s.save(state); err != nil {
		return fmt.Errorf("save favourites: %w", err)
	}

	s.mu.Lock()
	s.cache = state.Favourites
	s.mu.Unlock()
	return nil
}

// Close is a no-op; the file is not held open.
func (s *FileStore) Close() error { return nil }

// acquireLock returns nil without error when the lock is busy past
// LockTimeout.
func (s *FileStore) acquireLock(ctx context.Context) (*flock.Flock, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, err
	}

	fl := flock.New(s.lockPath())
	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, 10*time.Millisecond)
	if err != nil {
		if lockCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, nil
		}
		return nil, err
	}
	if !locked {
		return nil, nil
	}
	return fl, nil
}

func emptyFileState() *fileState {
	return &fileState{Version: fileStateVersion, Favourites: map[string]time.Time{}}
}

func (s *FileStore) load() (*fileState, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return emptyFileState(), nil
		}
		return nil, fmt.Errorf("read favourites: %w", err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptFile, s.Path(), err)
	}
	if state.Favourites == nil {
		state.Favourites = map[string]time.Time{}
	}
	return &state, nil
}

func (s *FileStore) save(state *fileState) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}
	state.Version = fileStateVersion

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Unique temp name: two unlocked writers must not share one.
	tmpPath := fmt.Sprintf("%s.%d.%d.tmp", s.Path(), os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		_ = os.Remove(s.Path())
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func sortedIDs(m map[string]time.Time) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := m[b].Compare(m[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return ids
}
