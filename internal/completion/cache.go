// Package completion provides tab completion support for the lunchbox CLI.
// It keeps a file-based record of restaurants seen in recent searches so
// shells can complete restaurant IDs without calling the search API.
package completion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
)

// CachedRestaurant holds restaurant data for tab completion.
type CachedRestaurant struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Rating float64   `json:"rating,omitempty"`
	Price  string    `json:"price,omitempty"`
	SeenAt time.Time `json:"seen_at"`
}

// Cache stores completion data with metadata for staleness detection.
type Cache struct {
	Restaurants []CachedRestaurant `json:"restaurants,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Version     int                `json:"version"` // Schema version for future migrations
}

const (
	// CacheVersion is the current cache schema version.
	CacheVersion = 1

	// CacheFileName is the default cache file name.
	CacheFileName = "recent.json"

	// MaxEntries caps how many restaurants the cache remembers.
	MaxEntries = 500
)

// Store handles reading and writing the completion cache.
type Store struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

// NewStore creates a new cache store.
// If dir is empty, it uses the default location (~/.local/share/lunchbox/).
func NewStore(dir string) *Store {
	if dir == "" {
		dir = defaultCacheDir()
	}
	return &Store{dir: dir, now: time.Now}
}

// defaultCacheDir matches the default data dir from internal/config.
func defaultCacheDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "lunchbox")
}

// Dir returns the cache directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path to the cache file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, CacheFileName)
}

// Load reads the cache from disk.
// Returns an empty cache if the file doesn't exist or is invalid.
func (s *Store) Load() (*Cache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadUnsafe()
}

// loadUnsafe reads the cache without locking (caller must hold lock).
func (s *Store) loadUnsafe() (*Cache, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return &Cache{Version: CacheVersion}, nil
		}
		return nil, err
	}

	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		// Corrupted cache starts over
		return &Cache{Version: CacheVersion}, nil //nolint:nilerr // graceful degradation for corrupted cache
	}
	return &cache, nil
}

// saveUnsafe writes the cache without locking (caller must hold lock).
func (s *Store) saveUnsafe(cache *Cache) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}

	cache.Version = CacheVersion

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmp, err := os.CreateTemp(s.dir, CacheFileName+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.Path())
}

// Remember records restaurants as seen now. Entries already in the cache
// are refreshed; the oldest entries are dropped beyond MaxEntries.
func (s *Store) Remember(restaurants []restaurant.Restaurant) error {
	if len(restaurants) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cache, err := s.loadUnsafe()
	if err != nil {
		cache = &Cache{Version: CacheVersion}
	}

	now := s.now().UTC()
	byID := make(map[string]CachedRestaurant, len(cache.Restaurants)+len(restaurants))
	for _, r := range cache.Restaurants {
		byID[r.ID] = r
	}
	for _, r := range restaurants {
		if r.ID == "" {
			continue
		}
		byID[r.ID] = CachedRestaurant{
			ID:     r.ID,
			Name:   r.Name,
			Rating: r.Rating,
			Price:  r.Price(),
			SeenAt: now,
		}
	}

	merged := make([]CachedRestaurant, 0, len(byID))
	for _, r := range byID {
		merged = append(merged, r)
	}
	merged = rankRestaurants(merged)
	if len(merged) > MaxEntries {
		merged = merged[:MaxEntries]
	}

	cache.Restaurants = merged
	cache.UpdatedAt = now
	return s.saveUnsafe(cache)
}

// Restaurants returns cached restaurants, or nil if cache is empty/missing.
func (s *Store) Restaurants() []CachedRestaurant {
	cache, err := s.Load()
	if err != nil {
		return nil
	}
	return cache.Restaurants
}

// Clear removes the cache file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// rankRestaurants returns restaurants most recently seen first, then by
// name (case-insensitive), then by ID.
func rankRestaurants(restaurants []CachedRestaurant) []CachedRestaurant {
	ranked := make([]CachedRestaurant, len(restaurants))
	copy(ranked, restaurants)

	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].SeenAt.Equal(ranked[j].SeenAt) {
			return ranked[i].SeenAt.After(ranked[j].SeenAt)
		}
		ni, nj := strings.ToLower(ranked[i].Name), strings.ToLower(ranked[j].Name)
		if ni != nj {
			return ni < nj
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}
