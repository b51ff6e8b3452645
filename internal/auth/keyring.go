package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	serviceName     = "lunchbox"
	credentialsFile = "credentials.json"

	// NoKeyringEnv disables the system keyring when set.
	NoKeyringEnv = "LUNCHBOX_NO_KEYRING"
)

// ErrNoCredentials is returned when no API key is stored for an origin.
var ErrNoCredentials = errors.New("credentials not found")

// Credentials holds an API key and when it was saved.
type Credentials struct {
	APIKey  string    `json:"api_key"`
	SavedAt time.Time `json:"saved_at"`
}

// backend stores one JSON-encoded Credentials value per origin.
type backend interface {
	get(origin string) (*Credentials, error)
	set(origin string, creds *Credentials) error
	remove(origin string) error
}

// Store keeps API keys in the system keyring, or in a 0600 JSON file
// when no keyring is available.
type Store struct {
	backend backend
	file    *fileBackend
}

func newStore(useKeyring bool, dir string) *Store {
	s := &Store{file: &fileBackend{dir: dir}}
	s.backend = s.file
	if useKeyring {
		s.backend = keyringBackend{}
	}
	return s
}

// NewStore creates a credential store. It probes the keyring once; on
// success any keys left in the plaintext file move into the keyring. On
// failure a warning naming the file goes to warn.
func NewStore(fallbackDir string, warn io.Writer) *Store {
	if os.Getenv(NoKeyringEnv) != "" {
		return newStore(false, fallbackDir)
	}

	const probe = "lunchbox::probe"
	if err := keyring.Set(serviceName, probe, "probe"); err != nil {
		if warn != nil {
			fmt.Fprintf(warn, "warning: system keyring unavailable, API key stored in plaintext at %s\n",
				filepath.Join(fallbackDir, credentialsFile))
		}
		return newStore(false, fallbackDir)
	}
	_ = keyring.Delete(serviceName, probe)

	s := newStore(true, fallbackDir)
	if err := s.MigrateToKeyring(); err != nil && warn != nil {
		fmt.Fprintf(warn, "warning: %v\n", err)
	}
	return s
}

// Load retrieves credentials for the given origin.
func (s *Store) Load(origin string) (*Credentials, error) { return s.backend.get(origin) }

// Save stores credentials for the given origin.
func (s *Store) Save(origin string, creds *Credentials) error { return s.backend.set(origin, creds) }

// Delete removes credentials for the given origin. Deleting missing
// credentials is not an error.
func (s *Store) Delete(origin string) error { return s.backend.remove(origin) }

// UsingKeyring reports whether keys live in the system keyring.
func (s *Store) UsingKeyring() bool {
	_, ok := s.backend.(keyringBackend)
	return ok
}

// MigrateToKeyring moves keys from the plaintext file into the keyring and
// removes the file. It does nothing without a keyring.
func (s *Store) MigrateToKeyring() error {
	if !s.UsingKeyring() {
		return nil
	}
	all, err := s.file.readAll()
	if err != nil || len(all) == 0 {
		return nil //nolint:nilerr // an unreadable file has nothing to migrate
	}
	for origin, creds := range all {
		if err := s.backend.set(origin, creds); err != nil {
			return fmt.Errorf("migrate API key for %s to keyring: %w", origin, err)
		}
	}
	_ = os.Remove(s.file.path())
	return nil
}

type keyringBackend struct{}

func keyringKey(origin string) string { return "lunchbox::" + origin }

func (keyringBackend) get(origin string) (*Credentials, error) {
	data, err := keyring.Get(serviceName, keyringKey(origin))
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return nil, ErrNoCredentials
	case err != nil:
		return nil, fmt.Errorf("read keyring: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}
	return &creds, nil
}

func (keyringBackend) set(origin string, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, keyringKey(origin), string(data))
}

func (keyringBackend) remove(origin string) error {
	if err := keyring.Delete(serviceName, keyringKey(origin)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// fileBackend keeps every origin's credentials in one JSON object.
type fileBackend struct {
	dir string
}

func (f *fileBackend) path() string { return filepath.Join(f.dir, credentialsFile) }

func (f *fileBackend) readAll() (map[string]*Credentials, error) {
	all := make(map[string]*Credentials)
	data, err := os.ReadFile(f.path())
	if errors.Is(err, os.ErrNotExist) {
		return all, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path(), err)
	}
	if all == nil {
		all = make(map[string]*Credentials)
	}
	return all, nil
}

func (f *fileBackend) writeAll(all map[string]*Credentials) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, "credentials-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if runtime.GOOS == "windows" {
		_ = os.Remove(f.path())
	}
	if err := os.Rename(tmpPath, f.path()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (f *fileBackend) get(origin string) (*Credentials, error) {
	all, err := f.readAll()
	if err != nil {
		return nil, err
	}
	if creds := all[origin]; creds != nil {
		return creds, nil
	}
	return nil, ErrNoCredentials
}

func (f *fileBackend) set(origin string, creds *Credentials) error {
	all, err := f.readAll()
	if err != nil {
		return err
	}
	all[origin] = creds
	return f.writeAll(all)
}

func (f *fileBackend) remove(origin string) error {
	all, err := f.readAll()
	if err != nil {
		return err
	}
	if _, ok := all[origin]; !ok {
		return nil
	}
	delete(all, origin)
	return f.writeAll(all)
}
