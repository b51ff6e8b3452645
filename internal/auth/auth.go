// Package auth manages the search API key.
package auth

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lunchbox/lunchbox-cli/internal/config"
	"github.com/lunchbox/lunchbox-cli/internal/output"
)

// APIKeyEnv overrides any stored key.
const APIKeyEnv = "LUNCHBOX_API_KEY"

// Key sources reported by Status.
const (
	SourceEnv     = "env"
	SourceKeyring = "keyring"
	SourceFile    = "file"
)

// Manager resolves the API key for the configured base URL.
type Manager struct {
	origin string
	store  *Store

	mu  sync.Mutex
	now func() time.Time
}

// NewManager creates an auth manager for cfg's base URL.
func NewManager(cfg *config.Config, store *Store) *Manager {
	return &Manager{
		origin: config.NormalizeBaseURL(cfg.BaseURL),
		store:  store,
		now:    time.Now,
	}
}

// Origin is the base URL keys are stored under.
func (m *Manager) Origin() string { return m.origin }

// APIKey returns the key to send with search requests. LUNCHBOX_API_KEY
// wins over any stored key.
func (m *Manager) APIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		return key, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load(m.origin)
	if errors.Is(err, ErrNoCredentials) {
		return "", output.ErrAuth("No API key configured")
	}
	if err != nil {
		return "", output.ErrStorage("read API key", err)
	}
	return creds.APIKey, nil
}

// Login stores key for the configured origin.
func (m *Manager) Login(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return output.ErrUsage("API key must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(m.origin, &Credentials{APIKey: key, SavedAt: m.now().UTC()}); err != nil {
		return output.ErrStorage("save API key", err)
	}
	return nil
}

// Logout removes the stored key. It does not affect LUNCHBOX_API_KEY.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(m.origin); err != nil {
		return output.ErrStorage("delete API key", err)
	}
	return nil
}

// Status describes the active key without revealing it.
type Status struct {
	Authenticated bool       `json:"authenticated"`
	Origin        string     `json:"origin"`
	Source        string     `json:"source,omitempty"`
	Key           string     `json:"key,omitempty"`
	SavedAt       *time.Time `json:"saved_at,omitempty"`
}

// Status reports whether a key is available and where it comes from.
func (m *Manager) Status() (Status, error) {
	st := Status{Origin: m.origin}
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		st.Authenticated = true
		st.Source = SourceEnv
		st.Key = MaskKey(key)
		return st, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load(m.origin)
	if errors.Is(err, ErrNoCredentials) {
		return st, nil
	}
	if err != nil {
		return st, output.ErrStorage("read API key", err)
	}

	st.Authenticated = true
	st.Source = SourceFile
	if m.store.UsingKeyring() {
		st.Source = SourceKeyring
	}
	st.Key = MaskKey(creds.APIKey)
	if !creds.SavedAt.IsZero() {
		saved := creds.SavedAt
		st.SavedAt = &saved
	}
	return st, nil
}

// MaskKey keeps the last four characters of key.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}
