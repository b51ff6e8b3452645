package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/lunchbox/lunchbox-cli/internal/config"
	"github.com/lunchbox/lunchbox-cli/internal/output"
)

func fileStore(t *testing.T) *Store {
	t.Helper()
	return newStore(false, t.TempDir())
}

func newTestManager(t *testing.T, store *Store) *Manager {
	t.Helper()
	t.Setenv(APIKeyEnv, "")
	cfg := config.Default()
	cfg.BaseURL = "https://api.example.com/"
	m := NewManager(cfg, store)
	m.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func TestNewStoreWithoutKeyring(t *testing.T) {
	t.Setenv(NoKeyringEnv, "1")
	store := NewStore(t.TempDir(), nil)
	require.NotNil(t, store)
	assert.False(t, store.UsingKeyring())
}

func TestNewStoreWithMockKeyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv(NoKeyringEnv, "")
	store := NewStore(t.TempDir(), nil)
	assert.True(t, store.UsingKeyring())
}

func TestNewStoreWarnsOnKeyringFailure(t *testing.T) {
	keyring.MockInitWithError(errors.New("no dbus"))
	t.Cleanup(keyring.MockInit)
	t.Setenv(NoKeyringEnv, "")

	var warn bytes.Buffer
	store := NewStore(t.TempDir(), &warn)
	assert.False(t, store.UsingKeyring())
	assert.Contains(t, warn.String(), "keyring unavailable")
}

func TestStoreFileBackend(t *testing.T) {
	store := fileStore(t)
	origin := "https://api.example.com"
	creds := &Credentials{APIKey: "secret-key", SavedAt: time.Now().UTC().Truncate(time.Second)}

	require.NoError(t, store.Save(origin, creds))

	info, err := os.Stat(store.file.path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load(origin)
	require.NoError(t, err)
	assert.Equal(t, creds.APIKey, loaded.APIKey)
	assert.True(t, creds.SavedAt.Equal(loaded.SavedAt))
}

func TestStoreMultipleOrigins(t *testing.T) {
	store := fileStore(t)
	require.NoError(t, store.Save("https://one.example.com", &Credentials{APIKey: "one"}))
	require.NoError(t, store.Save("https://two.example.com", &Credentials{APIKey: "two"}))

	one, err := store.Load("https://one.example.com")
	require.NoError(t, err)
	assert.Equal(t, "one", one.APIKey)

	two, err := store.Load("https://two.example.com")
	require.NoError(t, err)
	assert.Equal(t, "two", two.APIKey)
}

func TestStoreDelete(t *testing.T) {
	store := fileStore(t)
	origin := "https://api.example.com"
	require.NoError(t, store.Save(origin, &Credentials{APIKey: "k"}))

	require.NoError(t, store.Delete(origin))
	_, err := store.Load(origin)
	assert.ErrorIs(t, err, ErrNoCredentials)

	assert.NoError(t, store.Delete(origin), "deleting twice is fine")
}

func TestStoreLoadMissing(t *testing.T) {
	_, err := fileStore(t).Load("https://nonexistent.example.com")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestStoreKeyringBackend(t *testing.T) {
	keyring.MockInit()
	store := newStore(true, t.TempDir())
	origin := "https://api.example.com"

	_, err := store.Load(origin)
	assert.ErrorIs(t, err, ErrNoCredentials)

	require.NoError(t, store.Save(origin, &Credentials{APIKey: "from-keyring"}))
	creds, err := store.Load(origin)
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", creds.APIKey)

	require.NoError(t, store.Delete(origin))
	assert.NoError(t, store.Delete(origin))
}

func TestMigrateToKeyring(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	plain := newStore(false, dir)
	require.NoError(t, plain.Save("https://api.example.com", &Credentials{APIKey: "migrate-me"}))

	store := newStore(true, dir)
	require.NoError(t, store.MigrateToKeyring())

	creds, err := store.Load("https://api.example.com")
	require.NoError(t, err)
	assert.Equal(t, "migrate-me", creds.APIKey)

	_, err = os.Stat(filepath.Join(dir, "credentials.json"))
	assert.True(t, os.IsNotExist(err), "plaintext file removed")
}

func TestNewStoreMigratesPlaintextKeys(t *testing.T) {
	keyring.MockInit()
	t.Setenv(NoKeyringEnv, "")
	dir := t.TempDir()
	require.NoError(t, newStore(false, dir).Save("https://api.example.com", &Credentials{APIKey: "old-file-key"}))

	store := NewStore(dir, nil)
	require.True(t, store.UsingKeyring())

	creds, err := store.Load("https://api.example.com")
	require.NoError(t, err)
	assert.Equal(t, "old-file-key", creds.APIKey)
}

func TestStoreCorruptFile(t *testing.T) {
	store := fileStore(t)
	require.NoError(t, os.WriteFile(store.file.path(), []byte("{nope"), 0o600))

	_, err := store.Load("https://api.example.com")
	assert.Error(t, err)
}

func TestKeyFunction(t *testing.T) {
	assert.Equal(t, "lunchbox::https://api.yelp.com", keyringKey("https://api.yelp.com"))
}

func TestManagerLoginAndAPIKey(t *testing.T) {
	m := newTestManager(t, fileStore(t))
	assert.Equal(t, "https://api.example.com", m.Origin())

	_, err := m.APIKey()
	var e *output.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, output.CodeAuth, e.Code)

	require.NoError(t, m.Login("  abc123xyz  "))
	key, err := m.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "abc123xyz", key)
}

func TestManagerLoginRejectsEmptyKey(t *testing.T) {
	m := newTestManager(t, fileStore(t))
	err := m.Login("   ")
	var e *output.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, output.CodeUsage, e.Code)
}

func TestManagerEnvKeyWins(t *testing.T) {
	m := newTestManager(t, fileStore(t))
	require.NoError(t, m.Login("stored-key"))
	t.Setenv(APIKeyEnv, "env-key-1234")

	key, err := m.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "env-key-1234", key)

	st, err := m.Status()
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.Equal(t, SourceEnv, st.Source)
	assert.Equal(t, "********1234", st.Key)
}

func TestManagerStatusAndLogout(t *testing.T) {
	m := newTestManager(t, fileStore(t))

	st, err := m.Status()
	require.NoError(t, err)
	assert.False(t, st.Authenticated)
	assert.Equal(t, "https://api.example.com", st.Origin)

	require.NoError(t, m.Login("abcdefgh"))
	st, err = m.Status()
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.Equal(t, SourceFile, st.Source)
	assert.Equal(t, "********efgh", st.Key)
	require.NotNil(t, st.SavedAt)
	assert.Equal(t, 2026, st.SavedAt.Year())

	require.NoError(t, m.Logout())
	st, err = m.Status()
	require.NoError(t, err)
	assert.False(t, st.Authenticated)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", MaskKey(""))
	assert.Equal(t, "***", MaskKey("abc"))
	assert.Equal(t, "********5678", MaskKey("12345678"))
}
