package favourites

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.False(t, s.IsFavourite("alma"))

	require.NoError(t, s.Set(ctx, "alma", true))
	require.NoError(t, s.Set(ctx, "dosa", true))
	require.NoError(t, s.Set(ctx, "alma", true))
	assert.True(t, s.IsFavourite("alma"))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	ids, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alma", "dosa"}, ids)

	require.NoError(t, reopened.Set(ctx, "alma", false))
	assert.False(t, reopened.IsFavourite("alma"))
	assert.FileExists(t, filepath.Join(dir, FileName))
}

func TestFileStoreKeepsOtherWriters(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a, err := NewFileStore(dir)
	require.NoError(t, err)
	b, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, a.Set(ctx, "alma", true))
	require.NoError(t, b.Set(ctx, "bistro", true))

	ids, err := b.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alma", "bistro"}, ids)
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0600))

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ids, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStoreSetKeepsUnparseableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	original := []byte(`{"version":1,"favourites":{"alma":"2024-01-01T00:00:00Z",}}`)
	require.NoError(t, os.WriteFile(path, original, 0600))

	s, err := NewFileStore(dir)
	require.NoError(t, err)

	err = s.Set(context.Background(), "bistro", true)
	require.ErrorIs(t, err, ErrCorruptFile)
	assert.False(t, s.IsFavourite("bistro"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestFileStoreRejectsEmptyID(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Set(context.Background(), "", true))
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), SQLiteFileName)

	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "alma", true))
	require.NoError(t, s.Set(ctx, "dosa", true))
	require.NoError(t, s.Set(ctx, "alma", false))
	assert.False(t, s.IsFavourite("alma"))
	assert.True(t, s.IsFavourite("dosa"))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.True(t, reopened.IsFavourite("dosa"))

	ids, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dosa"}, ids)
}

func TestSQLiteStoreInMemory(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{}, ids)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, "", dir)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, BackendSQLite, dir)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, "redis", dir)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

// memStore is a Store whose writes can be made to fail or block.
type memStore struct {
	mu    sync.Mutex
	favs  map[string]bool
	fail  error
	block chan struct{}
	sets  int
}

func newMemStore() *memStore { return &memStore{favs: map[string]bool{}} }

func (m *memStore) IsFavourite(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.favs[id]
}

func (m *memStore) Set(_ context.Context, id string, fav bool) error {
	m.mu.Lock()
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.fail != nil {
		return m.fail
	}
	m.favs[id] = fav
	return nil
}

func (m *memStore) List(context.Context) ([]string, error) { return nil, nil }
func (m *memStore) Close() error                           { return nil }

func (m *memStore) setFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func TestTogglerOptimisticCommit(t *testing.T) {
	store := newMemStore()
	tg := NewToggler(store)

	fav, commit := tg.Toggle("alma")
	assert.True(t, fav)
	assert.True(t, tg.IsFavourite("alma"), "visible before commit")
	assert.False(t, store.IsFavourite("alma"))
	assert.True(t, tg.Pending("alma"))

	require.NoError(t, commit(context.Background()))
	assert.True(t, store.IsFavourite("alma"))
	assert.False(t, tg.Pending("alma"))
	assert.True(t, tg.IsFavourite("alma"))
}

func TestTogglerRollbackOnFailure(t *testing.T) {
	store := newMemStore()
	boom := errors.New("disk full")
	store.setFail(boom)

	var reported []string
	tg := NewToggler(store, WithErrorHandler(func(id string, err error) {
		assert.ErrorIs(t, err, boom)
		reported = append(reported, id)
	}))

	fav, commit := tg.Toggle("alma")
	assert.True(t, fav)

	err := commit(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, tg.IsFavourite("alma"), "rolled back")
	assert.Equal(t, []string{"alma"}, reported)
}

func TestTogglerSupersededFailureKeepsNewerValue(t *testing.T) {
	store := newMemStore()
	store.favs["alma"] = true
	tg := NewToggler(store)

	_, first := tg.Toggle("alma") // false
	fav, second := tg.Toggle("alma")
	assert.True(t, fav)

	store.setFail(errors.New("offline"))
	assert.Error(t, first(context.Background()))
	assert.True(t, tg.IsFavourite("alma"), "newer toggle still pending")
	assert.True(t, tg.Pending("alma"))

	store.setFail(nil)
	require.NoError(t, second(context.Background()))
	assert.True(t, store.IsFavourite("alma"))
	assert.False(t, tg.Pending("alma"))
}

func TestTogglerSkipsOutOfOrderCommit(t *testing.T) {
	store := newMemStore()
	tg := NewToggler(store)

	_, first := tg.Toggle("alma")  // true
	_, second := tg.Toggle("alma") // false

	require.NoError(t, second(context.Background()))
	require.NoError(t, first(context.Background()))

	assert.False(t, store.IsFavourite("alma"))
	assert.Equal(t, 1, store.sets)
}

func TestTogglerSerializesCommitsPerID(t *testing.T) {
	store := newMemStore()
	store.block = make(chan struct{})
	tg := NewToggler(store)

	_, first := tg.Toggle("alma")
	_, second := tg.Toggle("alma")

	done := make(chan error, 2)
	go func() { done <- first(context.Background()) }()
	go func() { done <- second(context.Background()) }()

	close(store.block)
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	assert.False(t, tg.Pending("alma"))
	assert.False(t, store.IsFavourite("alma"), "two toggles cancel out")
}

func TestTogglerSet(t *testing.T) {
	store := newMemStore()
	tg := NewToggler(store)
	ctx := context.Background()

	require.NoError(t, tg.Set(ctx, "alma", true))
	require.NoError(t, tg.Set(ctx, "alma", true))
	assert.Equal(t, 1, store.sets)
	require.NoError(t, tg.Set(ctx, "alma", false))
	assert.False(t, store.IsFavourite("alma"))
}
