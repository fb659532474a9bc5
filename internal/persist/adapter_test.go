package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/kv"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/store"
)

// countingKV records how many batches hit each key.
type countingKV struct {
	kv.Store
	mu     sync.Mutex
	writes map[string]int
	failOn string
}

func newCountingKV() *countingKV {
	return &countingKV{Store: kv.NewMemory(0), writes: make(map[string]int)}
}

func (c *countingKV) SetMany(ctx context.Context, entries map[string][]byte) error {
	c.mu.Lock()
	for k := range entries {
		if k == c.failOn {
			c.mu.Unlock()
			return kv.ErrQuotaExceeded
		}
		c.writes[k]++
	}
	c.mu.Unlock()
	return c.Store.SetMany(ctx, entries)
}

func (c *countingKV) Set(ctx context.Context, key string, value []byte) error {
	return c.SetMany(ctx, map[string][]byte{key: value})
}

func (c *countingKV) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[key]
}

func newAdapter(t *testing.T, backend kv.Store, opts ...Option) (*Adapter, *store.Store) {
	t.Helper()
	st := store.New(nil)
	return New(backend, st, logger.New("error", false), opts...), st
}

func TestPersistWritesTriplet(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	a, st := newAdapter(t, backend)

	_, err := st.AddBookmark("Git", "github.com")
	require.NoError(t, err)
	require.NoError(t, a.Persist(ctx, domain.KindBookmarks))

	primary, err := backend.Get(ctx, "bookmarks")
	require.NoError(t, err)
	backup, err := backend.Get(ctx, "bookmarksBackup")
	require.NoError(t, err)
	stamp, err := backend.Get(ctx, "bookmarksTimestamp")
	require.NoError(t, err)

	assert.Equal(t, primary, backup)
	_, err = time.Parse(time.RFC3339Nano, string(stamp))
	assert.NoError(t, err)
	assert.False(t, a.LastSaved(domain.KindBookmarks).IsZero())
}

func TestAddThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	a, st := newAdapter(t, backend)

	_, err := st.AddBookmark("Git", "github.com")
	require.NoError(t, err)
	require.NoError(t, a.Persist(ctx, domain.KindBookmarks))

	res, err := a.Load(ctx, domain.KindBookmarks)
	require.NoError(t, err)
	assert.Equal(t, SourcePrimary, res.Source)
	bookmarks := res.Items.([]domain.Bookmark)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, "Git", bookmarks[0].Title)
	assert.Equal(t, "https://github.com", bookmarks[0].URL)
}

func TestPersistIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	a, st := newAdapter(t, backend)

	_, err := st.AddNote("n", "body")
	require.NoError(t, err)

	require.NoError(t, a.Persist(ctx, domain.KindNotes))
	first, err := backend.Get(ctx, "notes")
	require.NoError(t, err)

	require.NoError(t, a.Persist(ctx, domain.KindNotes))
	second, err := backend.Get(ctx, "notes")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPersistFailureKeepsMemoryAndSignals(t *testing.T) {
	backend := newCountingKV()
	backend.failOn = "todos"

	var signalled []string
	a, st := newAdapter(t, backend, OnSaveError(func(op string, err error) {
		signalled = append(signalled, op)
		assert.ErrorIs(t, err, domain.ErrStorage)
	}))

	_, err := st.AddTodo("keep me")
	require.NoError(t, err)

	err = a.Persist(context.Background(), domain.KindTodos)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, kv.ErrQuotaExceeded)
	assert.Len(t, st.Todos(), 1)
	assert.Equal(t, []string{"persist todos"}, signalled)
	assert.ErrorIs(t, a.LastError(), domain.ErrStorage)

	backend.failOn = ""
	require.NoError(t, a.Persist(context.Background(), domain.KindTodos))
	assert.NoError(t, a.LastError())
}

func TestLoadMissingKeyIsEmpty(t *testing.T) {
	a, _ := newAdapter(t, kv.NewMemory(0))

	res, err := a.Load(context.Background(), domain.KindTodos)
	require.NoError(t, err)
	assert.Equal(t, SourceNone, res.Source)
	assert.Equal(t, []domain.Todo{}, res.Items)
	assert.NoError(t, res.ParseErr)
}

func TestLoadFallsBackToBackup(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	a, _ := newAdapter(t, backend)

	require.NoError(t, backend.Set(ctx, "notes", []byte(`{broken`)))
	require.NoError(t, backend.Set(ctx, "notesBackup", []byte(`[{"id":3,"title":"saved","content":"x"}]`)))

	res, err := a.Load(ctx, domain.KindNotes)
	require.NoError(t, err)
	assert.Equal(t, SourceBackup, res.Source)
	assert.Error(t, res.ParseErr)
	assert.Equal(t, 1, res.Count)
}

func TestLoadTreatsInvalidEntitiesAsUnreadable(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	a, _ := newAdapter(t, backend)

	require.NoError(t, backend.Set(ctx, "bookmarks", []byte(`[{"id":1,"title":"","url":"x.dev"}]`)))
	require.NoError(t, backend.Set(ctx, "bookmarksBackup", []byte(`[{"id":1,"title":"X","url":"x.dev"}]`)))

	res, err := a.Load(ctx, domain.KindBookmarks)
	require.NoError(t, err)
	assert.Equal(t, SourceBackup, res.Source)
	assert.ErrorIs(t, res.ParseErr, domain.ErrValidation)
	assert.Equal(t, []domain.Bookmark{{ID: 1, Title: "X", URL: "https://x.dev"}}, res.Items)
}

func TestLoadUnreadableEverywhereStartsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	a, _ := newAdapter(t, backend)

	require.NoError(t, backend.Set(ctx, "bookmarks", []byte(`nope`)))

	res, err := a.Load(ctx, domain.KindBookmarks)
	require.NoError(t, err)
	assert.Equal(t, SourceNone, res.Source)
	assert.Error(t, res.ParseErr)
	assert.Equal(t, []domain.Bookmark{}, res.Items)
}

func TestLoadStorageError(t *testing.T) {
	backend := kv.NewMemory(0)
	require.NoError(t, backend.Close())
	a, _ := newAdapter(t, backend)

	_, err := a.Load(context.Background(), domain.KindNotes)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestLoadAllFillsStore(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	writer, src := newAdapter(t, backend)

	_, err := src.AddBookmark("a", "a.dev")
	require.NoError(t, err)
	_, err = src.AddTodo("t")
	require.NoError(t, err)
	src.SetSettings(domain.Settings{Theme: "matrix", Font: "inter"})
	require.NoError(t, writer.PersistAll(ctx))

	reader, dst := newAdapter(t, backend)
	results, err := reader.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, src.Bookmarks()[0].URL, dst.Bookmarks()[0].URL)
	assert.Len(t, dst.Todos(), 1)
	assert.Equal(t, domain.Settings{Theme: "matrix", Font: "inter"}, dst.Settings())
}

func TestSettingsFallbackOnInvalidValues(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	a, _ := newAdapter(t, backend)

	require.NoError(t, backend.Set(ctx, ThemeKey, []byte("vaporwave")))
	got, err := a.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), got)
}

func TestSyncStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, _ := newAdapter(t, kv.NewMemory(0))

	empty, err := a.LoadSyncState(ctx)
	require.NoError(t, err)
	assert.False(t, empty.Enabled)
	assert.Equal(t, domain.ProviderNone, empty.Provider)

	last := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	want := domain.SyncState{Enabled: true, Provider: domain.ProviderCloudDrive, LastSync: last, RemoteFileID: "file-1"}
	require.NoError(t, a.SaveSyncState(ctx, want))

	got, err := a.LoadSyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Enabled, got.Enabled)
	assert.Equal(t, want.Provider, got.Provider)
	assert.Equal(t, want.RemoteFileID, got.RemoteFileID)
	assert.True(t, want.LastSync.Equal(got.LastSync))

	// switching to a provider without a remote file drops the old id
	require.NoError(t, a.SaveSyncState(ctx, domain.SyncState{Enabled: true, Provider: domain.ProviderHTTPServer}))
	got, err = a.LoadSyncState(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.RemoteFileID)
	assert.True(t, want.LastSync.Equal(got.LastSync), "last sync is kept")

	keys, err := a.StoredKeys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{SyncEnabledKey, SyncProviderKey, LastSyncKey}, keys)
}

func TestSnapshotAndRecover(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	a, st := newAdapter(t, backend)

	_, err := st.AddNote("keep", "this")
	require.NoError(t, err)
	st.SetSettings(domain.Settings{Theme: "matrix"})
	require.NoError(t, a.Snapshot(ctx))

	_, err = st.Remove(domain.KindNotes, st.Notes()[0].ID)
	require.NoError(t, err)
	st.SetSettings(domain.DefaultSettings())

	ok, err := a.RecoverFromSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, st.Notes(), 1)
	assert.Equal(t, "keep", st.Notes()[0].Title)
	assert.Equal(t, "matrix", st.Settings().Theme)

	// recovered state is written back to the per-kind keys
	res, err := a.Load(ctx, domain.KindNotes)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestRecoverWithoutSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	a, st := newAdapter(t, backend)
	_, err := st.AddTodo("untouched")
	require.NoError(t, err)

	ok, err := a.RecoverFromSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Set(ctx, SnapshotKey, []byte(`garbage`)))
	ok, err = a.RecoverFromSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, st.Todos(), 1)
}

func TestSnapshotFailureIsStorageError(t *testing.T) {
	a, _ := newAdapter(t, kv.NewMemory(8))
	err := a.Snapshot(context.Background())
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

// stallingKV never completes a write until the context gives up.
type stallingKV struct{ kv.Store }

func (stallingKV) SetMany(ctx context.Context, _ map[string][]byte) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDebouncedSaveIsBounded(t *testing.T) {
	var mu sync.Mutex
	var saveErr error
	a, st := newAdapter(t, stallingKV{Store: kv.NewMemory(0)},
		WithDebounce(time.Hour),
		WithSaveTimeout(30*time.Millisecond),
		OnSaveError(func(_ string, err error) {
			mu.Lock()
			saveErr = err
			mu.Unlock()
		}))

	_, err := st.AddNote("draft", "text")
	require.NoError(t, err)
	a.Touch(domain.KindNotes)

	start := time.Now()
	a.Flush()
	assert.Less(t, time.Since(start), 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, saveErr, domain.ErrStorage)
	assert.ErrorIs(t, saveErr, context.DeadlineExceeded)
	assert.Len(t, st.Notes(), 1, "memory keeps the edit")
}
