// Package persist writes the entity store to durable local key-value storage.
//
// Every collection is kept as a triplet of keys (primary, backup, timestamp).
// A combined snapshot of all collections and settings is written separately so
// that a single read can restore everything.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/kv"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/store"
)

// DefaultSaveTimeout bounds a debounced write.
const DefaultSaveTimeout = 10 * time.Second

// Source tells which key a Load was served from.
type Source string

const (
	SourcePrimary Source = "primary"
	SourceBackup  Source = "backup"
	SourceNone    Source = "none"
)

// LoadResult is the outcome of reading one collection.
// ParseErr is set when the primary key held unreadable JSON, even if the
// backup could be used instead.
type LoadResult struct {
	Kind     domain.Kind
	Items    any
	Count    int
	Source   Source
	ParseErr error
}

// Adapter persists a store.Store into a kv.Store.
type Adapter struct {
	kv       kv.Store
	store    *store.Store
	logger   logger.Logger
	now      func() time.Time
	debounce *Debouncer

	// saveTimeout bounds writes that no request context covers
	saveTimeout time.Duration

	mu          sync.Mutex
	lastErr     error
	lastSaved   map[domain.Kind]time.Time
	onSaveError func(op string, err error)
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(a *Adapter) { a.now = now } }

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(a *Adapter) { a.debounce = NewDebouncer(d, a.persistDebounced) }
}

// WithSaveTimeout overrides DefaultSaveTimeout.
func WithSaveTimeout(d time.Duration) Option { return func(a *Adapter) { a.saveTimeout = d } }

// OnSaveError registers the save-error signal. It is called for every failed
// write, after the failure has been logged.
func OnSaveError(fn func(op string, err error)) Option {
	return func(a *Adapter) { a.onSaveError = fn }
}

// New wires the adapter. The store is the only source of truth; the adapter
// never keeps references into it.
func New(kvStore kv.Store, st *store.Store, log logger.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		kv:        kvStore,
		store:     st,
		logger:    log.Named("persist"),
		now:       time.Now,
		lastSaved: make(map[domain.Kind]time.Time),

		saveTimeout: DefaultSaveTimeout,
	}
	a.debounce = NewDebouncer(DefaultDebounce, a.persistDebounced)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Persist writes the primary, backup and timestamp keys of kind in one batch.
// A failure is reported through the save-error signal and returned as a
// storage error; the in-memory state is never touched.
func (a *Adapter) Persist(ctx context.Context, kind domain.Kind) error {
	items, err := a.store.Collection(kind)
	if err != nil {
		return err
	}
	data, err := json.Marshal(items)
	if err != nil {
		return a.fail("persist "+kind.String(), fmt.Errorf("encode: %w", err))
	}

	now := a.now()
	err = a.kv.SetMany(ctx, map[string][]byte{
		PrimaryKey(kind):   data,
		BackupKey(kind):    data,
		TimestampKey(kind): []byte(now.UTC().Format(time.RFC3339Nano)),
	})
	if err != nil {
		return a.fail("persist "+kind.String(), err)
	}

	a.mu.Lock()
	a.lastSaved[kind] = now
	a.lastErr = nil
	a.mu.Unlock()

	a.logger.Debug("collection persisted",
		logger.String("kind", kind.String()),
		logger.Int("bytes", len(data)))
	return nil
}

// PersistAll writes every collection and the settings. It keeps going after a
// failure and returns the first error.
func (a *Adapter) PersistAll(ctx context.Context) error {
	var first error
	for _, kind := range domain.Kinds {
		if err := a.Persist(ctx, kind); err != nil && first == nil {
			first = err
		}
	}
	if err := a.PersistSettings(ctx); err != nil && first == nil {
		first = err
	}
	return first
}

// Touch schedules a debounced Persist of kind. Used for free-text edits.
func (a *Adapter) Touch(kind domain.Kind) {
	a.debounce.Touch(string(kind))
}

// Flush writes every pending debounced collection now.
func (a *Adapter) Flush() {
	a.debounce.Flush()
}

// Close flushes pending writes and stops accepting debounced ones.
func (a *Adapter) Close() {
	a.debounce.Stop()
}

func (a *Adapter) persistDebounced(key string) {
	kind, err := domain.ParseKind(key)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.saveTimeout)
	defer cancel()
	// failures already go through the save-error signal
	_ = a.Persist(ctx, kind)
}

// Load reads the primary key of kind. Unreadable JSON falls back to the
// backup key; the result always says which source was used.
func (a *Adapter) Load(ctx context.Context, kind domain.Kind) (LoadResult, error) {
	res := LoadResult{Kind: kind, Source: SourceNone}

	data, err := a.kv.Get(ctx, PrimaryKey(kind))
	switch {
	case errors.Is(err, kv.ErrKeyNotFound):
		res.Items, res.Count, _ = decodeKind(kind, nil)
		return res, nil
	case err != nil:
		return res, domain.Storage("load "+kind.String(), err)
	}

	items, n, perr := decodeKind(kind, data)
	if perr == nil {
		res.Items, res.Count, res.Source = items, n, SourcePrimary
		return res, nil
	}
	res.ParseErr = perr

	backup, err := a.kv.Get(ctx, BackupKey(kind))
	if err == nil {
		if items, n, berr := decodeKind(kind, backup); berr == nil {
			a.logger.Warn("primary key unreadable, loaded backup copy",
				logger.String("kind", kind.String()),
				logger.Error(perr))
			res.Items, res.Count, res.Source = items, n, SourceBackup
			return res, nil
		}
	}

	a.logger.Error("collection unreadable, starting empty",
		logger.String("kind", kind.String()),
		logger.Error(perr))
	res.Items, res.Count, _ = decodeKind(kind, nil)
	return res, nil
}

// LoadAll loads every collection and the settings into the store.
func (a *Adapter) LoadAll(ctx context.Context) ([]LoadResult, error) {
	results := make([]LoadResult, 0, len(domain.Kinds))
	for _, kind := range domain.Kinds {
		res, err := a.Load(ctx, kind)
		if err != nil {
			return results, err
		}
		if err := a.store.ReplaceKind(kind, res.Items); err != nil {
			return results, err
		}
		results = append(results, res)
	}

	settings, err := a.LoadSettings(ctx)
	if err != nil {
		return results, err
	}
	a.store.SetSettings(settings)
	return results, nil
}

// PersistSettings writes theme and font as raw strings.
func (a *Adapter) PersistSettings(ctx context.Context) error {
	s := a.store.Settings()
	err := a.kv.SetMany(ctx, map[string][]byte{
		ThemeKey: []byte(s.Theme),
		FontKey:  []byte(s.Font),
	})
	if err != nil {
		return a.fail("persist settings", err)
	}
	return nil
}

// LoadSettings reads theme and font; unset or unknown values fall back to defaults.
func (a *Adapter) LoadSettings(ctx context.Context) (domain.Settings, error) {
	theme, err := a.getString(ctx, ThemeKey)
	if err != nil {
		return domain.DefaultSettings(), domain.Storage("load settings", err)
	}
	font, err := a.getString(ctx, FontKey)
	if err != nil {
		return domain.DefaultSettings(), domain.Storage("load settings", err)
	}
	return domain.Settings{Theme: theme, Font: font}.Normalize(), nil
}

// SaveSyncState records whether remote sync is on and against which provider.
func (a *Adapter) SaveSyncState(ctx context.Context, st domain.SyncState) error {
	entries := map[string][]byte{
		SyncEnabledKey:  []byte(strconv.FormatBool(st.Enabled)),
		SyncProviderKey: []byte(st.Provider),
	}
	if st.RemoteFileID != "" {
		entries[RemoteFileKey] = []byte(st.RemoteFileID)
	}
	if !st.LastSync.IsZero() {
		entries[LastSyncKey] = []byte(st.LastSync.UTC().Format(time.RFC3339Nano))
	}
	if err := a.kv.SetMany(ctx, entries); err != nil {
		return a.fail("persist sync state", err)
	}
	// a provider without a remote file must not inherit the previous one's id
	if st.RemoteFileID == "" {
		if err := a.kv.Delete(ctx, RemoteFileKey); err != nil && !errors.Is(err, kv.ErrKeyNotFound) {
			return a.fail("persist sync state", err)
		}
	}
	return nil
}

// StoredKeys lists every key currently held by local storage.
func (a *Adapter) StoredKeys(ctx context.Context) ([]string, error) {
	keys, err := a.kv.Keys(ctx)
	if err != nil {
		return nil, domain.Storage("list keys", err)
	}
	return keys, nil
}

// LoadSyncState reads the persisted sync state. Missing keys mean "disabled".
func (a *Adapter) LoadSyncState(ctx context.Context) (domain.SyncState, error) {
	st := domain.SyncState{Provider: domain.ProviderNone}

	enabled, err := a.getString(ctx, SyncEnabledKey)
	if err != nil {
		return st, domain.Storage("load sync state", err)
	}
	st.Enabled, _ = strconv.ParseBool(enabled)

	provider, err := a.getString(ctx, SyncProviderKey)
	if err != nil {
		return st, domain.Storage("load sync state", err)
	}
	if st.Provider, err = domain.ParseProvider(provider); err != nil {
		a.logger.Warn("unknown persisted provider, sync disabled", logger.String("provider", provider))
		st.Enabled = false
	}

	if st.RemoteFileID, err = a.getString(ctx, RemoteFileKey); err != nil {
		return st, domain.Storage("load sync state", err)
	}

	last, err := a.getString(ctx, LastSyncKey)
	if err != nil {
		return st, domain.Storage("load sync state", err)
	}
	if last != "" {
		st.LastSync, _ = time.Parse(time.RFC3339Nano, last)
	}
	return st, nil
}

// Snapshot writes every collection plus settings under SnapshotKey.
func (a *Adapter) Snapshot(ctx context.Context) error {
	snap := a.store.Snapshot().EnsureCollections()
	snap.Timestamp = a.now()

	data, err := json.Marshal(snap)
	if err != nil {
		return a.fail("snapshot", fmt.Errorf("encode: %w", err))
	}
	if err := a.kv.Set(ctx, SnapshotKey, data); err != nil {
		return a.fail("snapshot", err)
	}
	a.logger.Debug("full snapshot written", logger.Int("bytes", len(data)))
	return nil
}

// RecoverFromSnapshot replaces the store with the combined snapshot.
// It returns false, leaving the store untouched, when no readable snapshot exists.
func (a *Adapter) RecoverFromSnapshot(ctx context.Context) (bool, error) {
	data, err := a.kv.Get(ctx, SnapshotKey)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, domain.Storage("recover", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		a.logger.Warn("snapshot unreadable, nothing recovered", logger.Error(err))
		return false, nil
	}

	if err := a.store.Replace(snap); err != nil {
		a.logger.Warn("snapshot holds invalid entries, nothing recovered", logger.Error(err))
		return false, nil
	}
	a.logger.Info("store recovered from snapshot",
		logger.Time("snapshot_time", snap.Timestamp),
		logger.Int("bookmarks", len(snap.Bookmarks)),
		logger.Int("notes", len(snap.Notes)),
		logger.Int("todos", len(snap.Todos)))

	if err := a.PersistAll(ctx); err != nil {
		a.logger.Warn("recovered state could not be written back", logger.Error(err))
	}
	return true, nil
}

// LastError returns the most recent save error, cleared by the next successful Persist.
func (a *Adapter) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// LastSaved returns when kind was last written successfully.
func (a *Adapter) LastSaved(kind domain.Kind) time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSaved[kind]
}

func (a *Adapter) fail(op string, err error) error {
	wrapped := domain.Storage(op, err)

	a.mu.Lock()
	a.lastErr = wrapped
	cb := a.onSaveError
	a.mu.Unlock()

	a.logger.Error("local save failed", logger.String("op", op), logger.Error(err))
	if cb != nil {
		cb(op, wrapped)
	}
	return wrapped
}

func (a *Adapter) getString(ctx context.Context, key string) (string, error) {
	v, err := a.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// decodeKind decodes data into the slice type of kind and checks every entity.
// nil data yields an empty slice.
func decodeKind(kind domain.Kind, data []byte) (any, int, error) {
	switch kind {
	case domain.KindBookmarks:
		return decode(data, domain.CleanBookmarks)
	case domain.KindNotes:
		return decode(data, domain.CleanNotes)
	case domain.KindTodos:
		return decode(data, domain.CleanTodos)
	}
	return nil, 0, fmt.Errorf("unknown collection %q", kind)
}

func decode[T any](data []byte, clean func([]T) ([]T, error)) (any, int, error) {
	items := []T{}
	if data == nil {
		return items, 0, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return []T{}, 0, err
	}
	items, err := clean(items)
	if err != nil {
		return []T{}, 0, err
	}
	return items, len(items), nil
}
