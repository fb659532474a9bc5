// Package syncer drives remote synchronization: it owns the sync state
// machine, the periodic sync timer and the manual sync and restore actions.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/persist"
	"github.com/MrSnakeDoc/dashsync/internal/remote"
	"github.com/MrSnakeDoc/dashsync/internal/store"
)

// State of the orchestrator.
type State string

const (
	StateDisabled     State = "disabled"
	StateInitializing State = "initializing"
	StateEnabled      State = "enabled"
	StateSyncing      State = "syncing"
)

// Default periodic sync intervals.
const (
	DefaultHTTPServerInterval = 5 * time.Minute
	DefaultCloudDriveInterval = 30 * time.Minute
)

var (
	ErrNotEnabled     = errors.New("sync is not enabled")
	ErrSyncInProgress = errors.New("a sync is already running")
	// ErrDiscarded is returned when sync was disabled while the call was in flight.
	ErrDiscarded = errors.New("sync was disabled, result ignored")
)

// Factory builds the adapter for provider. prev is the persisted sync state,
// which lets providers pick up a remembered remote file id.
type Factory func(ctx context.Context, provider domain.Provider, prev domain.SyncState) (remote.Adapter, error)

// Origin tells where Load got its data from.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
)

// Status is the user-facing view of sync.
type Status struct {
	Enabled      bool            `json:"enabled"`
	Provider     domain.Provider `json:"provider"`
	State        State           `json:"state"`
	LastSync     time.Time       `json:"lastSync,omitzero"`
	NextSync     time.Time       `json:"nextSync,omitzero"`
	LastError    string          `json:"lastError,omitempty"`
	RemoteFileID string          `json:"remoteFileId,omitempty"`
}

// Orchestrator implements the Disabled → Initializing → Enabled ⇄ Syncing
// state machine on top of a remote.Adapter.
type Orchestrator struct {
	store     *store.Store
	persist   *persist.Adapter
	factory   Factory
	logger    logger.Logger
	now       func() time.Time
	intervals map[domain.Provider]time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    State
	provider domain.Provider
	adapter  remote.Adapter
	lastSync time.Time
	nextSync time.Time
	lastErr  error
	// gen is bumped by every Enable and Disable. A call that started under an
	// older generation drops its result.
	gen     uint64
	stopCh  chan struct{}
	trigger chan struct{}
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithInterval overrides the periodic sync interval of provider.
func WithInterval(provider domain.Provider, d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.intervals[provider] = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// New returns a disabled orchestrator.
func New(st *store.Store, p *persist.Adapter, factory Factory, log logger.Logger, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:   st,
		persist: p,
		factory: factory,
		logger:  log.Named("sync"),
		now:     time.Now,
		intervals: map[domain.Provider]time.Duration{
			domain.ProviderHTTPServer: DefaultHTTPServerInterval,
			domain.ProviderCloudDrive: DefaultCloudDriveInterval,
		},
		ctx:      ctx,
		cancel:   cancel,
		state:    StateDisabled,
		provider: domain.ProviderNone,
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enable initializes provider and starts the periodic timer. On failure the
// orchestrator falls back to Disabled and local persistence keeps working.
// Enabling ProviderNone is the same as Disable.
func (o *Orchestrator) Enable(ctx context.Context, provider domain.Provider) error {
	if provider == domain.ProviderNone {
		return o.Disable(ctx)
	}

	prev, err := o.persist.LoadSyncState(ctx)
	if err != nil {
		o.logger.Warn("could not read previous sync state", logger.Error(err))
	}
	if prev.Provider != provider {
		prev = domain.SyncState{Provider: provider}
	}

	o.mu.Lock()
	o.stopTimerLocked()
	o.gen++
	gen := o.gen
	o.state = StateInitializing
	o.provider = provider
	o.adapter = nil
	if !prev.LastSync.IsZero() {
		o.lastSync = prev.LastSync
	}
	o.mu.Unlock()

	o.logger.Info("enabling sync", logger.String("provider", string(provider)))

	adapter, err := o.factory(ctx, provider, prev)
	if err == nil {
		err = adapter.Initialize(ctx)
	}

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return ErrDiscarded
	}
	if err != nil {
		o.state = StateDisabled
		o.provider = domain.ProviderNone
		o.lastErr = err
		o.mu.Unlock()

		o.logger.Warn("sync provider failed to initialize, staying local-only",
			logger.String("provider", string(provider)),
			logger.Error(err))
		o.saveState(ctx, domain.SyncState{Enabled: false, Provider: provider})
		return fmt.Errorf("enable %s: %w", provider, err)
	}
	o.state = StateEnabled
	o.adapter = adapter
	o.lastErr = nil
	interval := o.intervals[provider]
	o.startTimerLocked(gen, interval)
	state := o.syncStateLocked()
	o.mu.Unlock()

	o.saveState(ctx, state)
	o.logger.Info("sync enabled",
		logger.String("provider", string(provider)),
		logger.Duration("interval", interval))
	return nil
}

// Disable stops the timer and records enabled=false. Calls already in flight
// run to completion but their results are ignored.
func (o *Orchestrator) Disable(ctx context.Context) error {
	o.mu.Lock()
	o.stopTimerLocked()
	o.gen++
	provider := o.provider
	o.state = StateDisabled
	o.provider = domain.ProviderNone
	o.adapter = nil
	o.nextSync = time.Time{}
	last := o.lastSync
	o.mu.Unlock()

	o.logger.Info("sync disabled", logger.String("provider", string(provider)))
	return o.persist.SaveSyncState(ctx, domain.SyncState{Enabled: false, Provider: provider, LastSync: last})
}

// SyncNow uploads the current state. The periodic timer keeps running
// whatever the outcome.
func (o *Orchestrator) SyncNow(ctx context.Context) error {
	return o.sync(ctx, 0)
}

// Trigger asks the timer goroutine for a sync without waiting for it.
// It reports false when sync is off or a trigger is already queued.
func (o *Orchestrator) Trigger() bool {
	o.mu.Lock()
	running := o.stopCh != nil
	o.mu.Unlock()
	if !running {
		return false
	}
	select {
	case o.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// sync runs one upload. A non-zero want restricts it to that generation,
// which is how timer ticks from a previous Enable are dropped.
func (o *Orchestrator) sync(ctx context.Context, want uint64) error {
	adapter, gen, err := o.begin(want)
	if err != nil {
		return err
	}

	snap := o.store.Snapshot()
	ack, err := adapter.Upload(ctx, snap)

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		o.logger.Info("upload finished after sync was disabled, ignoring result")
		return ErrDiscarded
	}
	o.state = StateEnabled
	if err != nil {
		o.lastErr = err
		o.mu.Unlock()
		o.logger.Error("sync upload failed", logger.Error(err))
		return err
	}
	o.lastSync = ack.At
	o.lastErr = nil
	state := o.syncStateLocked()
	o.mu.Unlock()

	o.saveState(ctx, state)
	o.logger.Info("sync completed",
		logger.Int("bookmarks", len(snap.Bookmarks)),
		logger.Int("notes", len(snap.Notes)),
		logger.Int("todos", len(snap.Todos)))
	return nil
}

// Restore replaces local state with the remote copy. It returns false when
// the remote side has nothing yet; local state is untouched on any failure.
func (o *Orchestrator) Restore(ctx context.Context) (bool, error) {
	adapter, gen, err := o.begin(0)
	if err != nil {
		return false, err
	}

	snap, err := adapter.Download(ctx)

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return false, ErrDiscarded
	}
	o.state = StateEnabled
	switch {
	case errors.Is(err, domain.ErrNotFound):
		o.mu.Unlock()
		o.logger.Info("no remote data to restore")
		return false, nil
	case err != nil:
		o.lastErr = err
		o.mu.Unlock()
		o.logger.Error("restore failed", logger.Error(err))
		return false, err
	}
	o.lastErr = nil
	o.mu.Unlock()

	if err := o.apply(ctx, snap); err != nil {
		o.logger.Error("remote data rejected, local state kept", logger.Error(err))
		return false, err
	}
	return true, nil
}

// Load fills the store at startup. When sync is enabled the remote copy wins;
// on any remote failure local storage is used.
func (o *Orchestrator) Load(ctx context.Context) (Origin, error) {
	o.mu.Lock()
	adapter := o.adapter
	enabled := o.state == StateEnabled
	o.mu.Unlock()

	if enabled && adapter != nil {
		snap, err := adapter.Download(ctx)
		if err == nil {
			err = o.apply(ctx, snap)
		}
		if err == nil {
			return OriginRemote, nil
		}
		o.logger.Warn("remote load failed, using local storage", logger.Error(err))
	}

	if _, err := o.persist.LoadAll(ctx); err != nil {
		return OriginLocal, err
	}
	return OriginLocal, nil
}

// Resume re-enables the provider recorded by a previous run.
func (o *Orchestrator) Resume(ctx context.Context) error {
	st, err := o.persist.LoadSyncState(ctx)
	if err != nil {
		return err
	}
	if !st.Enabled || st.Provider == domain.ProviderNone {
		return nil
	}
	o.logger.Info("resuming sync", logger.String("provider", string(st.Provider)))
	return o.Enable(ctx, st.Provider)
}

// Status returns a snapshot of the sync state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{
		Enabled:  o.state == StateEnabled || o.state == StateSyncing,
		Provider: o.provider,
		State:    o.state,
		LastSync: o.lastSync,
		NextSync: o.nextSync,
	}
	if o.lastErr != nil {
		st.LastError = o.lastErr.Error()
	}
	if o.adapter != nil {
		st.RemoteFileID = o.adapter.Status().RemoteFileID
	}
	return st
}

// Adapter returns the active remote adapter, nil while sync is off.
func (o *Orchestrator) Adapter() remote.Adapter {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.adapter
}

// Close stops the timer and waits for it. The persisted sync state is kept
// so the next start can Resume.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.stopTimerLocked()
	o.gen++
	o.mu.Unlock()
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) begin(want uint64) (remote.Adapter, uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if want != 0 && want != o.gen {
		return nil, 0, ErrDiscarded
	}
	switch o.state {
	case StateEnabled:
	case StateSyncing:
		return nil, 0, ErrSyncInProgress
	default:
		return nil, 0, ErrNotEnabled
	}
	o.state = StateSyncing
	return o.adapter, o.gen, nil
}

// apply replaces the store with a downloaded snapshot. Invalid remote data
// is rejected before anything changes.
func (o *Orchestrator) apply(ctx context.Context, snap domain.Snapshot) error {
	if err := o.store.Replace(snap); err != nil {
		return err
	}
	// local write failures are reported through the persist save-error signal
	_ = o.persist.PersistAll(ctx)
	o.logger.Info("local state replaced from remote",
		logger.Int("bookmarks", len(snap.Bookmarks)),
		logger.Int("notes", len(snap.Notes)),
		logger.Int("todos", len(snap.Todos)))
	return nil
}

func (o *Orchestrator) syncStateLocked() domain.SyncState {
	st := domain.SyncState{Enabled: true, Provider: o.provider, LastSync: o.lastSync}
	if o.adapter != nil {
		st.RemoteFileID = o.adapter.Status().RemoteFileID
	}
	return st
}

func (o *Orchestrator) saveState(ctx context.Context, st domain.SyncState) {
	if err := o.persist.SaveSyncState(ctx, st); err != nil {
		o.logger.Warn("failed to persist sync state", logger.Error(err))
	}
}

func (o *Orchestrator) startTimerLocked(gen uint64, interval time.Duration) {
	stopCh := make(chan struct{})
	o.stopCh = stopCh
	o.nextSync = o.now().Add(interval)

	ticker := time.NewTicker(interval)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				o.tick(gen, interval)
			case <-o.trigger:
				o.logger.Info("manual sync triggered")
				o.tick(gen, interval)
			case <-stopCh:
				return
			case <-o.ctx.Done():
				return
			}
		}
	}()
}

func (o *Orchestrator) tick(gen uint64, interval time.Duration) {
	o.mu.Lock()
	if o.gen == gen {
		o.nextSync = o.now().Add(interval)
	}
	o.mu.Unlock()

	err := o.sync(o.ctx, gen)
	if err != nil && !errors.Is(err, ErrDiscarded) && !errors.Is(err, ErrSyncInProgress) {
		o.logger.Warn("periodic sync failed", logger.Error(err))
	}
}

func (o *Orchestrator) stopTimerLocked() {
	if o.stopCh != nil {
		close(o.stopCh)
		o.stopCh = nil
	}
}
