// Package remote defines the uniform contract every remote sync provider
// implements, plus the helpers they share: the call timeout, error
// classification and the status bookkeeping.
package remote

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 10 * time.Second

// Adapter is a remote copy of the dashboard state.
// Download returns an error matching domain.ErrNotFound when the remote side
// holds no document yet, which callers treat as "nothing to restore".
type Adapter interface {
	Provider() domain.Provider
	Initialize(ctx context.Context) error
	Upload(ctx context.Context, snap domain.Snapshot) (Ack, error)
	Download(ctx context.Context) (domain.Snapshot, error)
	Status() Status
}

// Ack confirms an upload.
type Ack struct {
	At           time.Time `json:"at"`
	Message      string    `json:"message,omitempty"`
	RemoteFileID string    `json:"remoteFileId,omitempty"`
}

// Status is the provider-side view of the connection.
type Status struct {
	Enabled      bool            `json:"enabled"`
	Provider     domain.Provider `json:"provider"`
	LastSync     time.Time       `json:"lastSync,omitzero"`
	RemoteFileID string          `json:"remoteFileId,omitempty"`
}

// WithTimeout bounds ctx by d, or by DefaultTimeout when d <= 0.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

// Classify turns a transport error into a domain error.
// Already classified errors are returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.KindOf(err); ok {
		return err
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.Timeout(op, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return domain.Timeout(op, err)
	}
	return domain.Network(op, err)
}

// Tracker records what Status reports. Providers embed it.
type Tracker struct {
	mu       sync.RWMutex
	provider domain.Provider
	ready    bool
	lastSync time.Time
	fileID   string
}

// NewTracker returns a tracker for provider, not yet initialized.
func NewTracker(provider domain.Provider) *Tracker {
	return &Tracker{provider: provider}
}

// MarkReady flags a successful Initialize.
func (t *Tracker) MarkReady(ready bool) {
	t.mu.Lock()
	t.ready = ready
	t.mu.Unlock()
}

// MarkSynced stamps a successful upload or download.
func (t *Tracker) MarkSynced(at time.Time) {
	t.mu.Lock()
	t.lastSync = at
	t.mu.Unlock()
}

// SetRemoteFileID remembers the identifier of the remote document.
func (t *Tracker) SetRemoteFileID(id string) {
	t.mu.Lock()
	t.fileID = id
	t.mu.Unlock()
}

// RemoteFileID returns the last known remote document identifier.
func (t *Tracker) RemoteFileID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fileID
}

// Provider returns the provider the tracker was created for.
func (t *Tracker) Provider() domain.Provider { return t.provider }

// Status returns a copy of the tracked state.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Status{
		Enabled:      t.ready,
		Provider:     t.provider,
		LastSync:     t.lastSync,
		RemoteFileID: t.fileID,
	}
}
