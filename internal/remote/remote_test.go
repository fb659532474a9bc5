package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), domain.ErrTimeout},
		{"net timeout", timeoutErr{}, domain.ErrTimeout},
		{"refused", errors.New("connection refused"), domain.ErrNetwork},
		{"already classified", domain.NotFound("x", nil), domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Classify("op", tt.err), tt.want)
		})
	}
	assert.NoError(t, Classify("op", nil))
}

func TestWithTimeoutDefault(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(DefaultTimeout), deadline, time.Second)
}

func TestDocumentConversion(t *testing.T) {
	doc := FromSnapshot(domain.Snapshot{Settings: domain.Settings{Theme: "matrix"}})
	assert.NotNil(t, doc.Bookmarks)
	assert.True(t, doc.NeverWritten())

	doc.LastUpdated = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, doc.NeverWritten())

	snap := Document{Settings: domain.Settings{Font: "bogus"}}.Snapshot()
	assert.Equal(t, domain.DefaultSettings(), snap.Settings)
	assert.Equal(t, domain.SnapshotVersion, snap.Version)
	assert.NotNil(t, snap.Todos)
}

func TestTrackerStatus(t *testing.T) {
	tr := NewTracker(domain.ProviderHTTPServer)
	assert.False(t, tr.Status().Enabled)

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.MarkReady(true)
	tr.MarkSynced(at)
	tr.SetRemoteFileID("abc")

	assert.Equal(t, Status{Enabled: true, Provider: domain.ProviderHTTPServer, LastSync: at, RemoteFileID: "abc"}, tr.Status())
}
