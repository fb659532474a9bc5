package dataserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/remote"
)

// fakeServer mimics the data server with a single in-memory document.
type fakeServer struct {
	mu        sync.Mutex
	doc       []byte
	requestID string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestID = r.Header.Get("X-Request-ID")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/status":
		_, _ = io.WriteString(w, `{"status":"online","bookmarksCount":0,"notesCount":0}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/data":
		if f.doc == nil {
			_, _ = io.WriteString(w, `{"bookmarks":[],"notes":[],"settings":{}}`)
			return
		}
		_, _ = w.Write(f.doc)
	case r.Method == http.MethodPost && r.URL.Path == "/api/data":
		var doc remote.Document
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &doc); err != nil {
			http.Error(w, `{"error":"bad json"}`, http.StatusBadRequest)
			return
		}
		doc.LastUpdated = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		f.doc, _ = json.Marshal(doc)
		_, _ = io.WriteString(w, `{"success":true,"message":"Data saved successfully"}`)
	default:
		http.NotFound(w, r)
	}
}

func newClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", logger.New("error", false), opts...)
}

func TestInitializeMarksReady(t *testing.T) {
	srv := &fakeServer{}
	c := newClient(t, srv)

	assert.False(t, c.Status().Enabled)
	require.NoError(t, c.Initialize(context.Background()))
	assert.True(t, c.Status().Enabled)
	assert.Equal(t, domain.ProviderHTTPServer, c.Provider())
	assert.Len(t, srv.requestID, 36)
}

func TestDownloadBeforeAnyUploadIsNotFound(t *testing.T) {
	c := newClient(t, &fakeServer{})
	_, err := c.Download(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newClient(t, &fakeServer{}, WithClock(func() time.Time { return at }))

	created := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	snap := domain.Snapshot{
		Bookmarks: []domain.Bookmark{{ID: 1, Title: "Go", URL: "https://go.dev", CreatedAt: created}},
		Notes:     []domain.Note{{ID: 2, Title: "n", Content: "c", CreatedAt: created, UpdatedAt: created}},
		Todos:     []domain.Todo{{ID: 3, Text: "t", Created: created}},
		Settings:  domain.Settings{Theme: "matrix", Font: "inter"},
	}

	ack, err := c.Upload(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, at, ack.At)
	assert.Equal(t, "Data saved successfully", ack.Message)
	assert.Equal(t, at, c.Status().LastSync)

	got, err := c.Download(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Bookmarks, got.Bookmarks)
	assert.Equal(t, snap.Notes, got.Notes)
	assert.Equal(t, snap.Todos, got.Todos)
	assert.Equal(t, snap.Settings, got.Settings)
	assert.Equal(t, domain.SnapshotVersion, got.Version)
}

func TestServerErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"missing route", http.StatusNotFound, domain.ErrNotFound},
		{"server failure", http.StatusInternalServerError, domain.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			_, err := c.Download(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUnreachableServerIsNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(url, logger.Nop())
	err := c.Initialize(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.False(t, c.Status().Enabled)
}

func TestSlowServerIsTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := c.Download(context.Background())
	assert.ErrorIs(t, err, domain.ErrTimeout)
}
