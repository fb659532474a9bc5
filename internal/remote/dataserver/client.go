// Package dataserver syncs the dashboard with the self-hosted HTTP data server.
package dataserver

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/remote"
)

const (
	dataPath   = "/api/data"
	statusPath = "/api/status"

	// maxBody caps what we are willing to read back from the server.
	maxBody = 16 << 20
)

// ServerStatus is the body of GET /api/status.
type ServerStatus struct {
	Status         string    `json:"status"`
	LastUpdated    time.Time `json:"lastUpdated,omitzero"`
	BookmarksCount int       `json:"bookmarksCount"`
	NotesCount     int       `json:"notesCount"`
	TodosCount     int       `json:"todosCount"`
}

type saveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client is the remote.Adapter for the data server.
type Client struct {
	*remote.Tracker

	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  logger.Logger
	now     func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }

// WithTimeout overrides remote.DefaultTimeout.
func WithTimeout(d time.Duration) Option { return func(cl *Client) { cl.timeout = d } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(cl *Client) { cl.now = now } }

// New returns a client for the server at baseURL (ex: http://192.168.1.20:3000).
func New(baseURL string, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		Tracker: remote.NewTracker(domain.ProviderHTTPServer),
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: remote.DefaultTimeout,
		logger:  log.Named("dataserver"),
		now:     time.Now,
	}
	c.http = defaultHTTPClient(c.timeout)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: timeout,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			MaxIdleConns:    4,
			IdleConnTimeout: 90 * time.Second,
		},
	}
}

// Initialize checks that the server answers GET /api/status.
func (c *Client) Initialize(ctx context.Context) error {
	st, err := c.ServerStatus(ctx)
	if err != nil {
		c.MarkReady(false)
		return err
	}
	c.MarkReady(true)
	c.logger.Info("data server reachable",
		logger.String("url", c.baseURL),
		logger.String("status", st.Status),
		logger.Int("bookmarks", st.BookmarksCount),
		logger.Int("notes", st.NotesCount))
	return nil
}

// ServerStatus fetches GET /api/status.
func (c *Client) ServerStatus(ctx context.Context) (ServerStatus, error) {
	var st ServerStatus
	err := c.do(ctx, "status", http.MethodGet, statusPath, nil, &st)
	return st, err
}

// Upload replaces the server document with snap.
func (c *Client) Upload(ctx context.Context, snap domain.Snapshot) (remote.Ack, error) {
	body, err := json.Marshal(remote.FromSnapshot(snap))
	if err != nil {
		return remote.Ack{}, domain.Validation("upload", err)
	}

	var res saveResponse
	if err := c.do(ctx, "upload", http.MethodPost, dataPath, body, &res); err != nil {
		return remote.Ack{}, err
	}
	if !res.Success {
		return remote.Ack{}, domain.Network("upload", fmt.Errorf("server refused save: %s", res.Error))
	}

	at := c.now()
	c.MarkSynced(at)
	return remote.Ack{At: at, Message: res.Message}, nil
}

// Download fetches the server document. A server that was never written to,
// or answers 404, yields a NotFound error.
func (c *Client) Download(ctx context.Context) (domain.Snapshot, error) {
	var doc remote.Document
	if err := c.do(ctx, "download", http.MethodGet, dataPath, nil, &doc); err != nil {
		return domain.Snapshot{}, err
	}
	if doc.NeverWritten() {
		return domain.Snapshot{}, domain.NotFound("download", errors.New("data server holds no document yet"))
	}
	c.MarkSynced(c.now())
	return doc.Snapshot(), nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	ctx, cancel := remote.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return domain.Validation(op, fmt.Errorf("failed to create request: %w", err))
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("data server request failed",
			logger.String("op", op),
			logger.String("request_id", reqID),
			logger.Error(err))
		return remote.Classify(op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return remote.Classify(op, fmt.Errorf("read body: %w", err))
	}

	c.logger.Debug("data server request",
		logger.String("op", op),
		logger.String("request_id", reqID),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NotFound(op, fmt.Errorf("%s %s: 404", method, path))
	case resp.StatusCode >= 400:
		return domain.Network(op, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data))))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.Network(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
