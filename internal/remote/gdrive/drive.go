// Package gdrive keeps the dashboard state in a single JSON file on Google Drive.
package gdrive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/remote"
)

const (
	// FileName is the name of the file holding the dashboard.
	FileName = "dashboard-data.json"
	mimeJSON = "application/json"
)

// Scopes requested for the drive file.
var Scopes = []string{"https://www.googleapis.com/auth/drive.file"}

// Credentials authorize the adapter as a single user through a long-lived
// refresh token.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// TokenSource returns a refreshing token source for c. Refresh requests go
// through client, so its timeout bounds them.
func (c Credentials) TokenSource(ctx context.Context, client *http.Client) oauth2.TokenSource {
	cfg := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
	return cfg.TokenSource(context.WithValue(ctx, oauth2.HTTPClient, client), &oauth2.Token{RefreshToken: c.RefreshToken})
}

// Validate reports missing credential fields.
func (c Credentials) Validate() error {
	switch {
	case c.ClientID == "":
		return errors.New("drive client id is empty")
	case c.ClientSecret == "":
		return errors.New("drive client secret is empty")
	case c.RefreshToken == "":
		return errors.New("drive refresh token is empty")
	}
	return nil
}

// FileInfo describes the remote file.
type FileInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modifiedTime,omitzero"`
}

// Adapter is the remote.Adapter for Google Drive.
type Adapter struct {
	*remote.Tracker

	files   Files
	tokens  oauth2.TokenSource
	logger  logger.Logger
	timeout time.Duration
	now     func() time.Time

	mu sync.Mutex // serializes lookup-or-create of the file
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithTimeout overrides remote.DefaultTimeout.
func WithTimeout(d time.Duration) Option { return func(a *Adapter) { a.timeout = d } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(a *Adapter) { a.now = now } }

// WithFileID starts from a file id remembered by an earlier run.
func WithFileID(id string) Option { return func(a *Adapter) { a.SetRemoteFileID(id) } }

// New builds an adapter on top of files, authorized by tokens.
func New(files Files, tokens oauth2.TokenSource, log logger.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		Tracker: remote.NewTracker(domain.ProviderCloudDrive),
		files:   files,
		tokens:  tokens,
		logger:  log.Named("gdrive"),
		timeout: remote.DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromCredentials wires the OAuth2 client and the Drive service. Token
// refreshes, including the ones made inside Drive calls, are bounded by the
// adapter timeout.
func NewFromCredentials(ctx context.Context, creds Credentials, log logger.Logger, opts ...Option) (*Adapter, error) {
	if err := creds.Validate(); err != nil {
		return nil, domain.Validation("drive credentials", err)
	}
	a := New(nil, nil, log, opts...)

	refresh := &http.Client{Timeout: a.timeout}
	a.tokens = oauth2.ReuseTokenSource(nil, creds.TokenSource(ctx, refresh))
	files, err := NewServiceFiles(ctx, oauth2.NewClient(ctx, a.tokens))
	if err != nil {
		return nil, err
	}
	a.files = files
	return a, nil
}

// Initialize obtains an access token and looks the dashboard file up.
// A missing file is not an error; it is created by the first Upload.
func (a *Adapter) Initialize(ctx context.Context) error {
	ctx, cancel := remote.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.token(ctx); err != nil {
		a.MarkReady(false)
		return remote.Classify("drive auth", fmt.Errorf("acquire token: %w", err))
	}

	f, err := a.files.Find(ctx, FileName)
	if err != nil {
		a.MarkReady(false)
		return a.classify("drive lookup", err)
	}
	if f != nil {
		a.SetRemoteFileID(f.Id)
	}
	a.MarkReady(true)
	a.logger.Info("drive ready", logger.String("file_id", a.RemoteFileID()))
	return nil
}

// token fetches an access token, giving up when ctx ends first.
func (a *Adapter) token(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		_, err := a.tokens.Token()
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Upload writes the state into the dashboard file, creating it when needed.
func (a *Adapter) Upload(ctx context.Context, snap domain.Snapshot) (remote.Ack, error) {
	ctx, cancel := remote.WithTimeout(ctx, a.timeout)
	defer cancel()

	at := a.now()
	doc := remote.FromSnapshot(snap)
	doc.LastSync = at
	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return remote.Ack{}, domain.Validation("drive upload", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.RemoteFileID()
	var f *drive.File
	if id != "" {
		f, err = a.files.Update(ctx, id, content)
		if err != nil && isNotFound(err) {
			a.logger.Warn("remembered drive file is gone, creating a new one", logger.String("file_id", id))
			id = ""
		} else if err != nil {
			return remote.Ack{}, a.classify("drive upload", err)
		}
	}
	if id == "" {
		if f, err = a.lookupOrCreate(ctx, content); err != nil {
			return remote.Ack{}, a.classify("drive upload", err)
		}
	}

	a.SetRemoteFileID(f.Id)
	a.MarkSynced(at)
	a.logger.Debug("drive file written", logger.String("file_id", f.Id), logger.Int("bytes", len(content)))
	return remote.Ack{At: at, RemoteFileID: f.Id, Message: "uploaded " + FileName}, nil
}

func (a *Adapter) lookupOrCreate(ctx context.Context, content []byte) (*drive.File, error) {
	existing, err := a.files.Find(ctx, FileName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return a.files.Update(ctx, existing.Id, content)
	}
	return a.files.Create(ctx, FileName, content)
}

// Download reads the dashboard file. A file that does not exist yet yields
// a NotFound error.
func (a *Adapter) Download(ctx context.Context) (domain.Snapshot, error) {
	ctx, cancel := remote.WithTimeout(ctx, a.timeout)
	defer cancel()

	id, err := a.resolveID(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}

	content, err := a.files.Download(ctx, id)
	if err != nil {
		return domain.Snapshot{}, a.classify("drive download", err)
	}

	var doc remote.Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return domain.Snapshot{}, domain.Validation("drive download", fmt.Errorf("decode %s: %w", FileName, err))
	}
	a.MarkSynced(a.now())
	return doc.Snapshot(), nil
}

// FileInfo returns metadata of the dashboard file.
func (a *Adapter) FileInfo(ctx context.Context) (FileInfo, error) {
	ctx, cancel := remote.WithTimeout(ctx, a.timeout)
	defer cancel()

	id, err := a.resolveID(ctx)
	if err != nil {
		return FileInfo{}, err
	}
	f, err := a.files.Get(ctx, id)
	if err != nil {
		return FileInfo{}, a.classify("drive file info", err)
	}
	modTime, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	return FileInfo{ID: f.Id, Name: f.Name, Size: f.Size, ModifiedTime: modTime}, nil
}

func (a *Adapter) resolveID(ctx context.Context) (string, error) {
	if id := a.RemoteFileID(); id != "" {
		return id, nil
	}
	f, err := a.files.Find(ctx, FileName)
	if err != nil {
		return "", a.classify("drive lookup", err)
	}
	if f == nil {
		return "", domain.NotFound("drive lookup", fmt.Errorf("%s does not exist", FileName))
	}
	a.SetRemoteFileID(f.Id)
	return f.Id, nil
}

func (a *Adapter) classify(op string, err error) error {
	if isNotFound(err) {
		return domain.NotFound(op, err)
	}
	return remote.Classify(op, err)
}
