// Package docstore holds the single dashboard document served by the data server.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/remote"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("document store closed")

// Store keeps one document. Load on a store that was never written returns
// an empty document with a zero LastUpdated.
type Store interface {
	Load(ctx context.Context) (remote.Document, error)
	// Save fills missing collections, stamps LastUpdated and returns what was stored.
	Save(ctx context.Context, doc remote.Document) (remote.Document, error)
	Close() error
}

// Dialer opens a redis client for redis:// DSNs.
type Dialer func(opts *redis.Options) (*redis.Client, error)

// Open builds a store from a DSN: a bare path or file:// URL for the JSON
// file, memory:// for a process-local document, redis://host:port/db?key=...
func Open(dsn string, dial Dialer, log logger.Logger) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty document store dsn")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "":
		return OpenFile(dsn, log)
	case "file":
		path := parsed.Path
		if path == "" {
			path = parsed.Opaque
		}
		if path == "" {
			return nil, fmt.Errorf("file dsn %q has no path", dsn)
		}
		return OpenFile(path, log)
	case "memory", "mem":
		return NewMemory(nil), nil
	case "redis", "rediss":
		key := parsed.Query().Get("key")
		q := parsed.Query()
		q.Del("key")
		parsed.RawQuery = q.Encode()
		opts, err := redis.ParseURL(parsed.String())
		if err != nil {
			return nil, fmt.Errorf("parse redis dsn: %w", err)
		}
		var client *redis.Client
		if dial != nil {
			if client, err = dial(opts); err != nil {
				return nil, err
			}
		} else {
			client = redis.NewClient(opts)
		}
		return NewRedis(client, key, nil), nil
	}
	return nil, fmt.Errorf("unsupported document store scheme: %s", parsed.Scheme)
}

// prepare returns the document as it will be stored.
func prepare(doc remote.Document, now time.Time) remote.Document {
	doc = doc.Defaults()
	doc.LastUpdated = now.UTC()
	return doc
}

// clone deep-copies doc through its JSON form.
func clone(doc remote.Document) (remote.Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return remote.Document{}, err
	}
	var out remote.Document
	if err := json.Unmarshal(data, &out); err != nil {
		return remote.Document{}, err
	}
	return out, nil
}

// Memory is a process-local Store, used in tests and with memory:// DSNs.
type Memory struct {
	mu     sync.Mutex
	doc    remote.Document
	now    func() time.Time
	closed bool
}

// NewMemory returns an empty store. now defaults to time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{doc: remote.Document{}.Defaults(), now: now}
}

func (m *Memory) Load(context.Context) (remote.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return remote.Document{}, ErrClosed
	}
	return clone(m.doc)
}

func (m *Memory) Save(_ context.Context, doc remote.Document) (remote.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return remote.Document{}, ErrClosed
	}
	stored, err := clone(prepare(doc, m.now()))
	if err != nil {
		return remote.Document{}, err
	}
	m.doc = stored
	return clone(stored)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
