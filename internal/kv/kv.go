// Package kv provides the durable key-value storage the dashboard persists into.
// Values are opaque bytes; callers decide the encoding.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned by Get when the key has never been written or was deleted.
	ErrKeyNotFound = errors.New("key not found")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("storage closed")
	// ErrQuotaExceeded is returned when a write would exceed the configured size limit.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store is a flat string-keyed byte store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes every entry or none of them.
	SetMany(ctx context.Context, entries map[string][]byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
