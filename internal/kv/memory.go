package kv

import (
	"context"
	"sort"
	"sync"
)

// Memory is a process-local Store. A positive quota caps the total size of
// keys plus values, which mimics the quota of browser storage.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	quota  int
	closed bool
}

// NewMemory returns an empty store. quota <= 0 disables the size limit.
func NewMemory(quota int) *Memory {
	return &Memory{data: make(map[string][]byte), quota: quota}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	return m.SetMany(ctx, map[string][]byte{key: value})
}

func (m *Memory) SetMany(_ context.Context, entries map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.quota > 0 && m.sizeAfterLocked(entries) > m.quota {
		return ErrQuotaExceeded
	}
	for k, v := range entries {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data, key)
	return nil
}

func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) sizeAfterLocked(entries map[string][]byte) int {
	size := 0
	for k, v := range m.data {
		if _, replaced := entries[k]; replaced {
			continue
		}
		size += len(k) + len(v)
	}
	for k, v := range entries {
		size += len(k) + len(v)
	}
	return size
}
