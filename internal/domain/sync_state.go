package domain

import (
	"fmt"
	"time"
)

// Provider identifies a remote sync backend.
type Provider string

const (
	ProviderNone       Provider = "none"
	ProviderHTTPServer Provider = "http-server"
	ProviderCloudDrive Provider = "cloud-drive"
)

// ParseProvider maps a configured provider name to a Provider.
// An empty string is treated as ProviderNone.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case "", ProviderNone:
		return ProviderNone, nil
	case ProviderHTTPServer, ProviderCloudDrive:
		return Provider(s), nil
	}
	return ProviderNone, Validation("parse provider", fmt.Errorf("unknown provider %q", s))
}

// SyncState is the persisted view of remote sync.
// Enabled=false implies no periodic sync timer is running.
type SyncState struct {
	Enabled      bool      `json:"enabled"`
	Provider     Provider  `json:"provider"`
	LastSync     time.Time `json:"lastSync,omitzero"`
	RemoteFileID string    `json:"remoteFileId,omitempty"`
}
