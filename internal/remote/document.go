package remote

import (
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
)

// Document is the JSON body exchanged with remote providers.
// The data server stamps LastUpdated; the drive file carries LastSync.
type Document struct {
	Bookmarks   []domain.Bookmark `json:"bookmarks"`
	Notes       []domain.Note     `json:"notes"`
	Todos       []domain.Todo     `json:"todos"`
	Settings    domain.Settings   `json:"settings"`
	LastUpdated time.Time         `json:"lastUpdated,omitzero"`
	LastSync    time.Time         `json:"lastSync,omitzero"`
}

// FromSnapshot builds a document from snap. Nil collections become empty.
func FromSnapshot(snap domain.Snapshot) Document {
	snap = snap.EnsureCollections()
	return Document{
		Bookmarks: snap.Bookmarks,
		Notes:     snap.Notes,
		Todos:     snap.Todos,
		Settings:  snap.Settings,
	}
}

// Snapshot converts the document back. Missing collections come back empty
// and settings are normalized.
func (d Document) Snapshot() domain.Snapshot {
	ts := d.LastUpdated
	if ts.IsZero() {
		ts = d.LastSync
	}
	return domain.Snapshot{
		Bookmarks: d.Bookmarks,
		Notes:     d.Notes,
		Todos:     d.Todos,
		Settings:  d.Settings.Normalize(),
		Timestamp: ts,
		Version:   domain.SnapshotVersion,
	}.EnsureCollections()
}

// Defaults fills nil collections with empty ones.
func (d Document) Defaults() Document {
	if d.Bookmarks == nil {
		d.Bookmarks = []domain.Bookmark{}
	}
	if d.Notes == nil {
		d.Notes = []domain.Note{}
	}
	if d.Todos == nil {
		d.Todos = []domain.Todo{}
	}
	return d
}

// NeverWritten reports a document nobody has saved yet.
func (d Document) NeverWritten() bool {
	return d.LastUpdated.IsZero() && d.LastSync.IsZero() &&
		len(d.Bookmarks) == 0 && len(d.Notes) == 0 && len(d.Todos) == 0
}
