package domain

import "time"

// SnapshotVersion is written into every combined snapshot and export file.
const SnapshotVersion = "1.0"

// Snapshot is a full copy of every collection at one instant.
type Snapshot struct {
	Bookmarks []Bookmark `json:"bookmarks"`
	Notes     []Note     `json:"notes"`
	Todos     []Todo     `json:"todos"`
	Settings  Settings   `json:"settings"`
	Timestamp time.Time  `json:"timestamp"`
	Version   string     `json:"version"`
}

// EnsureCollections turns nil collections into empty ones so they encode as [] instead of null.
func (s Snapshot) EnsureCollections() Snapshot {
	if s.Bookmarks == nil {
		s.Bookmarks = []Bookmark{}
	}
	if s.Notes == nil {
		s.Notes = []Note{}
	}
	if s.Todos == nil {
		s.Todos = []Todo{}
	}
	return s
}

// IsEmpty reports whether the snapshot holds no entities.
func (s Snapshot) IsEmpty() bool {
	return len(s.Bookmarks) == 0 && len(s.Notes) == 0 && len(s.Todos) == 0
}

// Counts returns the number of entities per collection.
func (s Snapshot) Counts() map[Kind]int {
	return map[Kind]int{
		KindBookmarks: len(s.Bookmarks),
		KindNotes:     len(s.Notes),
		KindTodos:     len(s.Todos),
	}
}
