package domain

import "fmt"

// Kind names a persisted entity collection.
type Kind string

const (
	KindBookmarks Kind = "bookmarks"
	KindNotes     Kind = "notes"
	KindTodos     Kind = "todos"
)

// Kinds lists every collection in persistence order.
var Kinds = []Kind{KindBookmarks, KindNotes, KindTodos}

// ParseKind accepts a collection name as used in storage keys and URLs.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBookmarks, KindNotes, KindTodos:
		return Kind(s), nil
	}
	return "", Validation("parse kind", fmt.Errorf("unknown collection %q", s))
}

func (k Kind) String() string { return string(k) }
