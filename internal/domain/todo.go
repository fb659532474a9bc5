package domain

import "time"

// Todo is a single checklist item.
// Modified stays nil until the item is toggled or edited.
type Todo struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	Created   time.Time  `json:"created"`
	Modified  *time.Time `json:"modified,omitempty"`
}
