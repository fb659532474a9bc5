package domain

import "time"

// Bookmark is a saved link shown on the dashboard.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is time-derived and unique within the collection.
	ID int64 `json:"id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// Title is the label displayed on the tile. Never empty.
	Title string `json:"title"`

	// URL is always absolute. A missing scheme is defaulted to https.
	// Example: "github.com" is stored as "https://github.com"
	URL string `json:"url"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	CreatedAt time.Time `json:"createdAt"`
}
