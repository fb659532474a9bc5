package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// RequireText trims s and rejects it when nothing is left.
func RequireText(field, s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", Validation("validate "+field, fmt.Errorf("%s must not be empty", field))
	}
	return trimmed, nil
}

// NormalizeURL prefixes https:// when raw carries no scheme and checks the result is absolute.
// Example: "github.com" -> "https://github.com"
func NormalizeURL(raw string) (string, error) {
	s, err := RequireText("url", raw)
	if err != nil {
		return "", err
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.ParseRequestURI(s)
	if err != nil {
		return "", Validation("validate url", fmt.Errorf("invalid url %q: %w", raw, err))
	}
	if u.Scheme == "" || u.Host == "" {
		return "", Validation("validate url", errors.New("url must be absolute"))
	}
	if strings.ContainsAny(u.Host, " \t") {
		return "", Validation("validate url", fmt.Errorf("invalid host %q", u.Host))
	}
	return s, nil
}

// CleanBookmarks applies the AddBookmark rules to every item of an imported
// collection and returns normalized copies. Any invalid item rejects the batch.
func CleanBookmarks(items []Bookmark) ([]Bookmark, error) {
	out := make([]Bookmark, len(items))
	var errs []error
	for i, b := range items {
		title, err := RequireText("title", b.Title)
		if err != nil {
			errs = append(errs, fmt.Errorf("bookmark %d: %w", i, err))
			continue
		}
		u, err := NormalizeURL(b.URL)
		if err != nil {
			errs = append(errs, fmt.Errorf("bookmark %d: %w", i, err))
			continue
		}
		b.Title, b.URL = title, u
		out[i] = b
	}
	return out, batchError("validate bookmarks", errs)
}

// CleanNotes requires a title on every note. Content may be empty since edits
// can clear it. UpdatedAt is raised to CreatedAt when it lags behind.
func CleanNotes(items []Note) ([]Note, error) {
	out := make([]Note, len(items))
	var errs []error
	for i, n := range items {
		title, err := RequireText("title", n.Title)
		if err != nil {
			errs = append(errs, fmt.Errorf("note %d: %w", i, err))
			continue
		}
		n.Title = title
		if n.UpdatedAt.Before(n.CreatedAt) {
			n.UpdatedAt = n.CreatedAt
		}
		out[i] = n
	}
	return out, batchError("validate notes", errs)
}

// CleanTodos requires text on every todo.
func CleanTodos(items []Todo) ([]Todo, error) {
	out := make([]Todo, len(items))
	var errs []error
	for i, t := range items {
		text, err := RequireText("text", t.Text)
		if err != nil {
			errs = append(errs, fmt.Errorf("todo %d: %w", i, err))
			continue
		}
		t.Text = text
		out[i] = t
	}
	return out, batchError("validate todos", errs)
}

func batchError(op string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return Validation(op, errors.Join(errs...))
}
