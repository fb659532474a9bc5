package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
)

// Payload is the input of Add. Only the fields of the target kind are read.
type Payload struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Patch is the input of Update. Nil fields are left untouched.
type Patch struct {
	Title     *string `json:"title,omitempty"`
	URL       *string `json:"url,omitempty"`
	Content   *string `json:"content,omitempty"`
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// Store owns the canonical in-memory collections of the dashboard.
// Insertion order is display order. Every accessor returns copies.
type Store struct {
	mu        sync.RWMutex
	bookmarks []domain.Bookmark
	notes     []domain.Note
	todos     []domain.Todo
	settings  domain.Settings

	ids         *domain.IDGenerator
	now         func() time.Time
	lastReplace time.Time
}

// New creates an empty store. now defaults to time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		bookmarks: []domain.Bookmark{},
		notes:     []domain.Note{},
		todos:     []domain.Todo{},
		settings:  domain.DefaultSettings(),
		ids:       domain.NewIDGenerator(now),
		now:       now,
	}
}

// Add validates payload, assigns id and creation time, appends the entity
// and returns a copy of it.
func (s *Store) Add(kind domain.Kind, p Payload) (any, error) {
	switch kind {
	case domain.KindBookmarks:
		return s.AddBookmark(p.Title, p.URL)
	case domain.KindNotes:
		return s.AddNote(p.Title, p.Content)
	case domain.KindTodos:
		return s.AddTodo(p.Text)
	}
	return nil, unknownKind("add", kind)
}

// AddBookmark stores a bookmark with its URL normalized to an absolute https URL.
func (s *Store) AddBookmark(title, rawURL string) (domain.Bookmark, error) {
	title, err := domain.RequireText("title", title)
	if err != nil {
		return domain.Bookmark{}, err
	}
	u, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return domain.Bookmark{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := domain.Bookmark{ID: s.ids.Next(), Title: title, URL: u, CreatedAt: s.now()}
	s.bookmarks = append(s.bookmarks, b)
	return b, nil
}

// AddNote stores a note. Title and content are both required at creation.
func (s *Store) AddNote(title, content string) (domain.Note, error) {
	title, err := domain.RequireText("title", title)
	if err != nil {
		return domain.Note{}, err
	}
	if _, err := domain.RequireText("content", content); err != nil {
		return domain.Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := domain.Note{ID: s.ids.Next(), Title: title, Content: content, CreatedAt: now, UpdatedAt: now}
	s.notes = append(s.notes, n)
	return n, nil
}

// AddTodo stores an open todo.
func (s *Store) AddTodo(text string) (domain.Todo, error) {
	text, err := domain.RequireText("text", text)
	if err != nil {
		return domain.Todo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := domain.Todo{ID: s.ids.Next(), Text: text, Created: s.now()}
	s.todos = append(s.todos, t)
	return t, nil
}

// Update applies patch to the entity with id and refreshes its modification time.
// It returns domain.ErrNotFound when id is absent.
func (s *Store) Update(kind domain.Kind, id int64, p Patch) (any, error) {
	switch kind {
	case domain.KindBookmarks:
		return s.updateBookmark(id, p)
	case domain.KindNotes:
		return s.updateNote(id, p)
	case domain.KindTodos:
		return s.updateTodo(id, p)
	}
	return nil, unknownKind("update", kind)
}

func (s *Store) updateBookmark(id int64, p Patch) (domain.Bookmark, error) {
	var title, u string
	var err error
	if p.Title != nil {
		if title, err = domain.RequireText("title", *p.Title); err != nil {
			return domain.Bookmark{}, err
		}
	}
	if p.URL != nil {
		if u, err = domain.NormalizeURL(*p.URL); err != nil {
			return domain.Bookmark{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.bookmarks, id, func(b domain.Bookmark) int64 { return b.ID })
	if i < 0 {
		return domain.Bookmark{}, notFound("update bookmark", id)
	}
	if p.Title != nil {
		s.bookmarks[i].Title = title
	}
	if p.URL != nil {
		s.bookmarks[i].URL = u
	}
	return s.bookmarks[i], nil
}

func (s *Store) updateNote(id int64, p Patch) (domain.Note, error) {
	var title string
	var err error
	if p.Title != nil {
		if title, err = domain.RequireText("title", *p.Title); err != nil {
			return domain.Note{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.notes, id, func(n domain.Note) int64 { return n.ID })
	if i < 0 {
		return domain.Note{}, notFound("update note", id)
	}
	if p.Title != nil {
		s.notes[i].Title = title
	}
	// Content may be emptied while typing; only creation requires it.
	if p.Content != nil {
		s.notes[i].Content = *p.Content
	}
	s.notes[i].UpdatedAt = later(s.now(), s.notes[i].CreatedAt)
	return s.notes[i], nil
}

func (s *Store) updateTodo(id int64, p Patch) (domain.Todo, error) {
	var text string
	var err error
	if p.Text != nil {
		if text, err = domain.RequireText("text", *p.Text); err != nil {
			return domain.Todo{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.todos, id, func(t domain.Todo) int64 { return t.ID })
	if i < 0 {
		return domain.Todo{}, notFound("update todo", id)
	}
	if p.Text != nil {
		s.todos[i].Text = text
	}
	if p.Completed != nil {
		s.todos[i].Completed = *p.Completed
	}
	now := s.now()
	s.todos[i].Modified = &now
	return s.todos[i], nil
}

// ToggleTodo flips the completed flag and stamps Modified.
func (s *Store) ToggleTodo(id int64) (domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.todos, id, func(t domain.Todo) int64 { return t.ID })
	if i < 0 {
		return domain.Todo{}, notFound("toggle todo", id)
	}
	now := s.now()
	s.todos[i].Completed = !s.todos[i].Completed
	s.todos[i].Modified = &now
	return s.todos[i], nil
}

// Remove deletes the entity with id and returns it.
// On a miss the collection is left untouched and domain.ErrNotFound is returned.
func (s *Store) Remove(kind domain.Kind, id int64) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case domain.KindBookmarks:
		return removeByID(&s.bookmarks, id, func(b domain.Bookmark) int64 { return b.ID })
	case domain.KindNotes:
		return removeByID(&s.notes, id, func(n domain.Note) int64 { return n.ID })
	case domain.KindTodos:
		return removeByID(&s.todos, id, func(t domain.Todo) int64 { return t.ID })
	}
	return nil, unknownKind("remove", kind)
}

// RemoveMany deletes every listed id that exists and returns how many were removed.
func (s *Store) RemoveMany(kind domain.Kind, ids []int64) (int, error) {
	if _, err := domain.ParseKind(string(kind)); err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		if _, err := s.Remove(kind, id); err == nil {
			removed++
		}
	}
	return removed, nil
}

// ClearCompleted drops every completed todo and returns how many were removed.
func (s *Store) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]domain.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	removed := len(s.todos) - len(kept)
	s.todos = kept
	return removed
}

// Bookmarks returns a copy of the bookmark collection.
func (s *Store) Bookmarks() []domain.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.bookmarks)
}

// Notes returns a copy of the note collection.
func (s *Store) Notes() []domain.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.notes)
}

// Todos returns a copy of the todo collection.
func (s *Store) Todos() []domain.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTodos(s.todos)
}

// Collection returns a copy of the named collection.
func (s *Store) Collection(kind domain.Kind) (any, error) {
	switch kind {
	case domain.KindBookmarks:
		return s.Bookmarks(), nil
	case domain.KindNotes:
		return s.Notes(), nil
	case domain.KindTodos:
		return s.Todos(), nil
	}
	return nil, unknownKind("collection", kind)
}

// Settings returns the current settings.
func (s *Store) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetSettings stores settings, replacing unknown values with defaults.
func (s *Store) SetSettings(settings domain.Settings) domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings.Normalize()
	return s.settings
}

// Count returns the number of entities per collection.
func (s *Store) Count() map[domain.Kind]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[domain.Kind]int{
		domain.KindBookmarks: len(s.bookmarks),
		domain.KindNotes:     len(s.notes),
		domain.KindTodos:     len(s.todos),
	}
}

// LastReplace returns when the collections were last replaced wholesale.
func (s *Store) LastReplace() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReplace
}

// Snapshot returns a deep copy of every collection.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.Snapshot{
		Bookmarks: cloneSlice(s.bookmarks),
		Notes:     cloneSlice(s.notes),
		Todos:     cloneTodos(s.todos),
		Settings:  s.settings,
		Timestamp: s.now(),
		Version:   domain.SnapshotVersion,
	}
}

// Replace swaps every collection and the settings for the snapshot content.
// Every entity is checked as if it were added; one invalid entity rejects the
// whole snapshot and leaves the store untouched.
func (s *Store) Replace(snap domain.Snapshot) error {
	snap = snap.EnsureCollections()
	bookmarks, err := domain.CleanBookmarks(snap.Bookmarks)
	if err != nil {
		return err
	}
	notes, err := domain.CleanNotes(snap.Notes)
	if err != nil {
		return err
	}
	todos, err := domain.CleanTodos(snap.Todos)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookmarks = bookmarks
	s.notes = notes
	s.todos = cloneTodos(todos)
	s.settings = snap.Settings.Normalize()
	s.observeIDsLocked()
	s.lastReplace = s.now()
	return nil
}

// ReplaceKind swaps a single collection. items must be the slice type of kind
// and pass the same checks as Replace.
func (s *Store) ReplaceKind(kind domain.Kind, items any) error {
	var swap func()
	switch v := items.(type) {
	case []domain.Bookmark:
		if kind != domain.KindBookmarks {
			return mismatch(kind, items)
		}
		clean, err := domain.CleanBookmarks(v)
		if err != nil {
			return err
		}
		swap = func() { s.bookmarks = clean }
	case []domain.Note:
		if kind != domain.KindNotes {
			return mismatch(kind, items)
		}
		clean, err := domain.CleanNotes(v)
		if err != nil {
			return err
		}
		swap = func() { s.notes = clean }
	case []domain.Todo:
		if kind != domain.KindTodos {
			return mismatch(kind, items)
		}
		clean, err := domain.CleanTodos(v)
		if err != nil {
			return err
		}
		swap = func() { s.todos = cloneTodos(clean) }
	default:
		return mismatch(kind, items)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	swap()
	s.observeIDsLocked()
	s.lastReplace = s.now()
	return nil
}

// observeIDsLocked raises the id floor past every loaded id, then gives a
// fresh id to entities imported without one and to every repeat of an id
// already seen in the same collection.
func (s *Store) observeIDsLocked() {
	for _, b := range s.bookmarks {
		s.ids.Observe(b.ID)
	}
	for _, n := range s.notes {
		s.ids.Observe(n.ID)
	}
	for _, t := range s.todos {
		s.ids.Observe(t.ID)
	}
	reassign(s.bookmarks, func(b *domain.Bookmark) *int64 { return &b.ID }, s.ids)
	reassign(s.notes, func(n *domain.Note) *int64 { return &n.ID }, s.ids)
	reassign(s.todos, func(t *domain.Todo) *int64 { return &t.ID }, s.ids)
}

func reassign[T any](items []T, idOf func(*T) *int64, ids *domain.IDGenerator) {
	seen := make(map[int64]bool, len(items))
	for i := range items {
		id := idOf(&items[i])
		if *id == 0 || seen[*id] {
			*id = ids.Next()
		}
		seen[*id] = true
	}
}

func indexOf[T any](items []T, id int64, idOf func(T) int64) int {
	for i, item := range items {
		if idOf(item) == id {
			return i
		}
	}
	return -1
}

func removeByID[T any](items *[]T, id int64, idOf func(T) int64) (T, error) {
	var zero T
	i := indexOf(*items, id, idOf)
	if i < 0 {
		return zero, notFound("remove", id)
	}
	removed := (*items)[i]
	next := make([]T, 0, len(*items)-1)
	next = append(next, (*items)[:i]...)
	next = append(next, (*items)[i+1:]...)
	*items = next
	return removed, nil
}

func cloneSlice[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}

// cloneTodos also copies the Modified pointer target.
func cloneTodos(items []domain.Todo) []domain.Todo {
	out := cloneSlice(items)
	for i := range out {
		if out[i].Modified != nil {
			m := *out[i].Modified
			out[i].Modified = &m
		}
	}
	return out
}

func later(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

func notFound(op string, id int64) error {
	return domain.NotFound(op, fmt.Errorf("no entity with id %d", id))
}

func unknownKind(op string, kind domain.Kind) error {
	return domain.Validation(op, fmt.Errorf("unknown collection %q", kind))
}

func mismatch(kind domain.Kind, items any) error {
	return domain.Validation("replace", fmt.Errorf("%T is not a %s collection", items, kind))
}
