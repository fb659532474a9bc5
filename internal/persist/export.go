package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/schema"
)

// ExportDocument is the downloadable backup file.
type ExportDocument struct {
	domain.Snapshot
	ExportedAt time.Time `json:"exportedAt"`
}

// importDocument keeps track of which collections the file actually carried.
type importDocument struct {
	Bookmarks *[]domain.Bookmark `json:"bookmarks"`
	Notes     *[]domain.Note     `json:"notes"`
	Todos     *[]domain.Todo     `json:"todos"`
	Settings  *domain.Settings   `json:"settings"`
	Version   string             `json:"version"`
}

// ImportResult lists what an import replaced. SaveError reports collections
// that were applied in memory but could not be written locally.
type ImportResult struct {
	Replaced  map[domain.Kind]int `json:"replaced"`
	Settings  bool                `json:"settings"`
	Version   string              `json:"version,omitempty"`
	SaveError string              `json:"saveError,omitempty"`
}

// ExportFileName returns the suggested name of an export made at t.
func ExportFileName(t time.Time) string {
	return fmt.Sprintf("dashboard-backup-%s.json", t.Format("2006-01-02"))
}

// Export returns the full state as an export document.
func (a *Adapter) Export() ExportDocument {
	snap := a.store.Snapshot().EnsureCollections()
	return ExportDocument{Snapshot: snap, ExportedAt: a.now()}
}

// Import validates data as an export document and replaces the collections it
// contains. Collections absent from the file are kept. Every collection is
// checked before any is applied, so an invalid file changes nothing. Local
// save failures do not undo the import; they are reported in SaveError.
func (a *Adapter) Import(ctx context.Context, data []byte) (ImportResult, error) {
	res := ImportResult{Replaced: make(map[domain.Kind]int)}
	if err := schema.Validate("import", schema.Document, data); err != nil {
		return res, err
	}

	var doc importDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return res, domain.Validation("import", err)
	}
	res.Version = doc.Version

	pending := make(map[domain.Kind]any, len(domain.Kinds))
	var errs []error
	if doc.Bookmarks != nil {
		items, err := domain.CleanBookmarks(*doc.Bookmarks)
		errs = append(errs, err)
		pending[domain.KindBookmarks] = items
	}
	if doc.Notes != nil {
		items, err := domain.CleanNotes(*doc.Notes)
		errs = append(errs, err)
		pending[domain.KindNotes] = items
	}
	if doc.Todos != nil {
		items, err := domain.CleanTodos(*doc.Todos)
		errs = append(errs, err)
		pending[domain.KindTodos] = items
	}
	if err := errors.Join(errs...); err != nil {
		return res, domain.Validation("import", err)
	}

	for _, kind := range domain.Kinds {
		items, ok := pending[kind]
		if !ok {
			continue
		}
		if err := a.store.ReplaceKind(kind, items); err != nil {
			return res, err
		}
		res.Replaced[kind] = lenOf(items)
	}
	if doc.Settings != nil {
		a.store.SetSettings(*doc.Settings)
		res.Settings = true
	}

	var saveErrs []error
	for _, kind := range domain.Kinds {
		if _, ok := res.Replaced[kind]; ok {
			saveErrs = append(saveErrs, a.Persist(ctx, kind))
		}
	}
	if res.Settings {
		saveErrs = append(saveErrs, a.PersistSettings(ctx))
	}
	if err := errors.Join(saveErrs...); err != nil {
		res.SaveError = err.Error()
	}

	a.logger.Info("import applied",
		logger.String("version", doc.Version),
		logger.Int("collections", len(res.Replaced)),
		logger.Bool("settings", res.Settings),
		logger.Bool("saved", res.SaveError == ""))
	return res, nil
}

// ImportKind replaces a single collection from a JSON array. Like Import, a
// failed local save is reported in SaveError and the replacement is kept.
func (a *Adapter) ImportKind(ctx context.Context, kind domain.Kind, data []byte) (ImportResult, error) {
	res := ImportResult{Replaced: make(map[domain.Kind]int)}
	if err := schema.ValidateKind("import "+kind.String(), kind, data); err != nil {
		return res, err
	}
	items, n, err := decodeKind(kind, data)
	if err != nil {
		return res, domain.Validation("import "+kind.String(), err)
	}
	if err := a.store.ReplaceKind(kind, items); err != nil {
		return res, err
	}
	res.Replaced[kind] = n
	if err := a.Persist(ctx, kind); err != nil {
		res.SaveError = err.Error()
	}
	return res, nil
}

func lenOf(items any) int {
	switch v := items.(type) {
	case []domain.Bookmark:
		return len(v)
	case []domain.Note:
		return len(v)
	case []domain.Todo:
		return len(v)
	}
	return 0
}
