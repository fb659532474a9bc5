package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dashsync/internal/store"
)

func ListEntities(d deps.Deps, kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := d.Store.Collection(kind)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func CreateEntity(d deps.Deps, kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p store.Payload
		if err := decodeBody(r, &p); err != nil {
			writeError(w, d, r, err)
			return
		}
		item, err := d.Store.Add(kind, p)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		err = d.Persist.Persist(r.Context(), kind)
		writeJSON(w, http.StatusCreated, saved{Item: item, SaveError: saveError(err)})
	}
}

// UpdateEntity applies a partial update. Note edits are free text and go
// through the debounced writer; other kinds are saved right away.
func UpdateEntity(d deps.Deps, kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		var p store.Patch
		if err := decodeBody(r, &p); err != nil {
			writeError(w, d, r, err)
			return
		}
		item, err := d.Store.Update(kind, id, p)
		if err != nil {
			writeError(w, d, r, err)
			return
		}

		if kind == domain.KindNotes {
			d.Persist.Touch(kind)
			writeJSON(w, http.StatusOK, saved{Item: item})
			return
		}
		err = d.Persist.Persist(r.Context(), kind)
		writeJSON(w, http.StatusOK, saved{Item: item, SaveError: saveError(err)})
	}
}

func DeleteEntity(d deps.Deps, kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		item, err := d.Store.Remove(kind, id)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		err = d.Persist.Persist(r.Context(), kind)
		writeJSON(w, http.StatusOK, saved{Item: item, Removed: 1, SaveError: saveError(err)})
	}
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// BulkDelete removes every listed id; unknown ids are ignored.
func BulkDelete(d deps.Deps, kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkDeleteRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		n, err := d.Store.RemoveMany(kind, req.IDs)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		if n > 0 {
			err = d.Persist.Persist(r.Context(), kind)
		}
		writeJSON(w, http.StatusOK, saved{Removed: n, SaveError: saveError(err)})
	}
}

func ToggleTodo(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		todo, err := d.Store.ToggleTodo(id)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		err = d.Persist.Persist(r.Context(), domain.KindTodos)
		writeJSON(w, http.StatusOK, saved{Item: todo, SaveError: saveError(err)})
	}
}

func ClearCompleted(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := d.Store.ClearCompleted()
		var err error
		if n > 0 {
			err = d.Persist.Persist(r.Context(), domain.KindTodos)
		}
		writeJSON(w, http.StatusOK, saved{Removed: n, SaveError: saveError(err)})
	}
}

func GetSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Store.Settings())
	}
}

// PutSettings stores the settings; unknown theme or font values fall back to
// their defaults.
func PutSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s domain.Settings
		if err := decodeBody(r, &s); err != nil {
			writeError(w, d, r, err)
			return
		}
		applied := d.Store.SetSettings(s)
		err := d.Persist.PersistSettings(r.Context())
		writeJSON(w, http.StatusOK, saved{Item: applied, SaveError: saveError(err)})
	}
}
