package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/remote"
	"github.com/MrSnakeDoc/dashsync/internal/schema"
)

type saveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status         string    `json:"status"`
	LastUpdated    time.Time `json:"lastUpdated,omitzero"`
	BookmarksCount int       `json:"bookmarksCount"`
	NotesCount     int       `json:"notesCount"`
	TodosCount     int       `json:"todosCount"`
}

// GetData returns the stored document. A document that was never written has
// no lastUpdated.
func GetData(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := d.Documents.Load(r.Context())
		if err != nil {
			d.Logger.Error("failed to read data", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to read data"})
			return
		}
		doc = doc.Defaults()
		doc.Settings = doc.Settings.Normalize()
		writeJSON(w, http.StatusOK, doc)
	}
}

// PostData replaces the stored document. Missing collections are stored
// empty and lastUpdated is stamped by the store.
func PostData(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := readBody(r)
		if err == nil {
			err = schema.Validate("save data", schema.Document, data)
		}
		var doc remote.Document
		if err == nil {
			if jerr := json.Unmarshal(data, &doc); jerr != nil {
				err = domain.Validation("save data", jerr)
			}
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, saveResponse{Error: err.Error()})
			return
		}

		doc.Settings = doc.Settings.Normalize()
		stored, err := d.Documents.Save(r.Context(), doc)
		if err != nil {
			d.Logger.Error("failed to save data", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, saveResponse{Error: "Failed to save data"})
			return
		}

		d.Logger.Info("data saved",
			logger.Int("bookmarks", len(stored.Bookmarks)),
			logger.Int("notes", len(stored.Notes)),
			logger.Int("todos", len(stored.Todos)))
		writeJSON(w, http.StatusOK, saveResponse{Success: true, Message: "Data saved successfully"})
	}
}

func DataStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := d.Documents.Load(r.Context())
		if err != nil {
			d.Logger.Error("failed to read data", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to get status"})
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{
			Status:         "online",
			LastUpdated:    doc.LastUpdated,
			BookmarksCount: len(doc.Bookmarks),
			NotesCount:     len(doc.Notes),
			TodosCount:     len(doc.Todos),
		})
	}
}
