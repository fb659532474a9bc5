package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/syncer"
)

// maxBody bounds every request body read by the API.
const maxBody = 16 << 20

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, syncer.ErrNotEnabled),
		errors.Is(err, syncer.ErrSyncInProgress),
		errors.Is(err, syncer.ErrDiscarded):
		return http.StatusConflict
	}
	kind, ok := domain.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case domain.ErrKindValidation:
		return http.StatusBadRequest
	case domain.ErrKindNotFound:
		return http.StatusNotFound
	case domain.ErrKindStorage:
		return http.StatusInsufficientStorage
	case domain.ErrKindNetwork:
		return http.StatusBadGateway
	case domain.ErrKindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, d deps.Deps, r *http.Request, err error) {
	status := statusOf(err)
	resp := errorResponse{Error: err.Error()}
	if kind, ok := domain.KindOf(err); ok {
		resp.Kind = string(kind)
	}
	if status >= http.StatusInternalServerError {
		d.Logger.Warn("request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err))
	}
	writeJSON(w, status, resp)
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return nil, domain.Validation("read body", err)
	}
	if len(data) > maxBody {
		return nil, domain.Validation("read body", fmt.Errorf("body larger than %d bytes", maxBody))
	}
	return data, nil
}

func decodeBody(r *http.Request, v any) error {
	data, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.Validation("decode body", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.Validation("parse id", fmt.Errorf("invalid id %q", raw))
	}
	return id, nil
}

// saved is the envelope of a mutation. SaveError reports a local persistence
// failure; the in-memory change is kept regardless.
type saved struct {
	Item      any    `json:"item,omitempty"`
	Removed   int    `json:"removed,omitempty"`
	SaveError string `json:"saveError,omitempty"`
}

func saveError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
