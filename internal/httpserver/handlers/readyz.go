package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readyz reports whether storage answers: the document store on the data
// server, the last local save on the dashboard.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := checkStorage(r.Context(), d)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}

func checkStorage(ctx context.Context, d deps.Deps) error {
	if d.Documents != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_, err := d.Documents.Load(ctx)
		return err
	}
	if d.Persist != nil {
		return d.Persist.LastError()
	}
	return nil
}
