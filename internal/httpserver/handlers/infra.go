package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dashsync/internal/syncer"
)

type componentStatus struct {
	OK           bool              `json:"ok"`
	Counts       map[string]int    `json:"counts,omitempty"`
	LastSaved    map[string]string `json:"last_saved,omitempty"`
	LastReplaced string            `json:"last_replaced,omitempty"`
	Keys         int               `json:"keys,omitempty"`
	Mode         string            `json:"mode,omitempty"`
	Impact       string            `json:"impact,omitempty"`
	Error        string            `json:"error,omitempty"`
}

const infraTimeFormat = "2006-01-02 15:04:05"

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra summarizes local storage and remote sync health.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"storage": checkLocal(r.Context(), d),
			"sync":    checkSync(d.Sync.Status()),
		}
		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	// Local storage down = changes only live in memory
	if s, ok := components["storage"]; ok && !s.OK {
		return "critical"
	}
	if s, ok := components["sync"]; ok && !s.OK {
		return "degraded"
	}
	return "optimal"
}

func checkLocal(ctx context.Context, d deps.Deps) componentStatus {
	st := componentStatus{OK: true, Counts: countsOf(d.Store.Count()), LastSaved: map[string]string{}}
	for _, kind := range domain.Kinds {
		last := d.Persist.LastSaved(kind)
		if last.IsZero() {
			st.LastSaved[kind.String()] = "never"
			continue
		}
		st.LastSaved[kind.String()] = last.Format(infraTimeFormat)
	}
	// restores, imports and recoveries replace collections wholesale
	if last := d.Store.LastReplace(); !last.IsZero() {
		st.LastReplaced = last.Format(infraTimeFormat)
	}

	keys, err := d.Persist.StoredKeys(ctx)
	if err != nil {
		st.OK = false
		st.Impact = "storage-unreadable"
		st.Error = err.Error()
		return st
	}
	st.Keys = len(keys)

	if err := d.Persist.LastError(); err != nil {
		st.OK = false
		st.Impact = "changes-not-saved"
		st.Error = err.Error()
	}
	return st
}

func checkSync(s syncer.Status) componentStatus {
	switch {
	case !s.Enabled:
		// Local-only is a valid setup, not a failure
		return componentStatus{OK: true, Mode: "local-only"}
	case s.LastError != "":
		return componentStatus{OK: false, Mode: string(s.Provider), Impact: "remote-copy-stale", Error: s.LastError}
	}
	return componentStatus{OK: true, Mode: string(s.Provider)}
}
