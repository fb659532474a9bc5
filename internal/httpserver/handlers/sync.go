package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/remote/dataserver"
	"github.com/MrSnakeDoc/dashsync/internal/remote/gdrive"
	"github.com/MrSnakeDoc/dashsync/internal/syncer"
)

type enableRequest struct {
	Provider string `json:"provider"`
}

type restoreResponse struct {
	Restored bool           `json:"restored"`
	Status   syncer.Status  `json:"status"`
	Counts   map[string]int `json:"counts,omitempty"`
}

func SyncStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Sync.Status())
	}
}

// SyncEnable switches to the requested provider. A provider that fails to
// initialize leaves sync disabled; the error is returned with the status.
func SyncEnable(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enableRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		provider, err := domain.ParseProvider(req.Provider)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		if err := d.Sync.Enable(r.Context(), provider); err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d.Sync.Status())
	}
}

func SyncDisable(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Sync.Disable(r.Context()); err != nil {
			// sync is off either way; the persisted flag could not be written
			d.Logger.Warn("sync state not saved", logger.Error(err))
		}
		writeJSON(w, http.StatusOK, d.Sync.Status())
	}
}

func SyncNow(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Sync.SyncNow(r.Context()); err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d.Sync.Status())
	}
}

// SyncTrigger queues a sync on the timer goroutine and returns at once.
func SyncTrigger(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Sync.Trigger() {
			d.Logger.Info("manual sync triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, map[string]string{"message": "Sync triggered"})
			return
		}
		if st := d.Sync.Status(); !st.Enabled {
			writeError(w, d, r, syncer.ErrNotEnabled)
			return
		}
		d.Logger.Warn("sync already queued", logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Sync already queued, please wait"})
	}
}

func SyncRestore(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restored, err := d.Sync.Restore(r.Context())
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		resp := restoreResponse{Restored: restored, Status: d.Sync.Status()}
		if restored {
			resp.Counts = countsOf(d.Store.Count())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type fileInfoer interface {
	FileInfo(ctx context.Context) (gdrive.FileInfo, error)
}

type serverStatuser interface {
	ServerStatus(ctx context.Context) (dataserver.ServerStatus, error)
}

// SyncRemote describes the remote side of the active provider: the drive
// file or the data server status.
func SyncRemote(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			info any
			err  error
		)
		switch a := d.Sync.Adapter().(type) {
		case nil:
			err = syncer.ErrNotEnabled
		case fileInfoer:
			info, err = a.FileInfo(r.Context())
		case serverStatuser:
			info, err = a.ServerStatus(r.Context())
		default:
			info = a.Status()
		}
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func countsOf(c map[domain.Kind]int) map[string]int {
	out := make(map[string]int, len(c))
	for k, n := range c {
		out[k.String()] = n
	}
	return out
}
