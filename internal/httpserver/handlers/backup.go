package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dashsync/internal/persist"
	"github.com/MrSnakeDoc/dashsync/internal/sources/netscape"
)

// Export sends the whole dashboard as a downloadable backup file.
func Export(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc := d.Persist.Export()
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", persist.ExportFileName(doc.ExportedAt)))
		writeJSON(w, http.StatusOK, doc)
	}
}

func Import(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := readBody(r)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		res, err := d.Persist.Import(r.Context(), data)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ImportKind replaces one collection with a JSON array.
func ImportKind(d deps.Deps, kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := readBody(r)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		res, err := d.Persist.ImportKind(r.Context(), kind, data)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		out := map[string]any{kind.String(): res.Replaced[kind]}
		if res.SaveError != "" {
			out["saveError"] = res.SaveError
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type recoverResponse struct {
	Recovered bool           `json:"recovered"`
	Counts    map[string]int `json:"counts"`
}

// Recover restores the last full local snapshot.
func Recover(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, err := d.Persist.RecoverFromSnapshot(r.Context())
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		if !ok {
			writeError(w, d, r, domain.NotFound("recover", fmt.Errorf("no snapshot available")))
			return
		}
		writeJSON(w, http.StatusOK, recoverResponse{Recovered: true, Counts: countsOf(d.Store.Count())})
	}
}

func ExportBookmarksHTML(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := netscape.Write(&buf, d.Store.Bookmarks()); err != nil {
			writeError(w, d, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="bookmarks.html"`)
		_, _ = w.Write(buf.Bytes())
	}
}

// ImportBookmarksHTML merges a browser bookmark file into the bookmarks.
func ImportBookmarksHTML(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := readBody(r)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		entries, err := netscape.Parse(bytes.NewReader(data))
		if err != nil {
			writeError(w, d, r, domain.Validation("import bookmarks html", err))
			return
		}
		res := netscape.Merge(d.Store, entries)
		if res.Added > 0 {
			if err := d.Persist.Persist(r.Context(), domain.KindBookmarks); err != nil {
				writeJSON(w, http.StatusOK, struct {
					netscape.ImportResult
					SaveError string `json:"saveError"`
				}{res, err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, res)
	}
}
