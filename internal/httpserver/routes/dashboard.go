package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/mw"
)

func init() { Register(Dashboard, registerDashboard) }

func registerDashboard(r chi.Router, d deps.Deps) {
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))

		for _, kind := range domain.Kinds {
			r.Route("/"+kind.String(), func(r chi.Router) {
				r.Get("/", handlers.ListEntities(d, kind))
				r.Post("/", handlers.CreateEntity(d, kind))
				r.Post("/bulk-delete", handlers.BulkDelete(d, kind))
				r.Post("/import", handlers.ImportKind(d, kind))
				r.Patch("/{id}", handlers.UpdateEntity(d, kind))
				r.Delete("/{id}", handlers.DeleteEntity(d, kind))

				switch kind {
				case domain.KindTodos:
					r.Post("/{id}/toggle", handlers.ToggleTodo(d))
					r.Post("/clear-completed", handlers.ClearCompleted(d))
				case domain.KindBookmarks:
					r.Get("/html", handlers.ExportBookmarksHTML(d))
					r.Post("/html", handlers.ImportBookmarksHTML(d))
				}
			})
		}

		r.Get("/settings", handlers.GetSettings(d))
		r.Put("/settings", handlers.PutSettings(d))

		r.Get("/export", handlers.Export(d))
		r.Post("/import", handlers.Import(d))
		r.Post("/recover", handlers.Recover(d))
		r.Get("/infra", handlers.Infra(d))

		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", handlers.SyncStatus(d))
			r.Post("/enable", handlers.SyncEnable(d))
			r.Post("/disable", handlers.SyncDisable(d))
			r.Post("/now", handlers.SyncNow(d))
			r.Post("/trigger", handlers.SyncTrigger(d))
			r.Post("/restore", handlers.SyncRestore(d))
			r.Get("/remote", handlers.SyncRemote(d))
		})
	})
}
