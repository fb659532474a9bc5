package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/mw"
)

func init() { Register(DataServer, registerData) }

func registerData(r chi.Router, d deps.Deps) {
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))
		r.Get("/data", handlers.GetData(d))
		r.With(mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.PostBurst,
			RefillPerIPPerMin: d.PostRefillPerM,
			MaxEntries:        1024,
			TrustProxy:        d.TrustProxy,
		})).Post("/data", handlers.PostData(d))
		r.Get("/status", handlers.DataStatus(d))
	})
}
