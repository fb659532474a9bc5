package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
)

// Surface selects which binary a route belongs to.
type Surface int

const (
	Dashboard Surface = 1 << iota
	DataServer

	Both = Dashboard | DataServer
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	surface Surface
	reg     Registrar
	mws     []Middleware
}

var registry []entry

// Register a registrar for surface with optional per-route middlewares.
func Register(surface Surface, reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{surface: surface, reg: reg, mws: mws})
}

// Called once from server.New()
func RegisterAll(r chi.Router, surface Surface, d deps.Deps) {
	for _, e := range registry {
		if e.surface&surface == 0 {
			continue
		}
		if len(e.mws) == 0 {
			e.reg(r, d)
			continue
		}
		sub := r.With(e.mws...) // apply per-route middlewares
		e.reg(sub, d)
	}
}
