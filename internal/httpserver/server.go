// internal/httpserver/server.go
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/mw"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/routes"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
)

// DefaultRequestTimeout leaves room for a remote call bounded at 10s.
const DefaultRequestTimeout = 15 * time.Second

// Options configures the listener.
type Options struct {
	Addr           string        // ex: ":8080"
	RequestTimeout time.Duration // per-request timeout, DefaultRequestTimeout when zero
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http    *http.Server
	logger  logger.Logger
	started time.Time
}

// Handler builds the router of surface (middlewares and route registration).
func Handler(surface routes.Surface, timeout time.Duration, loggerClient logger.Logger, d deps.Deps) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	r := chi.NewRouter()

	// --- Global middlewares
	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)               // X-Request-ID on each request
	r.Use(middleware.Recoverer)               // never crash the process on panic
	r.Use(middleware.Timeout(timeout))        // per-request timeout
	r.Use(mw.Log(loggerClient, d.TrustProxy)) // structured access logs
	r.Use(mw.CORS(d.CORSOrigins...))          // browser dashboards live on other origins

	routes.RegisterAll(r, surface, d)
	return r
}

// New builds the HTTP server for surface.
func New(opts Options, surface routes.Surface, loggerClient logger.Logger, d deps.Deps) *Server {
	s := &http.Server{
		Addr:              opts.Addr,
		Handler:           Handler(surface, opts.RequestTimeout, loggerClient, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{
		http:    s,
		logger:  loggerClient,
		started: d.StartTime,
	}
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Infof("HTTP server listening on %s", ln.Addr())
	err := s.http.Serve(ln)
	// http.ErrServerClosed is expected on graceful shutdown.
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...")
	return s.http.Shutdown(ctx)
}
