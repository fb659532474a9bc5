package deps

import (
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/docstore"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/persist"
	"github.com/MrSnakeDoc/dashsync/internal/store"
	"github.com/MrSnakeDoc/dashsync/internal/syncer"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed to access the server
	AllowedCIDRS []string         // IPs allowed to access the API
	TrustProxy   bool             // true if running behind a trusted reverse proxy
	CORSOrigins  []string         // Origins allowed by CORS, empty = "*"

	// Dashboard surface
	Store   *store.Store         // canonical in-memory state
	Persist *persist.Adapter     // local durable storage
	Sync    *syncer.Orchestrator // remote sync state machine

	// Data server surface
	Documents      docstore.Store // the single stored document
	PostBurst      int            // POST /api/data burst per client IP
	PostRefillPerM int            // POST /api/data tokens refilled per minute
}

// Now returns TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
