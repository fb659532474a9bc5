package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	Service       string  `json:"service"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
}

// serviceName tells the two binaries apart in probes.
func serviceName(d deps.Deps) string {
	if d.Documents != nil {
		return "dataserver"
	}
	return "dashboard"
}

// Healthz is the liveness probe. It never touches storage.
func Healthz(d deps.Deps) http.HandlerFunc {
	service := serviceName(d)
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			Service:       service,
			UptimeSeconds: d.Now().Sub(d.StartTime).Seconds(),
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
		})
	}
}
