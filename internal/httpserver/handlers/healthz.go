package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Mode          string  `json:"mode"`
	Speakers      int     `json:"speakers"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
}

// Healthz is the liveness probe. It never touches the store or upstreams.
func Healthz(d deps.Deps) http.HandlerFunc {
	mode := "local"
	if d.Dispatcher != nil {
		mode = string(d.Dispatcher.Mode())
	}
	return func(w http.ResponseWriter, r *http.Request) {
		speakers := 0
		if d.MemoryIndex != nil {
			speakers = d.MemoryIndex.Count()
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, d, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: d.Now().Sub(d.StartTime).Round(time.Millisecond).Seconds(),
			Mode:          mode,
			Speakers:      speakers,
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
		})
	}
}
