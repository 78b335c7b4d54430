package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
	"github.com/MrSnakeDoc/soundgate/internal/utils"
)

type reloadResponse struct {
	Status   string `json:"status"`
	Speakers int    `json:"speakers"`
}

// Reload asks the speaker reloader to rebuild the allowlist from the store.
// The trigger channel holds one pending request; a second one is refused.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := utils.ClientIP(r, d.TrustProxy)
		current := 0
		if d.MemoryIndex != nil {
			current = d.MemoryIndex.Count()
		}

		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("speaker reload requested", logger.String("remote_ip", ip))
			writeJSON(w, d, http.StatusAccepted, reloadResponse{Status: "reload_triggered", Speakers: current})
		default:
			d.Logger.Warn("speaker reload already pending", logger.String("remote_ip", ip))
			w.Header().Set("Retry-After", "1")
			writeJSON(w, d, http.StatusTooManyRequests, reloadResponse{Status: "reload_pending", Speakers: current})
		}
	}
}
