package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/soundgate/internal/gateway"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
)

type componentStatus struct {
	OK             bool   `json:"ok"`
	SpeakersLoaded *int   `json:"speakers_loaded,omitempty"`
	LastReload     string `json:"last_reload,omitempty"`
	Mode           string `json:"mode,omitempty"`
	Impact         string `json:"impact,omitempty"`
	Error          string `json:"error,omitempty"`
}

type infraResponse struct {
	GatewayMode string                     `json:"gateway_mode"`
	Status      string                     `json:"status"`
	Components  map[string]componentStatus `json:"components"`
	Circuits    []gateway.CircuitStatus    `json:"circuits"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		speakersCount := d.MemoryIndex.Count()
		lastReload := d.MemoryIndex.GetLastReload()
		lastReloadStr := "never"
		if !lastReload.IsZero() {
			lastReloadStr = lastReload.Format("2006-01-02 15:04:05")
		}

		components := map[string]componentStatus{
			"allowlist": {
				OK:             !lastReload.IsZero(),
				SpeakersLoaded: &speakersCount,
				LastReload:     lastReloadStr,
			},
			"redis": checkRedis(r.Context(), d),
		}

		response := infraResponse{
			Components: components,
			Circuits:   []gateway.CircuitStatus{},
		}
		if d.Dispatcher != nil {
			response.GatewayMode = string(d.Dispatcher.Mode())
			response.Circuits = d.Dispatcher.Breaker().Snapshot()
		}
		response.Status = determineStatus(components, response.Circuits)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// determineStatus is "degraded" when any circuit is not closed or the
// exchange stream is unreachable, "operational" otherwise.
func determineStatus(components map[string]componentStatus, circuits []gateway.CircuitStatus) string {
	for _, c := range circuits {
		if c.State != gateway.StateClosed {
			return "degraded"
		}
	}
	if redis, exists := components["redis"]; exists && !redis.OK && redis.Mode != "disabled" {
		return "degraded"
	}
	return "operational"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Mode:   "disabled",
			Impact: "exchange-history-file-only",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "exchange-history-unavailable",
			Error:  err.Error(),
		}
	}

	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "exchange-history-enabled",
	}
}
