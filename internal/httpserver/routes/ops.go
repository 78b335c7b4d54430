package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/soundgate/internal/metrics"
)

func init() { Register(registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
	r.Get("/readyz", handlers.Readyz(d))
	r.Get("/infra", handlers.Infra(d))
	r.Post("/reload", handlers.Reload(d))
	if d.Gatherer != nil {
		r.Method("GET", "/metrics", metrics.Handler(d.Gatherer))
	}
}
