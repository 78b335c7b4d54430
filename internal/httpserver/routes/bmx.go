package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/handlers"
)

func init() { Register(registerBMX) }

func registerBMX(r chi.Router, d deps.Deps) {
	for _, p := range []string{"/bmx", ""} {
		r.Get(p+"/registry/v1/services", handlers.BMXServices(d))
		r.Get(p+"/orion/v1/playback/station/{data}", handlers.StationPlayback(d))
		r.Post(p+"/orion/v1/playback/station/{data}", handlers.StationPlayback(d))
	}
	r.Get("/core02/svc-bmx-adapter-orion/prod/orion/station", handlers.StationPlayback(d))
	r.Post("/bmx/tunein/v1/report", handlers.Telemetry(d))

	r.Get("/media/{filename}", handlers.Media(d))
	r.Get("/updates/soundtouch", handlers.SWUpdate(d))
	r.Get("/marge/updates/soundtouch", handlers.SWUpdate(d))
}
