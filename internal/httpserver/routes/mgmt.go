package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/handlers"
)

const mgmtRealm = "soundgate"

func init() { Register(registerMgmt) }

// registerMgmt mounts the admin API. It stays unregistered until
// credentials are configured.
func registerMgmt(r chi.Router, d deps.Deps) {
	if d.MgmtUsername == "" {
		return
	}
	r.Route("/mgmt", func(r chi.Router) {
		if d.MgmtLimiter != nil {
			r.Use(d.MgmtLimiter.Middleware)
		}
		r.Use(middleware.BasicAuth(mgmtRealm, map[string]string{d.MgmtUsername: d.MgmtPassword}))

		r.Get("/accounts", handlers.MgmtAccounts(d))
		r.Get("/accounts/{account}/speakers", handlers.MgmtSpeakers(d))
		r.Get("/accounts/{account}/devices/{device}/presets", handlers.MgmtPresets(d))
		r.Delete("/accounts/{account}/devices/{device}", handlers.MgmtRemoveDevice(d))
		r.Get("/exchanges", handlers.MgmtExchanges(d))
	})
}
