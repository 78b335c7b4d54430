package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/handlers"
)

func init() { Register(registerStubs) }

func registerStubs(r chi.Router, d deps.Deps) {
	r.Post("/v1/scmudc/{device}", handlers.Telemetry(d))
	r.Post("/v1/stapp/{device}", handlers.Telemetry(d))
	r.Get("/customer/account/{account}", handlers.CustomerProfile(d))
	r.Post("/customer/account/{account}", handlers.UpdateCustomerProfile(d))
	r.Post("/oauth/device/{device}/music/musicprovider/{provider}/token/{type}", handlers.OAuthToken(d))
}
