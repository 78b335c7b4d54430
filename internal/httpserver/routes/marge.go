package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/handlers"
)

func init() { Register(registerMarge) }

// margePrefixes: speakers are pointed at {base}/marge, some firmware and
// tools call the vendor paths directly.
var margePrefixes = []string{"/marge", ""}

func registerMarge(r chi.Router, d deps.Deps) {
	r.Get("/", handlers.Root(d))

	for _, p := range margePrefixes {
		s := p + "/streaming"
		r.Get(s+"/account/{account}/device/{device}/presets", handlers.Presets(d))
		r.Put(s+"/account/{account}/device/{device}/preset/{slot}", handlers.UpdatePreset(d))
		r.Get(s+"/account/{account}/device/{device}/recents", handlers.Recents(d))
		r.Post(s+"/account/{account}/device/{device}/recent", handlers.AddRecent(d))
		r.Get(s+"/account/{account}/full", handlers.AccountFull(d))
		r.Get(s+"/account/{account}/provider_settings", handlers.ProviderSettings(d))
		r.Get(s+"/account/{account}/emailaddress", handlers.EmailAddress(d))
		r.Post(s+"/account/{account}/device/", handlers.AddDevice(d))
		r.Delete(s+"/account/{account}/device/{device}", handlers.RemoveDevice(d))
		r.Get(s+"/software/update/account/{account}", handlers.SoftwareUpdate(d))
		r.Get(s+"/sourceproviders", handlers.SourceProviders(d))
		r.Get(s+"/device/{device}/streaming_token", handlers.StreamingToken(d))
		r.Post(s+"/support/power_on", handlers.PowerOn(d))
		r.Post(s+"/support/customersupport", handlers.CustomerSupport(d))
		r.Get(s+"/device_setting/account/{account}/device/{device}/device_settings", handlers.DeviceSettings(d))
		r.Post(s+"/device_setting/account/{account}/device/{device}/device_settings", handlers.UpdateDeviceSettings(d))
		r.Post(s+"/stats/usage", handlers.Telemetry(d))
		r.Post(s+"/stats/error", handlers.Telemetry(d))

		a := p + "/accounts/{account}"
		r.Get(a+"/full", handlers.AccountFull(d))
		r.Get(a+"/devices/{device}/presets", handlers.Presets(d))
		r.Put(a+"/devices/{device}/presets/{slot}", handlers.UpdatePreset(d))
		r.Get(a+"/devices/{device}/recents", handlers.Recents(d))
		r.Post(a+"/devices/{device}/recents", handlers.AddRecent(d))
		r.Post(a+"/devices", handlers.AddDevice(d))
		r.Delete(a+"/devices/{device}", handlers.RemoveDevice(d))
	}
}
