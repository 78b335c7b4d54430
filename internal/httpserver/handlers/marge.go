package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/soundgate/internal/codec"
	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

// swUpdateETag is the change token the vendor served for its last update
// document.
const swUpdateETag = `"1663726921993"`

// serveXML writes v with an ETag, or 304 when the client already has it.
func serveXML(w http.ResponseWriter, r *http.Request, d deps.Deps, etag string, v any) {
	if notModified(w, r, etag) {
		return
	}
	w.Header().Set("ETag", etag)
	writeXML(w, d, http.StatusOK, v)
}

func Presets(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, device, err := deviceParams(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		doc, err := d.Codec.Presets(r.Context(), account, device)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		serveXML(w, r, d, etagValue(d.Store.ETagForPresets(account)), doc)
	}
}

// UpdatePreset replaces one preset slot and answers with that preset only.
func UpdatePreset(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, device, err := deviceParams(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		raw := chi.URLParam(r, "slot")
		slot, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, d, domain.NewInvalidIdentifierError("preset slot", raw))
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		doc, err := d.Codec.UpdatePreset(r.Context(), account, device, slot, body)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		w.Header().Set("ETag", etagValue(d.Store.ETagForPresets(account)))
		writeXML(w, d, http.StatusOK, doc)
	}
}

func Recents(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, device, err := deviceParams(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		doc, err := d.Codec.Recents(r.Context(), account, device)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		serveXML(w, r, d, etagValue(d.Store.ETagForRecents(account)), doc)
	}
}

// AddRecent records a played item and answers with the affected entry.
func AddRecent(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, device, err := deviceParams(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		doc, err := d.Codec.AddRecent(r.Context(), account, device, body)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		w.Header().Set("ETag", etagValue(d.Store.ETagForRecents(account)))
		writeXML(w, d, http.StatusOK, doc)
	}
}

// AccountFull renders the whole account: devices, presets, recents and
// sources.
func AccountFull(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := accountParam(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		doc, err := d.Codec.Account(r.Context(), account)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		w.Header().Set("method_name", "getFullAccount")
		serveXML(w, r, d, etagValue(d.Store.ETagForAccount(account)), doc)
	}
}

func ProviderSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := accountParam(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		w.Header().Set("method_name", "getProviderSettings")
		serveXML(w, r, d, etagValue(d.Store.ETagForRecents(account)), codec.ProviderSettingsFor(account))
	}
}

func SoftwareUpdate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := accountParam(r); err != nil {
			writeError(w, r, d, err)
			return
		}
		serveXML(w, r, d, swUpdateETag, codec.NoSoftwareUpdate())
	}
}

func SourceProviders(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", etagValue(d.Now().UnixMilli()))
		writeXML(w, d, http.StatusOK, codec.AllSourceProviders())
	}
}

// StreamingToken hands the speaker a locally minted bearer token, both in
// the body and the Authorization header.
func StreamingToken(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, bearer := d.Codec.StreamingToken()
		d.Logger.Debug("streaming token issued", logger.String("device", chi.URLParam(r, "device")))
		w.Header().Set("Authorization", bearer)
		writeXML(w, d, http.StatusOK, doc)
	}
}

func PowerOn(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Logger.Debug("speaker power on", logger.String("remote_ip", r.RemoteAddr))
		w.WriteHeader(http.StatusOK)
	}
}

func CustomerSupport(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", codec.ContentType)
		w.WriteHeader(http.StatusOK)
	}
}

func DeviceSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := deviceParams(r); err != nil {
			writeError(w, r, d, err)
			return
		}
		writeXML(w, d, http.StatusOK, codec.DefaultDeviceSettings())
	}
}

// UpdateDeviceSettings accepts and drops the speaker's settings.
func UpdateDeviceSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := deviceParams(r); err != nil {
			writeError(w, r, d, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func EmailAddress(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := codec.Marshal(codec.AccountEmail())
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write(body)
	}
}

// Root answers the speakers' reachability check.
func Root(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d, http.StatusOK, map[string]string{"Bose": "Can't Brick Us"})
	}
}
