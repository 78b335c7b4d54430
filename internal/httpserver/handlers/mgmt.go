package handlers

import (
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/exchange"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

const (
	defaultExchangeLimit = 50
	maxExchangeLimit     = 1000
)

type accountsResponse struct {
	Accounts []string `json:"accounts"`
}

type speakersResponse struct {
	Speakers []domain.Speaker `json:"speakers"`
}

type presetView struct {
	Slot          string `json:"slot"`
	Name          string `json:"name"`
	Source        string `json:"source"`
	SourceAccount string `json:"sourceAccount,omitempty"`
	SourceID      string `json:"sourceId,omitempty"`
	Type          string `json:"type,omitempty"`
	Location      string `json:"location"`
	ContainerArt  string `json:"containerArt,omitempty"`
	CreatedOn     string `json:"createdOn,omitempty"`
	UpdatedOn     string `json:"updatedOn,omitempty"`
}

type presetsResponse struct {
	Presets []presetView `json:"presets"`
}

type exchangesResponse struct {
	Exchanges []exchange.Entry `json:"exchanges"`
}

// MgmtAccounts lists every account id in the store.
func MgmtAccounts(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := d.Store.ListAccounts()
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, d, http.StatusOK, accountsResponse{Accounts: accounts})
	}
}

// MgmtSpeakers lists the account's registered speakers. Devices whose info
// cannot be read are skipped.
func MgmtSpeakers(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := accountParam(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		if !d.Store.AccountExists(account) {
			http.NotFound(w, r)
			return
		}
		ids, err := d.Store.ListDevices(account)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		speakers := make([]domain.Speaker, 0, len(ids))
		for _, id := range ids {
			info, err := d.Store.GetDeviceInfo(account, id)
			if err != nil {
				d.Logger.Warn("skipping unreadable device",
					logger.String("account", account),
					logger.String("device", id),
					logger.Error(err))
				continue
			}
			speakers = append(speakers, domain.SpeakerFromInfo(account, info))
		}
		writeJSON(w, d, http.StatusOK, speakersResponse{Speakers: speakers})
	}
}

func MgmtPresets(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, device, err := deviceParams(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		presets, err := d.Store.GetPresets(account, device)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		out := make([]presetView, 0, len(presets))
		for _, p := range presets {
			out = append(out, presetView{
				Slot:          p.ID,
				Name:          p.Name,
				Source:        p.Source,
				SourceAccount: p.SourceAccount,
				SourceID:      p.SourceID,
				Type:          p.Type,
				Location:      p.Location,
				ContainerArt:  p.ContainerArt,
				CreatedOn:     p.CreatedOn,
				UpdatedOn:     p.UpdatedOn,
			})
		}
		writeJSON(w, d, http.StatusOK, presetsResponse{Presets: out})
	}
}

// MgmtRemoveDevice deletes a speaker. 404 when it was not registered.
func MgmtRemoveDevice(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, device, err := deviceParams(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		if !d.Store.DeviceExists(account, device) {
			http.NotFound(w, r)
			return
		}
		if err := removeDevice(d, account, device); err != nil {
			writeError(w, r, d, err)
			return
		}
		d.Logger.Info("device removed via management api",
			logger.String("account", account),
			logger.String("device", device))
		w.WriteHeader(http.StatusNoContent)
	}
}

// MgmtExchanges returns the newest logged exchanges, newest first.
func MgmtExchanges(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Exchanges == nil {
			http.Error(w, "exchange history requires redis", http.StatusServiceUnavailable)
			return
		}
		limit := int64(defaultExchangeLimit)
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n < 1 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxExchangeLimit)
		}

		entries, err := d.Exchanges.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		if entries == nil {
			entries = []exchange.Entry{}
		}
		writeJSON(w, d, http.StatusOK, exchangesResponse{Exchanges: entries})
	}
}
