package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/soundgate/internal/codec"
	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
	"github.com/MrSnakeDoc/soundgate/internal/store/filestore"
	"github.com/MrSnakeDoc/soundgate/internal/utils"
)

// AddDevice registers the calling speaker under the account. Its identity
// is read from the speaker's own /info endpoint. The first speaker of a new
// account also seeds the account's presets and recents.
func AddDevice(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := accountParam(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		reg, err := codec.ParseDeviceRegistration(body)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		ip := utils.ClientIP(r, d.TrustProxy)
		info, err := d.Devices.Info(r.Context(), ip)
		if err != nil {
			d.Logger.Warn("speaker info unavailable",
				logger.String("account", account),
				logger.String("device", reg.DeviceID),
				logger.String("ip", ip),
				logger.Error(err))
			writeXML(w, d, http.StatusBadGateway, &codec.Error{
				Code:    "SPEAKER_UNREACHABLE",
				Message: fmt.Sprintf("cannot read device info from %s", ip),
			})
			return
		}

		newAccount := !d.Store.AccountExists(account)
		doc, err := d.Codec.RegisterDevice(account, body, info)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		if newAccount {
			importFromSpeaker(r.Context(), d, account, ip)
		}

		doc.IPAddress = ip
		if stored, err := d.Store.GetDeviceInfo(account, reg.DeviceID); err == nil {
			if stored.IPAddress != "" {
				doc.IPAddress = stored.IPAddress
			}
			if d.MemoryIndex != nil {
				d.MemoryIndex.AddSpeaker(domain.SpeakerFromInfo(account, stored))
			}
		}

		w.Header().Set("ETag", etagValue(d.Store.ETagForAccount(account)))
		w.Header().Set("method_name", "addDevice")
		w.Header().Set("access-control-expose-headers", "Credentials")
		writeXML(w, d, http.StatusCreated, doc)
	}
}

// importFromSpeaker copies the speaker's presets and recents into a new
// account. Failures are logged; the account simply starts empty.
func importFromSpeaker(ctx context.Context, d deps.Deps, account, ip string) {
	collections := []struct {
		file  string
		fetch func(context.Context, string) ([]byte, error)
	}{
		{filestore.PresetsFile, d.Devices.Presets},
		{filestore.RecentsFile, d.Devices.Recents},
	}
	for _, c := range collections {
		data, err := c.fetch(ctx, ip)
		imported := false
		if err == nil {
			imported, err = d.Store.SeedCollection(account, c.file, data)
		}
		if err != nil {
			d.Logger.Warn("import from speaker failed",
				logger.String("account", account),
				logger.String("file", c.file),
				logger.String("ip", ip),
				logger.Error(err))
			continue
		}
		if !imported {
			d.Logger.Info("account already has collection, import skipped",
				logger.String("account", account),
				logger.String("file", c.file))
			continue
		}
		d.Logger.Info("imported from speaker",
			logger.String("account", account),
			logger.String("file", c.file))
	}
}

// RemoveDevice unregisters a speaker. Removing an unknown device succeeds.
func RemoveDevice(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, device, err := deviceParams(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		if err := removeDevice(d, account, device); err != nil {
			writeError(w, r, d, err)
			return
		}
		w.Header().Set("method_name", "removeDevice")
		w.Header().Set("location", fmt.Sprintf("%s/marge/account/%s/device/%s", d.BaseURL, account, device))
		w.WriteHeader(http.StatusOK)
	}
}

func removeDevice(d deps.Deps, account, device string) error {
	unlock := d.Store.Lock(account)
	defer unlock()

	removed, err := d.Store.RemoveDevice(account, device)
	if err != nil {
		return err
	}
	if removed && d.MemoryIndex != nil {
		d.MemoryIndex.RemoveDevice(device)
	}
	return nil
}
