package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/soundgate/internal/codec"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

const telemetryLogBytes = 500

// Telemetry swallows the speakers' fire-and-forget analytics posts.
func Telemetry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(io.LimitReader(r.Body, telemetryLogBytes))
		d.Logger.Debug("telemetry",
			logger.String("path", r.URL.Path),
			logger.String("device", chi.URLParam(r, "device")),
			logger.String("body", string(body)))
		w.WriteHeader(http.StatusOK)
	}
}

func CustomerProfile(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account := chi.URLParam(r, "account")
		writeXML(w, d, http.StatusOK, codec.CustomerProfile(account))
	}
}

// UpdateCustomerProfile accepts profile edits without storing them.
func UpdateCustomerProfile(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}
