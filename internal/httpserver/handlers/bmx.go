package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/soundgate/internal/bmx"
	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

type bmxError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func BMXServices(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := d.Catalog.Services()
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

// StationPlayback turns the base64 station descriptor from the path or the
// data query parameter into a playback response.
func StationPlayback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := chi.URLParam(r, "data")
		if data == "" {
			data = r.URL.Query().Get("data")
		}
		resp, err := bmx.DecodeStation(data)
		if err != nil {
			var perr *domain.ProtocolError
			if errors.As(err, &perr) {
				if d.Metrics != nil {
					d.Metrics.RecordProtocolError(perr.Code)
				}
				writeJSON(w, d, http.StatusBadRequest, bmxError{Code: perr.Code, Message: perr.Message})
				return
			}
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, d, http.StatusOK, resp)
	}
}

func Media(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := bmx.MediaPath(d.MediaDir, chi.URLParam(r, "filename"))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		http.ServeFile(w, r, p)
	}
}

// SWUpdate serves the configured software update index as-is.
func SWUpdate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.SWUpdateFile == "" {
			http.NotFound(w, r)
			return
		}
		body, err := os.ReadFile(d.SWUpdateFile)
		if err != nil {
			d.Logger.Warn("software update file unreadable",
				logger.String("path", d.SWUpdateFile),
				logger.Error(err))
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write(body)
	}
}
