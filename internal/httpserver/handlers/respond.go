package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/soundgate/internal/codec"
	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

// maxRequestBody caps protocol request bodies.
const maxRequestBody = 1 << 20

// etagValue renders a change token as a strong ETag.
func etagValue(v int64) string {
	return `"` + strconv.FormatInt(v, 10) + `"`
}

// notModified answers 304 when a GET carries the current ETag.
func notModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if r.Header.Get("If-None-Match") != etag {
		return false
	}
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
	return true
}

// writeXML encodes v as a vendor XML document.
func writeXML(w http.ResponseWriter, d deps.Deps, status int, v any) {
	body, err := codec.Marshal(v)
	if err != nil {
		d.Logger.Error("encode xml response", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", codec.ContentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, d deps.Deps, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}

// writeError maps the error taxonomy onto HTTP. Protocol errors carry an
// XML body the speaker can log; storage failures are opaque 500s.
func writeError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	var perr *domain.ProtocolError
	switch {
	case errors.As(err, &perr):
		if d.Metrics != nil {
			d.Metrics.RecordProtocolError(perr.Code)
		}
		d.Logger.Info("protocol error",
			logger.String("path", r.URL.Path),
			logger.String("code", perr.Code),
			logger.String("message", perr.Message))
		writeXML(w, d, http.StatusBadRequest, &codec.Error{Code: perr.Code, Message: perr.Message})
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	default:
		d.Logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// accountParam returns the validated {account} URL parameter.
func accountParam(r *http.Request) (string, error) {
	account := chi.URLParam(r, "account")
	if !domain.ValidAccountID(account) {
		return "", domain.NewInvalidIdentifierError("account", account)
	}
	return account, nil
}

// deviceParams returns the validated {account} and {device} parameters.
func deviceParams(r *http.Request) (account, device string, err error) {
	account, err = accountParam(r)
	if err != nil {
		return "", "", err
	}
	device = chi.URLParam(r, "device")
	if !domain.ValidDeviceID(device) {
		return "", "", domain.NewInvalidIdentifierError("device", device)
	}
	return account, device, nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, domain.NewMalformedPayloadError("request body", err)
	}
	return body, nil
}
