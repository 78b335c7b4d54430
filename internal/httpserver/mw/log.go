package mw

import (
	"bytes"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

// maxUnknownBody caps the request body included in unknown-endpoint logs.
const maxUnknownBody = 2000

// statusWriter captures status code and bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	// Ensure status is set if handler wrote body without calling WriteHeader.
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// LogOptions controls what is added to unknown-endpoint log lines.
type LogOptions struct {
	RequestBody    bool
	RequestHeaders bool
}

// Log returns a middleware that logs one line per HTTP request. Requests
// answered with 404 are additionally logged as unknown endpoints, with
// headers and body when enabled, to help map the protocol.
func Log(loggerClient logger.Logger, opts LogOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w}

			var body []byte
			if opts.RequestBody && r.Body != nil {
				body, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			next.ServeHTTP(ww, r)

			if ww.status == 0 {
				ww.status = http.StatusOK
			}
			reqID := middleware.GetReqID(r.Context())
			loggerClient.Info("http_request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.status),
				logger.Int("bytes", ww.bytes),
				logger.Duration("duration", time.Since(start)),
				logger.String("remote_ip", r.RemoteAddr),
				logger.String("user_agent", r.UserAgent()),
				logger.String("request_id", reqID),
			)

			if ww.status == http.StatusNotFound {
				logUnknown(loggerClient, r, body, opts)
			}
		})
	}
}

func logUnknown(log logger.Logger, r *http.Request, body []byte, opts LogOptions) {
	fields := []logger.Field{
		logger.String("method", r.Method),
		logger.String("path", r.URL.Path),
		logger.String("query", r.URL.RawQuery),
	}
	if opts.RequestHeaders {
		fields = append(fields, logger.String("headers", flattenHeaders(r.Header)))
	}
	if opts.RequestBody && len(body) > 0 {
		if len(body) > maxUnknownBody {
			body = body[:maxUnknownBody]
		}
		fields = append(fields, logger.String("body", strings.ToValidUTF8(string(body), "�")))
	}
	log.Info("unknown endpoint", fields...)
}

// flattenHeaders renders headers as "k: v, k: v" without Host.
func flattenHeaders(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		if strings.EqualFold(k, "Host") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(h[k], ", "))
	}
	return strings.Join(parts, ", ")
}
