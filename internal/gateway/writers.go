package gateway

import (
	"bytes"
	"net/http"

	"github.com/MrSnakeDoc/soundgate/internal/exchange"
)

// teeWriter passes writes through and keeps a bounded copy.
type teeWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *teeWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if room := maxLoggedBody - w.buf.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		w.buf.Write(b[:room])
	}
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) result() *exchange.Response {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	return &exchange.Response{
		Status:  status,
		Headers: exchange.FlattenHeaders(w.Header()),
		Body:    exchange.DecodeBody(w.buf.Bytes()),
	}
}

// bufferWriter captures a response without sending it anywhere.
type bufferWriter struct {
	header http.Header
	status int
	buf    bytes.Buffer
}

func (w *bufferWriter) Header() http.Header { return w.header }

func (w *bufferWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *bufferWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.buf.Write(b)
}
