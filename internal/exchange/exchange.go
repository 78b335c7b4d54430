// Package exchange records forwarded request/response pairs as an
// append-only log for protocol discovery and debugging.
package exchange

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Outcome says what the gateway did with a request.
type Outcome string

const (
	OutcomeForwarded   Outcome = "forwarded"
	OutcomeFallback    Outcome = "fallback"     // forwarded, upstream failed, served locally
	OutcomeCircuitOpen Outcome = "circuit_open" // no network attempt, served locally
	OutcomeShadow      Outcome = "shadow"       // forwarded and rendered locally for comparison
)

type Request struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Query   string            `json:"query"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

type Response struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body"`
}

// Entry is one logged exchange.
type Entry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	Target      string    `json:"target"`
	Outcome     Outcome   `json:"outcome"`
	UpstreamURL string    `json:"upstream_url"`
	Request     Request   `json:"request"`
	Response    *Response `json:"response,omitempty"` // upstream answer, nil when never attempted
	Local       *Response `json:"local,omitempty"`    // local answer on fallback or shadow
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
}

// NewEntry stamps a fresh id and timestamp.
func NewEntry(now time.Time) Entry {
	return Entry{ID: uuid.NewString(), Timestamp: now.UTC()}
}

// Sink persists entries. Implementations must be safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, e Entry) error
	Close() error
}

// DecodeBody renders a body as text when it is valid UTF-8 and as
// "base64:<data>" otherwise.
func DecodeBody(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return "base64:" + base64.StdEncoding.EncodeToString(b)
}

// FlattenHeaders joins repeated header values with ", ".
func FlattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

type multiSink []Sink

// Tee fans entries out to every sink. Nil sinks are skipped.
func Tee(sinks ...Sink) Sink {
	var m multiSink
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multiSink) Record(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every entry.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(context.Context, Entry) error { return nil }
func (discard) Close() error                        { return nil }
