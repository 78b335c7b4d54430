// Package gateway decides, per inbound request, whether to forward to a
// real vendor upstream, serve it locally, or both.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/exchange"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

// Mode selects how matched requests are handled.
type Mode string

const (
	ModeLocal  Mode = "local"  // never forward
	ModeProxy  Mode = "proxy"  // forward, fall back locally on failure
	ModeShadow Mode = "shadow" // forward and render locally, log both
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLocal, ModeProxy, ModeShadow:
		return m, nil
	}
	return "", fmt.Errorf("unknown gateway mode %q (want local, proxy or shadow)", s)
}

const (
	// DefaultForwardTimeout bounds every upstream call.
	DefaultForwardTimeout = 10 * time.Second
	// maxBody caps buffered request and response bodies.
	maxBody = 8 << 20
	// maxLoggedBody caps bodies copied into exchange entries.
	maxLoggedBody = 64 << 10
)

// hopByHop headers are never forwarded in either direction.
var hopByHop = map[string]bool{
	"Host":                true,
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Trailers":            true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// Recorder receives gateway metrics.
type Recorder interface {
	RecordForward(target, outcome string)
	RecordUpstream(target string, status int, d time.Duration)
	SetCircuitOpen(upstream string, open bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordForward(string, string)              {}
func (nopRecorder) RecordUpstream(string, int, time.Duration) {}
func (nopRecorder) SetCircuitOpen(string, bool)               {}

type Options struct {
	Mode      Mode
	Upstreams Upstreams
	Timeout   time.Duration
	Breaker   *Breaker
	Sink      exchange.Sink
	Metrics   Recorder
	Client    *http.Client // optional; built from Timeout when nil
	Now       func() time.Time
}

// Dispatcher is an HTTP middleware sitting in front of the local handlers.
type Dispatcher struct {
	mode      Mode
	upstreams Upstreams
	client    *http.Client
	timeout   time.Duration
	breaker   *Breaker
	sink      exchange.Sink
	metrics   Recorder
	now       func() time.Time
	logger    logger.Logger
}

func NewDispatcher(opts Options, log logger.Logger) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultForwardTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Breaker == nil {
		opts.Breaker = NewBreaker(DefaultCooldown, 1, opts.Now)
	}
	if opts.Sink == nil {
		opts.Sink = exchange.Discard
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.Mode == "" {
		opts.Mode = ModeLocal
	}

	d := &Dispatcher{
		mode:      opts.Mode,
		upstreams: opts.Upstreams,
		client:    opts.Client,
		timeout:   opts.Timeout,
		breaker:   opts.Breaker,
		sink:      opts.Sink,
		metrics:   opts.Metrics,
		now:       opts.Now,
		logger:    log,
	}
	for _, base := range d.upstreams {
		d.metrics.SetCircuitOpen(base, d.breaker.State(base) != StateClosed)
	}
	return d
}

func (d *Dispatcher) Mode() Mode { return d.mode }

func (d *Dispatcher) Breaker() *Breaker { return d.breaker }

// Middleware wraps the local handler chain.
func (d *Dispatcher) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.mode == ModeLocal {
			next.ServeHTTP(w, r)
			return
		}
		target := Match(r.URL.Path)
		base, ok := d.upstreams[target]
		if target == TargetNone || !ok || base == "" {
			next.ServeHTTP(w, r)
			return
		}
		d.dispatch(w, r, next, target, base)
	})
}

func (d *Dispatcher) dispatch(w http.ResponseWriter, r *http.Request, next http.Handler, target Target, base string) {
	start := d.now()

	body, err := readBody(r)
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	upstreamURL := base + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		upstreamURL += "?" + r.URL.RawQuery
	}

	entry := exchange.NewEntry(start)
	entry.RequestID = middleware.GetReqID(r.Context())
	entry.Target = target.String()
	entry.UpstreamURL = upstreamURL
	entry.Request = exchange.Request{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Headers: exchange.FlattenHeaders(forwardHeaders(r.Header)),
		Body:    logBody(body),
	}

	allowed, probe := d.breaker.Allow(base)
	if !allowed {
		entry.Outcome = exchange.OutcomeCircuitOpen
		local := d.serveLocal(w, r, next, body)
		entry.Local = local
		d.finish(r.Context(), &entry, target, start)
		return
	}
	if probe {
		d.logger.Info("circuit half-open, probing upstream",
			logger.String("upstream", base),
			logger.String("path", r.URL.Path))
	}

	resp, respBody, err := d.forward(r, body, upstreamURL)
	latency := d.now().Sub(start)

	if err != nil || isFailureStatus(resp.StatusCode) {
		d.recordFailure(base, target, resp, latency, err)
		entry.Outcome = exchange.OutcomeFallback
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Response = upstreamLog(resp, respBody)
			entry.Error = fmt.Sprintf("%s: upstream returned %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
		}
		entry.Local = d.serveLocal(w, r, next, body)
		d.finish(r.Context(), &entry, target, start)
		return
	}

	d.breaker.Success(base)
	d.metrics.SetCircuitOpen(base, false)
	d.metrics.RecordUpstream(target.String(), resp.StatusCode, latency)
	entry.Response = upstreamLog(resp, respBody)
	entry.Outcome = exchange.OutcomeForwarded

	if d.mode == ModeShadow {
		entry.Outcome = exchange.OutcomeShadow
		entry.Local = d.renderLocal(r, next, body)
		if entry.Local.Status != resp.StatusCode || entry.Local.Body != entry.Response.Body {
			d.logger.Info("shadow mismatch",
				logger.String("path", r.URL.Path),
				logger.Int("upstream_status", resp.StatusCode),
				logger.Int("local_status", entry.Local.Status))
		}
	}

	writeUpstream(w, resp, respBody)
	d.finish(r.Context(), &entry, target, start)
}

func (d *Dispatcher) recordFailure(base string, target Target, resp *http.Response, latency time.Duration, err error) {
	d.breaker.Failure(base)
	open := d.breaker.State(base) != StateClosed
	d.metrics.SetCircuitOpen(base, open)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	d.metrics.RecordUpstream(target.String(), status, latency)

	fields := []logger.Field{
		logger.String("upstream", base),
		logger.Int("status", status),
		logger.Bool("circuit_open", open),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	d.logger.Warn("upstream failed, serving locally", fields...)
}

func (d *Dispatcher) finish(ctx context.Context, e *exchange.Entry, target Target, start time.Time) {
	e.DurationMS = d.now().Sub(start).Milliseconds()
	d.metrics.RecordForward(target.String(), string(e.Outcome))
	if err := d.sink.Record(context.WithoutCancel(ctx), *e); err != nil {
		d.logger.Warn("failed to record exchange",
			logger.String("id", e.ID),
			logger.Error(err))
	}
}

// forward performs the upstream call. The caller going away does not cancel
// it; only the forward timeout does.
func (d *Dispatcher) forward(r *http.Request, body []byte, upstreamURL string) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, r.Method, upstreamURL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = forwardHeaders(r.Header)
	// let the transport negotiate and transparently decode compression
	req.Header.Del("Accept-Encoding")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read body: %v", domain.ErrUpstreamUnavailable, err)
	}
	return resp, respBody, nil
}

// serveLocal runs the local handler against the real writer while keeping
// a copy of what it wrote for the exchange log.
func (d *Dispatcher) serveLocal(w http.ResponseWriter, r *http.Request, next http.Handler, body []byte) *exchange.Response {
	tw := &teeWriter{ResponseWriter: w}
	next.ServeHTTP(tw, withBody(r, body))
	return tw.result()
}

// renderLocal runs the local handler into a buffer only.
func (d *Dispatcher) renderLocal(r *http.Request, next http.Handler, body []byte) *exchange.Response {
	bw := &bufferWriter{header: make(http.Header)}
	next.ServeHTTP(bw, withBody(r, body))
	status := bw.status
	if status == 0 {
		status = http.StatusOK
	}
	return &exchange.Response{
		Status:  status,
		Headers: exchange.FlattenHeaders(bw.header),
		Body:    logBody(bw.buf.Bytes()),
	}
}

func isFailureStatus(code int) bool {
	return code == http.StatusNotFound || code >= 500
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBody {
		return nil, errors.New("body too large")
	}
	return body, nil
}

func withBody(r *http.Request, body []byte) *http.Request {
	r2 := r.Clone(r.Context())
	r2.Body = io.NopCloser(bytes.NewReader(body))
	r2.ContentLength = int64(len(body))
	return r2
}

// forwardHeaders copies h without hop-by-hop headers or headers named in
// Connection.
func forwardHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	drop := map[string]bool{}
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			drop[http.CanonicalHeaderKey(strings.TrimSpace(name))] = true
		}
	}
	for k, v := range h {
		if hopByHop[k] || drop[k] {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}

// writeUpstream relays an upstream response. Framing headers are dropped
// because the body was decoded and re-buffered.
func writeUpstream(w http.ResponseWriter, resp *http.Response, body []byte) {
	for k, v := range forwardHeaders(resp.Header) {
		if k == "Content-Length" || k == "Content-Encoding" {
			continue
		}
		w.Header()[k] = v
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}

func upstreamLog(resp *http.Response, body []byte) *exchange.Response {
	return &exchange.Response{
		Status:  resp.StatusCode,
		Headers: exchange.FlattenHeaders(resp.Header),
		Body:    logBody(body),
	}
}

func logBody(b []byte) string {
	if len(b) > maxLoggedBody {
		b = b[:maxLoggedBody]
	}
	return exchange.DecodeBody(b)
}
