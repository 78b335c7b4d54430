// Package metrics exposes gateway and protocol counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements gateway.Recorder on top of Prometheus collectors.
type Collector struct {
	forwards       *prometheus.CounterVec
	upstreamStatus *prometheus.CounterVec
	forwardLatency *prometheus.HistogramVec
	circuitState   *prometheus.GaugeVec
	protocolErrors *prometheus.CounterVec
	speakers       prometheus.Gauge
}

// NewCollector creates the collectors and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		forwards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soundgate_forward_total",
			Help: "Requests per upstream target and gateway outcome.",
		}, []string{"target", "outcome"}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soundgate_upstream_status_total",
			Help: "Upstream responses by status code.",
		}, []string{"target", "status_code"}),
		forwardLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "soundgate_forward_latency_seconds",
			Help:    "Latency of forwarded upstream calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"target"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soundgate_circuit_open",
			Help: "1 when the upstream circuit is open or half-open, 0 when closed.",
		}, []string{"upstream"}),
		protocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soundgate_protocol_errors_total",
			Help: "Protocol requests answered with an error, by code.",
		}, []string{"code"}),
		speakers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soundgate_registered_speakers",
			Help: "Speaker IPs currently in the allowlist.",
		}),
	}

	reg.MustRegister(
		c.forwards,
		c.upstreamStatus,
		c.forwardLatency,
		c.circuitState,
		c.protocolErrors,
		c.speakers,
	)
	return c
}

// RecordForward counts one dispatch decision.
func (c *Collector) RecordForward(target, outcome string) {
	c.forwards.WithLabelValues(target, outcome).Inc()
}

// RecordUpstream records an upstream answer. status 0 means no response.
func (c *Collector) RecordUpstream(target string, status int, d time.Duration) {
	c.upstreamStatus.WithLabelValues(target, strconv.Itoa(status)).Inc()
	c.forwardLatency.WithLabelValues(target).Observe(d.Seconds())
}

func (c *Collector) SetCircuitOpen(upstream string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	c.circuitState.WithLabelValues(upstream).Set(v)
}

func (c *Collector) RecordProtocolError(code string) {
	c.protocolErrors.WithLabelValues(code).Inc()
}

func (c *Collector) SetSpeakers(n int) {
	c.speakers.Set(float64(n))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
