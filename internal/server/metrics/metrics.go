// Package metrics exposes the server's Prometheus collectors on a private
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophstream"

type Metrics struct {
	registry          *prometheus.Registry
	handshakes        *prometheus.CounterVec
	chunksServed      *prometheus.CounterVec
	licenseRejections *prometheus.CounterVec
	requests          *prometheus.CounterVec
}

// New registers the collectors. sessions reports the live session count at
// scrape time and may be nil.
func New(sessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		handshakes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handshakes_total",
				Help:      "Key exchanges by result.",
			},
			[]string{"result"},
		),
		chunksServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_served_total",
				Help:      "Media chunks delivered, by media id.",
			},
			[]string{"media_id"},
		),
		licenseRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "license_rejections_total",
				Help:      "Requests refused by the license ledger, by error code.",
			},
			[]string{"code"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code.",
			},
			[]string{"route", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.handshakes,
		m.chunksServed,
		m.licenseRejections,
		m.requests,
	)

	if sessions != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions",
				Help:      "Live protocol sessions.",
			},
			func() float64 { return float64(sessions()) },
		))
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Handshake(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.handshakes.WithLabelValues(result).Inc()
}

func (m *Metrics) ChunkServed(mediaID string) {
	if m == nil {
		return
	}
	m.chunksServed.WithLabelValues(mediaID).Inc()
}

func (m *Metrics) LicenseRejected(code string) {
	if m == nil {
		return
	}
	m.licenseRejections.WithLabelValues(code).Inc()
}

func (m *Metrics) Request(route string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
