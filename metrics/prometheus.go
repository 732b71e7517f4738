// Package metrics provides the Prometheus-backed Collector for the FTP
// server and the HTTP status endpoint that exposes it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petrel-ftp/petrel/server"
)

var _ server.Collector = (*Prometheus)(nil)

// Prometheus implements server.Collector on a private registry, so a
// process embedding the server never collides with its own metrics.
type Prometheus struct {
	registry *prometheus.Registry

	commands         *prometheus.CounterVec
	transfers        *prometheus.CounterVec
	transferBytes    *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
	connections      *prometheus.CounterVec
	authentications  *prometheus.CounterVec
	sessions         prometheus.Gauge
}

// NewPrometheus creates a collector with all petrel_* series registered.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,

		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "petrel_commands_total",
			Help: "FTP commands dispatched, by verb and reply code",
		}, []string{"verb", "code"}),

		transfers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "petrel_transfers_total",
			Help: "File transfers attempted, by direction and result",
		}, []string{"direction", "result"}),

		transferBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "petrel_transfer_bytes_total",
			Help: "Bytes moved over data connections, by direction",
		}, []string{"direction"}),

		transferDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "petrel_transfer_duration_seconds",
			Help:    "Transfer wall time, by direction",
			Buckets: prometheus.DefBuckets,
		}, []string{"direction"}),

		connections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "petrel_connections_total",
			Help: "Control connection events (accepted, refused, closed)",
		}, []string{"event"}),

		authentications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "petrel_authentications_total",
			Help: "PASS attempts, by result",
		}, []string{"result"}),

		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "petrel_sessions_active",
			Help: "Sessions currently connected",
		}),
	}
}

// RecordCommand implements server.Collector.
func (p *Prometheus) RecordCommand(verb string, code int) {
	p.commands.WithLabelValues(verb, strconv.Itoa(code)).Inc()
}

// RecordTransfer implements server.Collector.
func (p *Prometheus) RecordTransfer(direction string, bytes int64, duration time.Duration, ok bool) {
	result := "ok"
	if !ok {
		result = "aborted"
	}
	p.transfers.WithLabelValues(direction, result).Inc()
	p.transferBytes.WithLabelValues(direction).Add(float64(bytes))
	p.transferDuration.WithLabelValues(direction).Observe(duration.Seconds())
}

// RecordConnection implements server.Collector.
func (p *Prometheus) RecordConnection(event string) {
	p.connections.WithLabelValues(event).Inc()
	switch event {
	case server.ConnAccepted:
		p.sessions.Inc()
	case server.ConnClosed:
		p.sessions.Dec()
	}
}

// RecordAuthentication implements server.Collector.
func (p *Prometheus) RecordAuthentication(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	p.authentications.WithLabelValues(result).Inc()
}

// Handler exposes the registry in Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
