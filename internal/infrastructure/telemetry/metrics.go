package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Delivery outcomes recorded by the consumer.
const (
	OutcomeDelivered = "delivered"
	OutcomeDuplicate = "duplicate"
	OutcomeDropped   = "dropped"
	OutcomeRequeued  = "requeued"
	OutcomeMalformed = "malformed"
)

// Metrics holds the relay's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	publishes        *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	roomJoins        *prometheus.CounterVec
	openConnections  prometheus.Gauge
	deliveredSockets prometheus.Counter
}

// NewMetrics registers every collector plus the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_relay_publish_total",
			Help: "Message-created events handed to the broker, by result.",
		}, []string{"result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_relay_deliveries_total",
			Help: "Message-created events handled by the delivery consumer, by outcome.",
		}, []string{"outcome"}),
		roomJoins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_relay_room_joins_total",
			Help: "Realtime room join attempts, by outcome.",
		}, []string{"outcome"}),
		openConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_relay_open_connections",
			Help: "Authenticated realtime connections currently open.",
		}),
		deliveredSockets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_relay_socket_writes_total",
			Help: "Frames queued to realtime connections by room fan-out.",
		}),
	}
	reg.MustRegister(
		m.publishes,
		m.deliveries,
		m.roomJoins,
		m.openConnections,
		m.deliveredSockets,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests read counters from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) PublishSucceeded() {
	if m != nil {
		m.publishes.WithLabelValues("ok").Inc()
	}
}

func (m *Metrics) PublishFailed() {
	if m != nil {
		m.publishes.WithLabelValues("error").Inc()
	}
}

func (m *Metrics) Delivery(outcome string, sockets int) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(outcome).Inc()
	if sockets > 0 {
		m.deliveredSockets.Add(float64(sockets))
	}
}

func (m *Metrics) RoomJoin(outcome string) {
	if m != nil {
		m.roomJoins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.openConnections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.openConnections.Dec()
	}
}
