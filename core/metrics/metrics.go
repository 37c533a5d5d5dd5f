// Package metrics exposes call orchestration counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one orchestrator. All Record
// methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal         *prometheus.CounterVec
	CallsEndedTotal    *prometheus.CounterVec
	SlotSearchesTotal  *prometheus.CounterVec
	BookingsTotal      *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	ActiveCalls        prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "salescall"
	}

	registry := prometheus.NewRegistry()

	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of handled turns by the phase they ended in",
		},
		[]string{"phase"},
	)

	callsEndedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_ended_total",
			Help:      "Total number of finished calls by reason",
		},
		[]string{"reason"},
	)

	slotSearchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_searches_total",
			Help:      "Total number of availability lookups by outcome",
		},
		[]string{"outcome"},
	)

	bookingsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Total number of booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	generationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Reply generation duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"status"},
	)

	activeCalls := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_calls",
			Help:      "Number of calls with conversation state in memory",
		},
	)

	registry.MustRegister(
		turnsTotal,
		callsEndedTotal,
		slotSearchesTotal,
		bookingsTotal,
		generationDuration,
		activeCalls,
	)

	return &Metrics{
		registry:           registry,
		TurnsTotal:         turnsTotal,
		CallsEndedTotal:    callsEndedTotal,
		SlotSearchesTotal:  slotSearchesTotal,
		BookingsTotal:      bookingsTotal,
		GenerationDuration: generationDuration,
		ActiveCalls:        activeCalls,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests and for registering process collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordTurn(phase string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(phase).Inc()
}

func (m *Metrics) RecordCallEnded(reason string) {
	if m == nil {
		return
	}
	m.CallsEndedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordSlotSearch(outcome string) {
	if m == nil {
		return
	}
	m.SlotSearchesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordBooking(outcome string) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordGeneration(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.GenerationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// SetActiveCalls reports how many calls the conversation store tracks.
func (m *Metrics) SetActiveCalls(n int) {
	if m == nil {
		return
	}
	m.ActiveCalls.Set(float64(n))
}
