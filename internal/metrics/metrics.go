// Package metrics exposes Prometheus collectors for the poll-aggregate-broadcast loop.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "devops_monitor"

// Delivery outcomes.
const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
	DeliveryDiscarded = "discarded"
)

// Metrics holds the collectors and the registry they are registered with.
//
// All methods are safe on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	fetches             *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	aggregations        prometheus.Counter
	aggregationDuration prometheus.Histogram
	deliveries          *prometheus.CounterVec
	skippedTicks        prometheus.Counter
	subscriptions       prometheus.Gauge
	endpointStatus      *prometheus.GaugeVec
}

// New creates a Metrics instance backed by a private registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates a Metrics instance registering into reg.
//
// The monitor's own collectors must not already be registered in reg. The
// Go and process collectors are added only if reg does not carry them yet.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,

		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "requests_total",
				Help:      "Total number of endpoint fetches by outcome.",
			},
			[]string{"url", "outcome"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "duration_seconds",
				Help:      "Duration of endpoint fetches.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"url"},
		),
		aggregations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "aggregator",
				Name:      "snapshots_total",
				Help:      "Total number of snapshots assembled.",
			},
		),
		aggregationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "aggregator",
				Name:      "duration_seconds",
				Help:      "Wall time to assemble one snapshot.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "broadcast",
				Name:      "deliveries_total",
				Help:      "Snapshot deliveries by outcome (delivered, failed, discarded).",
			},
			[]string{"outcome"},
		),
		skippedTicks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "skipped_ticks_total",
				Help:      "Ticks dropped because the previous aggregation was still running.",
			},
		),
		subscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "active_subscriptions",
				Help:      "Current number of active viewer subscriptions.",
			},
		),
		endpointStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "endpoint",
				Name:      "status",
				Help:      "1 for the status most recently derived for the endpoint, 0 otherwise.",
			},
			[]string{"url", "status"},
		),
	}

	m.registry.MustRegister(
		m.fetches,
		m.fetchDuration,
		m.aggregations,
		m.aggregationDuration,
		m.deliveries,
		m.skippedTicks,
		m.subscriptions,
		m.endpointStatus,
	)
	for _, c := range []prometheus.Collector{
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	} {
		var are prometheus.AlreadyRegisteredError
		if err := m.registry.Register(c); err != nil && !errors.As(err, &are) {
			panic(err)
		}
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the registered collectors.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFetch records one endpoint fetch.
func (m *Metrics) RecordFetch(url string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.fetches.WithLabelValues(url, outcome).Inc()
	m.fetchDuration.WithLabelValues(url).Observe(d.Seconds())
}

// RecordAggregation records one assembled snapshot.
func (m *Metrics) RecordAggregation(d time.Duration) {
	if m == nil {
		return
	}
	m.aggregations.Inc()
	m.aggregationDuration.Observe(d.Seconds())
}

// RecordDelivery records a delivery outcome.
func (m *Metrics) RecordDelivery(outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(outcome).Inc()
}

// RecordSkippedTick records a dropped tick.
func (m *Metrics) RecordSkippedTick() {
	if m == nil {
		return
	}
	m.skippedTicks.Inc()
}

// SubscriptionOpened increments the active subscription gauge.
func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.subscriptions.Inc()
}

// SubscriptionClosed decrements the active subscription gauge.
func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.subscriptions.Dec()
}

// SetEndpointStatus marks status as the current status of url, clearing the
// other known statuses.
func (m *Metrics) SetEndpointStatus(url, status string, known []string) {
	if m == nil {
		return
	}
	for _, s := range known {
		v := 0.0
		if s == status {
			v = 1
		}
		m.endpointStatus.WithLabelValues(url, s).Set(v)
	}
}
