// Package metrics exposes Prometheus collectors for reminders, leaflets and the API
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medreminder"

// Leaflet outcomes
const (
	LeafletOK       = "ok"
	LeafletFallback = "fallback"
	LeafletCached   = "cached"
)

// Metrics holds the service collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	remindersScheduled *prometheus.CounterVec
	reminderFailures   *prometheus.CounterVec
	remindersCancelled prometheus.Counter
	remindersDelivered *prometheus.CounterVec
	activeReminders    prometheus.Gauge

	leafletRequests *prometheus.CounterVec
	leafletLatency  prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns a process wide instance for callers without injection
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

// New creates a Metrics with its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		remindersScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_scheduled_total",
			Help:      "Reminders registered with the notification registry.",
		}, []string{"kind"}),
		reminderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_failures_total",
			Help:      "Reminder operations that failed.",
		}, []string{"stage"}),
		remindersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_cancelled_total",
			Help:      "Reminders cancelled in the notification registry.",
		}),
		remindersDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_delivered_total",
			Help:      "Fired reminders handed to delivery channels.",
		}, []string{"result"}),
		activeReminders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_reminders",
			Help:      "Reminders currently registered.",
		}),
		leafletRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaflet_requests_total",
			Help:      "Leaflet summaries served by outcome.",
		}, []string{"outcome"}),
		leafletLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "leaflet_generation_seconds",
			Help:      "Latency of the generative text call.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status.",
		}, []string{"method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		m.remindersScheduled,
		m.reminderFailures,
		m.remindersCancelled,
		m.remindersDelivered,
		m.activeReminders,
		m.leafletRequests,
		m.leafletLatency,
		m.httpRequests,
		m.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordReminderScheduled(kind string) {
	if m == nil {
		return
	}
	m.remindersScheduled.WithLabelValues(kind).Inc()
	m.activeReminders.Inc()
}

func (m *Metrics) RecordReminderFailure(stage string) {
	if m == nil {
		return
	}
	m.reminderFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordReminderCancelled() {
	if m == nil {
		return
	}
	m.remindersCancelled.Inc()
	m.activeReminders.Dec()
}

func (m *Metrics) SetActiveReminders(n int) {
	if m == nil {
		return
	}
	m.activeReminders.Set(float64(n))
}

func (m *Metrics) RecordDelivery(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.remindersDelivered.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordLeaflet(outcome string) {
	if m == nil {
		return
	}
	m.leafletRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordLeafletLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.leafletLatency.Observe(d.Seconds())
}

func (m *Metrics) RecordHTTPRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method).Observe(d.Seconds())
}
