package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/warehouse-desktop/internal/lifecycle"
)

const (
	metricsNamespace = "warehouse"
	metricsSubsystem = "desktop"
)

var (
	httpBuckets    = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	startupBuckets = []float64{0.5, 1, 2, 5, 10, 15, 20, 30, 45, 60}
)

// Metrics holds the Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	startups      *prometheus.CounterVec
	probeAttempts prometheus.Gauge
	timeToReady   prometheus.Histogram
	state         *prometheus.GaugeVec

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	clientsOnce sync.Once
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "lifecycle_transitions_total",
		Help:      "Lifecycle transitions by target state",
	}, []string{"state"})

	m.startups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "backend_startups_total",
		Help:      "Backend startup attempts by outcome (ready, timed_out, failed)",
	}, []string{"outcome"})

	m.probeAttempts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "readiness_probe_attempts",
		Help:      "Health requests made by the last readiness wait",
	})

	m.timeToReady = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "backend_time_to_ready_seconds",
		Help:      "Time from spawn until the backend health check answered 200",
		Buckets:   startupBuckets,
	})

	m.state = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "lifecycle_state",
		Help:      "1 for the current lifecycle state, 0 otherwise",
	}, []string{"state"})

	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "http_requests_total",
		Help:      "Count of processed status API requests",
	}, []string{"method", "route", "status"})

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "http_request_duration_seconds",
		Help:      "Latency distribution of status API handlers",
		Buckets:   httpBuckets,
	}, []string{"method", "route", "status"})

	m.registry.MustRegister(
		m.transitions, m.startups, m.probeAttempts, m.timeToReady, m.state,
		m.requestTotal, m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// registerClients exposes the websocket client count. Only the first call registers.
func (m *Metrics) registerClients(count func() int) {
	m.clientsOnce.Do(func() {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "websocket_clients",
			Help:      "Connected transition stream clients",
		}, func() float64 { return float64(count()) }))
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe updates the lifecycle collectors for t.
func (m *Metrics) Observe(t lifecycle.Transition) {
	m.transitions.WithLabelValues(string(t.To)).Inc()

	if t.From != "" {
		m.state.WithLabelValues(string(t.From)).Set(0)
	}
	m.state.WithLabelValues(string(t.To)).Set(1)

	if t.Readiness != nil {
		m.probeAttempts.Set(float64(t.Readiness.Attempts))
		m.startups.WithLabelValues(string(t.Readiness.Outcome)).Inc()
		if t.Readiness.IsReady() {
			m.timeToReady.Observe(t.Readiness.Elapsed.Seconds())
		}
	}
	if t.To == lifecycle.StateFailed {
		m.startups.WithLabelValues("failed").Inc()
	}
}

func (m *Metrics) recordRequest(method, route string, status int, d time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestDuration.With(labels).Observe(d.Seconds())
}
