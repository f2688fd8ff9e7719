package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vaultscope"

// Metrics groups the collectors exported by vaultScope. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	UpstreamCalls     *prometheus.CounterVec
	UpstreamDuration  *prometheus.HistogramVec
	CurveTicks        prometheus.Histogram
	ImpactSimulations *prometheus.CounterVec
	WatchedEvents     *prometheus.CounterVec
	WatchedBlock      prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		UpstreamCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "reads_total",
			Help:      "Pool reads by method and outcome",
		}, []string{"method", "status"}),
		UpstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "read_duration_seconds",
			Help:      "Pool read latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		CurveTicks: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "curve_ticks",
			Help:      "Number of ticks in each built liquidity curve",
			Buckets:   []float64{1, 5, 11, 21, 51, 101, 201, 501, 1001},
		}),
		ImpactSimulations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "impact_simulations_total",
			Help:      "Price impact simulations by status",
		}, []string{"status"}),
		WatchedEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "events_total",
			Help:      "Decoded pool events by name",
		}, []string{"event"}),
		WatchedBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "last_block",
			Help:      "Last block processed by the watcher",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRead records one pool read.
func (m *Metrics) ObserveRead(method string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.UpstreamCalls.WithLabelValues(method, status).Inc()
	m.UpstreamDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, started time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(time.Since(started).Seconds())
}

// ObserveCurve records the size of a built curve.
func (m *Metrics) ObserveCurve(ticks int) {
	if m == nil {
		return
	}
	m.CurveTicks.Observe(float64(ticks))
}

// ObserveImpact counts a simulation outcome.
func (m *Metrics) ObserveImpact(status string) {
	if m == nil {
		return
	}
	m.ImpactSimulations.WithLabelValues(status).Inc()
}

// ObserveEvent counts a decoded pool event at block.
func (m *Metrics) ObserveEvent(name string, block uint64) {
	if m == nil {
		return
	}
	m.WatchedEvents.WithLabelValues(name).Inc()
	m.WatchedBlock.Set(float64(block))
}
