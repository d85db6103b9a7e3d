// Package exporter mirrors engine events into Prometheus collectors.
package exporter

import (
	"net/http"

	"github.com/ncobase/pulse/alert"
	"github.com/ncobase/pulse/event"
	"github.com/ncobase/pulse/health"
	"github.com/ncobase/pulse/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every exported metric
const DefaultNamespace = "pulse"

// Exporter keeps Prometheus collectors in step with the event stream
type Exporter struct {
	registry *prometheus.Registry

	responseTime        prometheus.Gauge
	throughput          prometheus.Gauge
	errorRate           prometheus.Gauge
	availability        prometheus.Gauge
	memoryUsage         prometheus.Gauge
	cacheHitRate        prometheus.Gauge
	databaseConnections prometheus.Gauge
	activeUsers         prometheus.Gauge
	business            *prometheus.GaugeVec
	serviceHealth       *prometheus.GaugeVec
	serviceLatency      *prometheus.GaugeVec
	alertsRaised        *prometheus.CounterVec
	alertsResolved      prometheus.Counter
	events              *prometheus.CounterVec
}

// New creates an exporter with its own registry
func New(namespace string) *Exporter {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	return &Exporter{
		registry:            registry,
		responseTime:        gauge("response_time_milliseconds", "Average response time over the tracking window"),
		throughput:          gauge("throughput_requests_per_second", "Requests per second over the tracking window"),
		errorRate:           gauge("error_rate_ratio", "Share of failed requests"),
		availability:        gauge("availability_ratio", "Share of requests served without an availability failure"),
		memoryUsage:         gauge("memory_usage_ratio", "Heap allocation relative to the configured limit"),
		cacheHitRate:        gauge("cache_hit_rate_ratio", "Cache hit rate"),
		databaseConnections: gauge("database_connections", "Open database connections"),
		activeUsers:         gauge("active_users", "Recently active users"),
		business: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "business_value",
			Help:      "Domain counters over the trailing business window",
		}, []string{"counter"}),
		serviceHealth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_health",
			Help:      "Service health: 1 healthy, 0.5 degraded, 0 down",
		}, []string{"service"}),
		serviceLatency: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_response_time_milliseconds",
			Help:      "Probe response time per service",
		}, []string{"service"}),
		alertsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Alerts raised by severity",
		}, []string{"severity"}),
		alertsResolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_resolved_total",
			Help:      "Alerts resolved",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events observed on the bus by type",
		}, []string{"type"}),
	}
}

// Handle is an event.Handler updating collectors from evt
func (e *Exporter) Handle(evt event.Event) {
	e.events.WithLabelValues(evt.Type).Inc()

	switch data := evt.Data.(type) {
	case metrics.Sample:
		e.observeSample(data)
	case []health.Result:
		e.observeHealth(data)
	case alert.Alert:
		switch evt.Type {
		case event.TypeAlert:
			e.alertsRaised.WithLabelValues(string(data.Severity)).Inc()
		case event.TypeAlertResolved:
			e.alertsResolved.Inc()
		}
	}
}

func (e *Exporter) observeSample(s metrics.Sample) {
	e.responseTime.Set(s.Performance.ResponseTime)
	e.throughput.Set(s.Performance.Throughput)
	e.errorRate.Set(s.Performance.ErrorRate)
	e.availability.Set(s.Performance.Availability)
	e.memoryUsage.Set(s.Resources.MemoryUsage)
	e.cacheHitRate.Set(s.Resources.CacheHitRate)
	e.databaseConnections.Set(float64(s.Resources.DatabaseConnections))
	e.activeUsers.Set(float64(s.Resources.ActiveUsers))

	e.business.WithLabelValues(metrics.MetricDocumentsCreated).Set(float64(s.Business.DocumentsCreated))
	e.business.WithLabelValues(metrics.MetricSuccesses).Set(float64(s.Business.Successes))
	e.business.WithLabelValues(metrics.MetricFailures).Set(float64(s.Business.Failures))
	e.business.WithLabelValues(metrics.MetricRevenue).Set(s.Business.Revenue)
}

func (e *Exporter) observeHealth(results []health.Result) {
	e.serviceHealth.Reset()
	e.serviceLatency.Reset()
	for _, r := range results {
		e.serviceHealth.WithLabelValues(r.Service).Set(healthValue(r.Status))
		e.serviceLatency.WithLabelValues(r.Service).Set(float64(r.ResponseTime))
	}
}

func healthValue(s health.Status) float64 {
	switch s {
	case health.StatusHealthy:
		return 1
	case health.StatusDegraded:
		return 0.5
	}
	return 0
}

// Registry returns the exporter registry
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus exposition format
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}
