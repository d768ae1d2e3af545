package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds Prometheus collectors for the weather collector.
type Metrics struct {
	Registry *prometheus.Registry

	// Cycle metrics
	CyclesTotal        prometheus.Counter
	CycleDuration      prometheus.Histogram
	CycleLocations     *prometheus.CounterVec // by outcome
	LastCycleTimestamp prometheus.Gauge

	// Upstream API metrics
	FetchTotal    *prometheus.CounterVec // by result
	FetchDuration prometheus.Histogram
	GeocodeTotal  *prometheus.CounterVec // by result

	// RabbitMQ metrics
	PublishTotal    *prometheus.CounterVec // by routing_key, result
	ConnectAttempts *prometheus.CounterVec // by result
	BrokerConnected prometheus.Gauge

	// Cache metrics
	CacheDuration   *prometheus.HistogramVec
	CacheOperations *prometheus.CounterVec

	ServiceUptime prometheus.Gauge
}

// NewMetrics creates and registers all metrics under the given namespace on
// a private registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		Registry: registry,
		CyclesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Collection cycles run",
			},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of collection cycles",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		CycleLocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycle_locations_total",
				Help:      "Locations processed per outcome",
			},
			[]string{"outcome"},
		),
		LastCycleTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_cycle_timestamp_seconds",
				Help:      "UNIX time the last cycle finished",
			},
		),
		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_fetch_total",
				Help:      "Weather API fetches",
			},
			[]string{"result"},
		),
		FetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "weather_fetch_duration_seconds",
				Help:      "Weather API fetch latency",
				Buckets:   prometheus.DefBuckets,
			},
		),
		GeocodeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "geocode_lookups_total",
				Help:      "Reverse geocoding lookups",
			},
			[]string{"result"},
		),
		PublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rabbit_publish_total",
				Help:      "RabbitMQ publish attempts",
			},
			[]string{"routing_key", "result"},
		),
		ConnectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rabbit_connect_attempts_total",
				Help:      "RabbitMQ dial attempts",
			},
			[]string{"result"},
		),
		BrokerConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rabbit_connected",
				Help:      "1 while a RabbitMQ session is open",
			},
		),
		CacheDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_operation_duration_seconds",
				Help:      "Cache operation latencies",
			},
			[]string{"operation"},
		),
		CacheOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_operations_total",
				Help:      "Cache operation counts",
			},
			[]string{"operation", "result"},
		),
		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "service_start_timestamp_seconds",
				Help:      "UNIX time the service started",
			},
		),
	}

	registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.CycleLocations,
		m.LastCycleTimestamp,
		m.FetchTotal,
		m.FetchDuration,
		m.GeocodeTotal,
		m.PublishTotal,
		m.ConnectAttempts,
		m.BrokerConnected,
		m.CacheDuration,
		m.CacheOperations,
		m.ServiceUptime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.ServiceUptime.Set(float64(time.Now().Unix()))

	return m
}

// ObserveLatency and IncrementCounter let Metrics serve as the cache
// decorator's collector.
func (m *Metrics) ObserveLatency(op string, d time.Duration) {
	m.CacheDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) IncrementCounter(metric string, labels ...string) {
	result := ResultSuccess
	if len(labels) > 0 {
		result = labels[0]
	}
	m.CacheOperations.WithLabelValues(metric, result).Inc()
}

func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
