package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics wraps prometheus collectors for this runner, the
// teacher's PrometheusMetrics shape renamed to coroutine/fetcher/observer
// nouns (SPEC_FULL.md §3).
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Counters
	ticksTotal      *prometheus.CounterVec
	tickExceptions  *prometheus.CounterVec
	fetchesTotal    *prometheus.CounterVec
	circuitTripsTotal *prometheus.CounterVec

	// Histograms
	tickDuration    *prometheus.HistogramVec
	fetchDuration   *prometheus.HistogramVec

	// Gauges
	uptime              prometheus.GaugeFunc
	coroutinesByState   *prometheus.GaugeVec
	observerRegistrySize *prometheus.GaugeVec
	eventQueueDepth     *prometheus.GaugeVec
	atomTableSize       prometheus.Gauge
	circuitBreakerState *prometheus.GaugeVec
}

// defaultBuckets are the default histogram buckets for tick/fetch
// duration, in the unit each histogram's Help string documents.
var defaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

var promMetrics *PrometheusMetrics

// InitPrometheus initializes the Prometheus metrics subsystem.
func InitPrometheus(namespace string, buckets []float64) {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &PrometheusMetrics{
		registry: registry,

		ticksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "coroutine_ticks_total",
				Help:      "Total run_coroutine ticks, by element tag and whether the tick did work",
			},
			[]string{"element", "did_work"},
		),

		tickExceptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "coroutine_tick_exceptions_total",
				Help:      "Ticks that left a pending exception on the coroutine, by element tag",
			},
			[]string{"element"},
		),

		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetcher_requests_total",
				Help:      "Total fetch requests, by URI scheme and terminal outcome",
			},
			[]string{"scheme", "outcome"}, // outcome: success, error, cancelled
		),

		circuitTripsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetcher_circuit_breaker_trips_total",
				Help:      "Total circuit breaker state transitions, by host",
			},
			[]string{"host", "to_state"},
		),

		tickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "coroutine_tick_duration_microseconds",
				Help:      "Duration of a single run_coroutine tick in microseconds",
				Buckets:   buckets,
			},
			[]string{"element"},
		),

		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetcher_request_duration_milliseconds",
				Help:      "Duration of a fetch request in milliseconds",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
			},
			[]string{"scheme", "outcome"},
		),

		coroutinesByState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "coroutines_by_state",
				Help:      "Current number of coroutines in each scheduling state",
			},
			[]string{"state"}, // ready, running, stopped, exited
		),

		observerRegistrySize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "observer_registry_size",
				Help:      "Current number of registered observers by coroutine",
			},
			[]string{"cid"},
		),

		eventQueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "event_queue_depth",
				Help:      "Current number of queued events awaiting drain by coroutine",
			},
			[]string{"cid"},
		),

		atomTableSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "atom_table_size",
				Help:      "Current number of interned atoms",
			},
		),

		circuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "fetcher_circuit_breaker_state",
				Help:      "Current circuit breaker state by host (0=closed, 1=open, 2=half_open)",
			},
			[]string{"host"},
		),
	}

	pm.uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since this runner started",
		},
		func() float64 {
			return time.Since(StartTime()).Seconds()
		},
	)

	registry.MustRegister(
		pm.ticksTotal,
		pm.tickExceptions,
		pm.fetchesTotal,
		pm.circuitTripsTotal,
		pm.tickDuration,
		pm.fetchDuration,
		pm.uptime,
		pm.coroutinesByState,
		pm.observerRegistrySize,
		pm.eventQueueDepth,
		pm.atomTableSize,
		pm.circuitBreakerState,
	)

	promMetrics = pm
}

// RecordPrometheusTick records one run_coroutine tick.
func RecordPrometheusTick(element string, durationUs int64, didWork bool, excepted bool) {
	if promMetrics == nil {
		return
	}
	workLabel := "false"
	if didWork {
		workLabel = "true"
	}
	promMetrics.ticksTotal.WithLabelValues(element, workLabel).Inc()
	if excepted {
		promMetrics.tickExceptions.WithLabelValues(element).Inc()
	}
	promMetrics.tickDuration.WithLabelValues(element).Observe(float64(durationUs))
}

// RecordPrometheusFetch records one completed fetch.
func RecordPrometheusFetch(scheme, outcome string, durationMs int64) {
	if promMetrics == nil {
		return
	}
	promMetrics.fetchesTotal.WithLabelValues(scheme, outcome).Inc()
	promMetrics.fetchDuration.WithLabelValues(scheme, outcome).Observe(float64(durationMs))
}

// SetCoroutinesByState sets the current coroutine count for one
// scheduling state.
func SetCoroutinesByState(state string, count int) {
	if promMetrics == nil {
		return
	}
	promMetrics.coroutinesByState.WithLabelValues(state).Set(float64(count))
}

// SetObserverRegistrySize sets the current observer count for one
// coroutine id.
func SetObserverRegistrySize(cid string, size int) {
	if promMetrics == nil {
		return
	}
	promMetrics.observerRegistrySize.WithLabelValues(cid).Set(float64(size))
}

// SetEventQueueDepth sets the current queued-event count for one
// coroutine id.
func SetEventQueueDepth(cid string, depth int) {
	if promMetrics == nil {
		return
	}
	promMetrics.eventQueueDepth.WithLabelValues(cid).Set(float64(depth))
}

// SetAtomTableSize sets the current interned-atom count.
func SetAtomTableSize(size int) {
	if promMetrics == nil {
		return
	}
	promMetrics.atomTableSize.Set(float64(size))
}

// SetCircuitBreakerState sets the circuit breaker state gauge for a host.
// state: 0=closed, 1=open, 2=half_open.
func SetCircuitBreakerState(host string, state int) {
	if promMetrics == nil {
		return
	}
	promMetrics.circuitBreakerState.WithLabelValues(host).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker state transition.
func RecordCircuitBreakerTrip(host, toState string) {
	if promMetrics == nil {
		return
	}
	promMetrics.circuitTripsTotal.WithLabelValues(host, toState).Inc()
}

// PrometheusHandler returns an HTTP handler for Prometheus metrics
// scraping.
func PrometheusHandler() http.Handler {
	if promMetrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("prometheus metrics not initialized"))
		})
	}
	return promhttp.HandlerFor(promMetrics.registry, promhttp.HandlerOpts{})
}

// PrometheusRegistry returns the prometheus registry, for registering
// additional custom collectors.
func PrometheusRegistry() *prometheus.Registry {
	if promMetrics == nil {
		return nil
	}
	return promMetrics.registry
}
