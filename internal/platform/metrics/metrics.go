// Package metrics provides Prometheus metrics for garage-api.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "garage"

// Result labels for metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// SweepRunsTotal counts usage sweeper runs.
	SweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Total number of usage sweeper runs",
		},
		[]string{"result"},
	)

	// SweepReleasedVehiclesTotal counts vehicles released by the sweeper.
	SweepReleasedVehiclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "released_vehicles_total",
			Help:      "Total number of vehicles whose in-use flag was cleared by the sweeper",
		},
	)

	// AuthOutcomesTotal counts authentication gate outcomes by terminal state.
	AuthOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "outcomes_total",
			Help:      "Total number of authentication gate outcomes by state",
		},
		[]string{"state"},
	)

	// UsageConflictRetriesTotal counts optimistic-concurrency retries in the usage state machine.
	UsageConflictRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "usage",
			Name:      "conflict_retries_total",
			Help:      "Total number of vehicle batch saves retried after a version conflict",
		},
	)

	// HTTPRequestsTotal counts served HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes HTTP request latency.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Register adds every collector to reg, along with the Go runtime and
// process collectors.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		SweepRunsTotal,
		SweepReleasedVehiclesTotal,
		AuthOutcomesTotal,
		UsageConflictRetriesTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordSweep records one sweeper run.
func RecordSweep(released int, success bool) {
	if !success {
		SweepRunsTotal.WithLabelValues(ResultFailure).Inc()
		return
	}
	SweepRunsTotal.WithLabelValues(ResultSuccess).Inc()
	SweepReleasedVehiclesTotal.Add(float64(released))
}

// IncrementAuthOutcome records one gate outcome.
func IncrementAuthOutcome(state string) {
	AuthOutcomesTotal.WithLabelValues(state).Inc()
}

// IncrementUsageConflictRetry records one state machine retry.
func IncrementUsageConflictRetry() {
	UsageConflictRetriesTotal.Inc()
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
