// Package metrics contains middlewares and counters for metrics gathering.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTP Requests total counter
var totalRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP Requests.",
	},
	[]string{"path"},
)

// HTTP Response status
var duration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "http_duration",
		Help: "HTTP Requests Duration",
	},
	[]string{"path"},
)

// Booking attempts by outcome
var bookingsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bookings_total",
		Help: "Booking attempts by outcome.",
	},
	[]string{"outcome"},
)

// Expiry sweep executions
var sweepRunsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "expiry_sweep_runs_total",
		Help: "Expiry sweep executions.",
	},
)

// Entries transitioned to no-show by the expiry sweep
var sweptEntriesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "expiry_sweep_entries_total",
		Help: "Agenda entries transitioned to no-show by the expiry sweep.",
	},
)

func init() {
	for _, collector := range []prometheus.Collector{totalRequests, duration, bookingsTotal, sweepRunsTotal, sweptEntriesTotal} {
		if err := prometheus.Register(collector); err != nil {
			panic(err)
		}
	}
}

// PrometheusMiddleware instruments the given request and register metrics.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(duration.WithLabelValues(r.RequestURI))
		next.ServeHTTP(w, r)
		totalRequests.WithLabelValues(r.RequestURI).Inc()
		timer.ObserveDuration()
	})
}

// ObserveBooking registers a booking attempt with the given outcome.
func ObserveBooking(outcome string) {
	bookingsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSweep registers an expiry sweep run and the number of swept entries.
func ObserveSweep(sweptEntries int) {
	sweepRunsTotal.Inc()
	sweptEntriesTotal.Add(float64(sweptEntries))
}
