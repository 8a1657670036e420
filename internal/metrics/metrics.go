// README: Prometheus collectors for the dispatch lifecycle and the HTTP layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Accept outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	callsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_calls_created_total",
			Help: "Emergency calls created.",
		},
	)

	acceptAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_accept_attempts_total",
			Help: "Driver acceptance attempts by outcome.",
		},
		[]string{"outcome"},
	)

	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_status_transitions_total",
			Help: "Applied call status transitions.",
		},
		[]string{"from", "to"},
	)

	positionUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_vehicle_position_updates_total",
			Help: "Ambulance position reports stored against a call.",
		},
	)

	acceptLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_call_accept_latency_seconds",
			Help:    "Time from call creation to driver acceptance.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_http_requests_total",
			Help: "Total number of HTTP requests received by the API.",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_http_request_duration_seconds",
			Help:    "Duration of HTTP requests handled by the API.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		callsCreatedTotal,
		acceptAttemptsTotal,
		transitionsTotal,
		positionUpdatesTotal,
		acceptLatencySeconds,
		httpRequestsTotal,
		httpRequestDurationSeconds,
	)
}

func CallCreated() {
	callsCreatedTotal.Inc()
}

func AcceptAttempt(outcome string) {
	acceptAttemptsTotal.WithLabelValues(outcome).Inc()
}

func AcceptLatency(seconds float64) {
	acceptLatencySeconds.Observe(seconds)
}

func Transition(from, to string) {
	transitionsTotal.WithLabelValues(from, to).Inc()
}

func PositionUpdate() {
	positionUpdatesTotal.Inc()
}

func HTTPRequest(route, method, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(route, method, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(route, method, status).Observe(seconds)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
