package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskrules_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskrules_http_requests_in_progress",
			Help: "Number of HTTP requests being served",
		},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riskrules_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RulesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskrules_rules_evaluated_total",
			Help: "Total number of rule evaluations by outcome",
		},
		[]string{"outcome"},
	)

	EvaluationSessions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "riskrules_evaluation_sessions_total",
			Help: "Total number of completed rule evaluation sessions",
		},
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskrules_evaluation_duration_seconds",
			Help:    "Time taken to evaluate and persist the rules of one analysis",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// SessionRecorder feeds evaluation sessions into the Prometheus collectors.
type SessionRecorder struct{}

func (SessionRecorder) ObserveSession(rules, matched int, d time.Duration) {
	EvaluationSessions.Inc()
	RulesEvaluated.WithLabelValues("matched").Add(float64(matched))
	RulesEvaluated.WithLabelValues("unmatched").Add(float64(rules - matched))
	EvaluationDuration.Observe(d.Seconds())
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		RequestsInProgress.Inc()
		defer RequestsInProgress.Dec()

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routePattern keeps label cardinality bounded by using the chi pattern
// rather than the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// MetricsHandler exposes the default Prometheus registry
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
