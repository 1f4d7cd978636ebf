package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "collabhub",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabhub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "collabhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	tokensCredited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabhub",
			Subsystem: "ledger",
			Name:      "tokens_credited_total",
			Help:      "Tokens credited to accounts.",
		},
		[]string{"reason"},
	)

	tokensDebited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabhub",
			Subsystem: "ledger",
			Name:      "tokens_debited_total",
			Help:      "Tokens debited from accounts.",
		},
		[]string{"reason"},
	)

	insufficientFunds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "collabhub",
			Subsystem: "ledger",
			Name:      "insufficient_funds_total",
			Help:      "Debits declined for lack of tokens.",
		},
	)

	integrityViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "collabhub",
			Subsystem: "ledger",
			Name:      "integrity_violations_total",
			Help:      "Writes rejected because the entry sum did not match the balance.",
		},
	)

	applications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabhub",
			Subsystem: "applications",
			Name:      "total",
			Help:      "Application commands by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		tokensCredited,
		tokensDebited,
		insufficientFunds,
		integrityViolations,
		applications,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with request counters. Routes are labelled by
// their chi pattern so ids do not explode cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordCredit(reason string, amount int64) {
	tokensCredited.WithLabelValues(reason).Add(float64(amount))
}

func RecordDebit(reason string, amount int64) {
	tokensDebited.WithLabelValues(reason).Add(float64(amount))
}

func RecordInsufficientFunds() {
	insufficientFunds.Inc()
}

func RecordIntegrityViolation() {
	integrityViolations.Inc()
}

// RecordApplication counts apply/decide/unlock outcomes, e.g. "applied",
// "accepted", "duplicate".
func RecordApplication(outcome string) {
	applications.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
