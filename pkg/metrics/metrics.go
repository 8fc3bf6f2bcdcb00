package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultExpired = "expired"
	ResultInvalid = "invalid"
)

var (
	registerOnce sync.Once

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "prompthub_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthub_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prompthub_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthub_auth_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	tokenVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthub_token_verifications_total",
			Help: "Bearer token verifications by result.",
		},
		[]string{"result"},
	)
)

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			loginsTotal,
			tokenVerificationsTotal,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordLogin(result string) {
	loginsTotal.WithLabelValues(result).Inc()
}

func RecordTokenVerification(result string) {
	tokenVerificationsTotal.WithLabelValues(result).Inc()
}

// Instrument records request count, latency and in-flight gauge. The route
// label is the chi route pattern so ids do not explode cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
