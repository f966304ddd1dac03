package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var serviceName = "phone-auth-service"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "route", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "route"},
	)

	VerificationCodesRequestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phone_auth_verification_codes_requested_total",
			Help: "Verification codes issued, by delivery outcome.",
		},
		[]string{"service", "result"},
	)

	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phone_auth_login_attempts_total",
			Help: "Credential checks, by login method and result.",
		},
		[]string{"service", "method", "result"},
	)

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phone_auth_rate_limited_total",
			Help: "Requests rejected by the SMS rate limiter, by scope.",
		},
		[]string{"service", "scope"},
	)
)

// MustRegister sets the service label and registers every collector with
// the default Prometheus registry. Call once from main.
func MustRegister(name string) {
	serviceName = name
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		VerificationCodesRequestedTotal,
		LoginAttemptsTotal,
		RateLimitedTotal,
	)
}

func ObserveHTTPRequest(method, route, status string, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(serviceName, method, route, status).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(serviceName, method, route).Observe(elapsed.Seconds())
}

func ObserveCodeRequested(result string) {
	VerificationCodesRequestedTotal.WithLabelValues(serviceName, result).Inc()
}

func ObserveLoginAttempt(method, result string) {
	LoginAttemptsTotal.WithLabelValues(serviceName, method, result).Inc()
}

func ObserveRateLimited(scope string) {
	RateLimitedTotal.WithLabelValues(serviceName, scope).Inc()
}
