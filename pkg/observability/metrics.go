package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics for the API. Registered on the default registry at
// init so every package can record without plumbing a registry around.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshwork_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meshwork_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshwork_tokens_issued_total",
			Help: "Tokens issued, by kind",
		},
		[]string{"kind"},
	)

	TokenVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshwork_token_verifications_total",
			Help: "Token verification attempts, by result",
		},
		[]string{"result"},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshwork_auth_attempts_total",
			Help: "Password grant attempts, by result",
		},
		[]string{"result"},
	)

	HashDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meshwork_password_hash_duration_seconds",
			Help:    "bcrypt hashing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meshwork_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	RateLimitErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meshwork_ratelimit_errors_total",
			Help: "Rate limiter Redis failures (limiter failed open)",
		},
	)

	UsersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meshwork_users_created_total",
			Help: "Users created through the API",
		},
	)

	MailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshwork_mails_sent_total",
			Help: "Outbound mails, by template and result",
		},
		[]string{"template", "result"},
	)

	ConnectionsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meshwork_connections_pruned_total",
			Help: "Stale connection rows pruned by the background job",
		},
	)
)

// ObserveRequest records one completed HTTP request.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
