package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authcore"

// Metrics manages the Prometheus metrics.
type Metrics struct {
	TokensIssued       *prometheus.CounterVec
	TokenValidations   *prometheus.CounterVec
	CacheAccess        *prometheus.CounterVec
	CacheWriteFailures *prometheus.CounterVec
	RateLimitDecisions *prometheus.CounterVec
	UsernameAttempts   *prometheus.CounterVec
	DispatchLatency    *prometheus.HistogramVec
	DispatchErrors     *prometheus.CounterVec

	HTTPRequests       *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
	HTTPActiveRequests *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Total number of signed tokens issued.",
		}, []string{"token_type"}),
		TokenValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_validations_total",
			Help:      "Token validations by outcome.",
		}, []string{"result"}),
		CacheAccess: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_access_total",
			Help:      "Cache reads by family and result (hit, miss, absent).",
		}, []string{"family", "result"}),
		CacheWriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_failures_total",
			Help:      "Failed cache writes by family.",
		}, []string{"family"}),
		RateLimitDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Rate limiter decisions by limit type and outcome.",
		}, []string{"limit_type", "outcome"}),
		UsernameAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "username_attempts_total",
			Help:      "Username collision resolution attempts by outcome.",
		}, []string{"outcome"}),
		DispatchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Command and query handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"bus", "message"}),
		DispatchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_errors_total",
			Help:      "Command and query handler failures.",
		}, []string{"bus", "message"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		HTTPActiveRequests: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_active_requests",
			Help:      "In-flight HTTP requests.",
		}, []string{"path", "method"}),
	}
}

//Personal.AI order the ending
