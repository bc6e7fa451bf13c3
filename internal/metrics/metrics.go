package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	// TransactionsImported counts bank transactions persisted by the importer
	TransactionsImported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bank_transactions_imported_total",
			Help: "Total number of bank transactions persisted by the importer",
		},
	)

	// IdempotentReplays counts import requests answered from a stored result
	IdempotentReplays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "idempotent_replays_total",
			Help: "Total number of requests replayed from an idempotency record",
		},
	)

	// MatchesProposed counts reconciliation matches persisted as proposed
	MatchesProposed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matches_proposed_total",
			Help: "Total number of reconciliation matches proposed",
		},
	)

	// MatchesConfirmed counts proposed matches confirmed by an operator
	MatchesConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matches_confirmed_total",
			Help: "Total number of reconciliation matches confirmed",
		},
	)

	// AIFallbacks counts explanation requests served by the deterministic template
	// after an AI collaborator failure
	AIFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "explanation_ai_fallbacks_total",
			Help: "Total number of explanations that fell back to the deterministic template",
		},
	)
)

// HTTPMetrics holds configuration and state for HTTP metrics collection
type HTTPMetrics struct {
	ServiceName string
	initialized bool
}

// NewHTTPMetrics creates a new HTTP metrics collector for a specific service
func NewHTTPMetrics(serviceName string) *HTTPMetrics {
	m := &HTTPMetrics{
		ServiceName: serviceName,
	}
	m.register()
	return m
}

// register registers the prometheus metrics if they haven't been registered already
func (m *HTTPMetrics) register() {
	if !m.initialized {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDurationHistogram)
		prometheus.MustRegister(TransactionsImported)
		prometheus.MustRegister(IdempotentReplays)
		prometheus.MustRegister(MatchesProposed)
		prometheus.MustRegister(MatchesConfirmed)
		prometheus.MustRegister(AIFallbacks)
		m.initialized = true
	}
}

// Middleware creates a gin middleware function that records HTTP request metrics
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		method := c.Request.Method
		path := c.FullPath()
		statusStr := strconv.Itoa(status)

		RequestCounter.WithLabelValues(m.ServiceName, method, path, statusStr).Inc()

		duration := time.Since(start).Seconds()
		RequestDurationHistogram.WithLabelValues(m.ServiceName, method, path, statusStr).Observe(duration)
	}
}

// GetPrometheusHandler returns an HTTP handler for exposing Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}
