// Package metrics provides Prometheus metrics for the tool server and the web demo.
// It tracks tool calls, upstream API calls, HTTP routing and recovered panics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace for all metrics
const (
	Namespace = "benkyokai"
)

// Tool call outcomes used as the "status" label.
const (
	StatusSuccess         = "success"
	StatusError           = "error"
	StatusValidationError = "validation_error"
	StatusUnknownTool     = "unknown_tool"
	StatusUpstreamError   = "upstream_error"
)

var (
	// ToolCallsTotal counts tool invocations by tool name and outcome
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "tool_calls_total",
		Help:      "Total number of tool invocations",
	}, []string{"tool", "status"})

	// ToolCallDuration measures tool latency distribution
	ToolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "tool_call_duration_seconds",
		Help:      "Tool latency distribution by tool",
		Buckets:   []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"tool"})

	// ToolCallsInFlight tracks currently executing tools
	ToolCallsInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "tool_calls_in_flight",
		Help:      "Number of tool invocations currently being processed",
	}, []string{"tool"})

	// UpstreamRequestsTotal counts third-party API requests
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "upstream_requests_total",
		Help:      "Third-party API requests by service and HTTP status code",
	}, []string{"service", "code"})

	// UpstreamLatency measures third-party API latency
	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "upstream_latency_seconds",
		Help:      "Third-party API latency by service",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service"})

	// UpstreamRetries counts retried upstream requests
	UpstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "upstream_retries_total",
		Help:      "Third-party API retry count by service",
	}, []string{"service"})

	// CircuitState exposes the breaker state per upstream (0 closed, 1 open, 2 half-open)
	CircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "circuit_state",
		Help:      "Circuit breaker state by service (0 closed, 1 open, 2 half-open)",
	}, []string{"service"})

	// RateLimitRejections counts requests rejected by the MCP HTTP rate limiter
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected due to rate limiting",
	})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers and route handlers",
	}, []string{"component"})

	// HTTPRequestsTotal counts routed HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration measures HTTP request latency
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency distribution",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "route"})
)

// RecordToolCall records a completed tool invocation with its duration and outcome
func RecordToolCall(tool string, duration float64, status string) {
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
	ToolCallDuration.WithLabelValues(tool).Observe(duration)
}

// RecordUpstreamCall records a third-party API call. A zero code means no response.
func RecordUpstreamCall(service string, duration float64, code int) {
	label := "none"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	UpstreamRequestsTotal.WithLabelValues(service, label).Inc()
	UpstreamLatency.WithLabelValues(service).Observe(duration)
}

// RecordHTTPRequest records a routed HTTP request
func RecordHTTPRequest(method, route string, status int, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration)
}

// SetCircuitState updates the breaker gauge for a service
func SetCircuitState(service string, state int) {
	CircuitState.WithLabelValues(service).Set(float64(state))
}

// Handler returns the Prometheus exposition handler
func Handler() http.Handler {
	return promhttp.Handler()
}
