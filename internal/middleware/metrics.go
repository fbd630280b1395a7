package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// The default registry already carries the Go runtime and process
// collectors, so only service metrics live here.

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jijnasa_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jijnasa_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jijnasa_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "endpoint"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jijnasa_active_connections",
			Help: "Number of in-flight requests",
		},
	)

	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jijnasa_llm_requests_total",
			Help: "Total number of model calls by outcome",
		},
		[]string{"model", "provider", "status"},
	)

	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jijnasa_llm_request_duration_seconds",
			Help:    "Model call latency in seconds, request start to stream end",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"model", "provider"},
	)

	llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jijnasa_llm_tokens_total",
			Help: "Total number of tokens exchanged with providers",
		},
		[]string{"model", "provider", "type"}, // type: input, output
	)
)

// SSE chat streams routinely run past ten seconds.
const slowRequestSeconds = 30

// Metrics records request counts, latency, and response sizes per route.
func Metrics(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			activeConnections.Inc()
			defer activeConnections.Dec()

			ww := NewStreamingResponseWriter(w)
			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			endpoint := routePattern(r)
			status := strconv.Itoa(ww.StatusCode())

			httpRequestsTotal.WithLabelValues(r.Method, endpoint, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, endpoint, status).Observe(duration)
			httpResponseSize.WithLabelValues(r.Method, endpoint).Observe(float64(ww.BytesWritten()))

			if duration > slowRequestSeconds {
				logger.Warn("Slow request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Float64("duration", duration),
					zap.Int("status", ww.StatusCode()),
				)
			}
		})
	}
}

// RecordLLMRequest records the outcome of one model call. Status is
// "success", "error", or "cancelled".
func RecordLLMRequest(model, provider string, duration float64, status string) {
	llmRequestsTotal.WithLabelValues(model, provider, status).Inc()
	if status == "success" {
		llmRequestDuration.WithLabelValues(model, provider).Observe(duration)
	}
}

// RecordLLMTokens records provider-reported token usage.
func RecordLLMTokens(model, provider string, inputTokens, outputTokens int) {
	llmTokensTotal.WithLabelValues(model, provider, "input").Add(float64(inputTokens))
	llmTokensTotal.WithLabelValues(model, provider, "output").Add(float64(outputTokens))
}

// routePattern prefers the chi route template so metrics stay low
// cardinality. Unrouted paths fall back to collapsing ids by hand.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if isUUID(part) || isNumeric(part) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func isUUID(s string) bool {
	if len(s) < 32 || len(s) > 36 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '-') {
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
