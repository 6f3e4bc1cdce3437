package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30},
		},
		[]string{"route", "method"},
	)

	// AIRequestsTotal counts raw upstream calls by HTTP status class.
	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of upstream AI requests by provider and status",
		},
		[]string{"provider", "status"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Upstream AI request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"provider"},
	)

	// AIAttemptsTotal counts fallback attempts per candidate model.
	AIAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_attempts_total",
			Help: "Model attempts by model, outcome and failure kind",
		},
		[]string{"model", "outcome", "failure"},
	)
	AIAttemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_attempt_duration_seconds",
			Help:    "Duration of a single model attempt in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"model"},
	)
	AICompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_completions_total",
			Help: "Finished orchestrations by result and failure kind",
		},
		[]string{"result", "failure"},
	)
	AIAttemptsPerCompletion = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_attempts_per_completion",
			Help:    "Number of model attempts needed per orchestration",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12},
		},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Estimated tokens by model and direction",
		},
		[]string{"model", "direction"},
	)

	PromptsSavedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prompts_saved_total",
			Help: "Total number of prompt/response pairs saved",
		},
	)
	PromptsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prompts_deleted_total",
			Help: "Total number of saved prompts deleted",
		},
	)
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			AIAttemptsTotal,
			AIAttemptDuration,
			AICompletionsTotal,
			AIAttemptsPerCompletion,
			AITokensTotal,
			PromptsSavedTotal,
			PromptsDeletedTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			// unmatched routes share one label to keep cardinality bounded
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveUpstream records one raw upstream call. status is 0 when no response arrived.
func ObserveUpstream(provider string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status/100) + "xx"
	}
	AIRequestsTotal.WithLabelValues(provider, label).Inc()
	AIRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}
