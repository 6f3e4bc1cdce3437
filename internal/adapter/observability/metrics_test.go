package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/futureblink-ai/internal/domain"
	"github.com/fairyhunter13/futureblink-ai/internal/usecase"
)

func TestHTTPMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Delete("/api/prompts/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/api/prompts/{id}", http.MethodDelete, "204"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/prompts/abc", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/api/prompts/{id}", http.MethodDelete, "204"))
	assert.Equal(t, before+1, after)
}

func TestHTTPMetricsMiddleware_OutsideRouter(t *testing.T) {
	rec := httptest.NewRecorder()
	mw := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }))
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("unmatched", http.MethodGet, "200"))
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("unmatched", http.MethodGet, "200")))
}

func TestInitMetrics_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		InitMetrics()
		InitMetrics()
	})
}

func TestObserveUpstream(t *testing.T) {
	before := testutil.ToFloat64(AIRequestsTotal.WithLabelValues("openrouter", "4xx"))
	ObserveUpstream("openrouter", 429, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(AIRequestsTotal.WithLabelValues("openrouter", "4xx")))

	beforeErr := testutil.ToFloat64(AIRequestsTotal.WithLabelValues("openrouter", "error"))
	ObserveUpstream("openrouter", 0, time.Millisecond)
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(AIRequestsTotal.WithLabelValues("openrouter", "error")))
}

func TestAskObserver(t *testing.T) {
	o := NewAskObserver(nil)
	ctx := context.Background()

	attempts := AIAttemptsTotal.WithLabelValues("m1", "retryable", "rate_limited")
	before := testutil.ToFloat64(attempts)
	o.ObserveAttempt(ctx, usecase.Attempt{Model: "m1", Outcome: usecase.OutcomeRetryable, Failure: domain.FailureRateLimited, Duration: time.Second})
	assert.Equal(t, before+1, testutil.ToFloat64(attempts))

	okBefore := testutil.ToFloat64(AICompletionsTotal.WithLabelValues("success", "none"))
	o.ObserveResult(ctx, "hi", domain.CompletionResult{Success: true, Model: "m2", Response: "yo", Attempts: 2})
	assert.Equal(t, okBefore+1, testutil.ToFloat64(AICompletionsTotal.WithLabelValues("success", "none")))

	failBefore := testutil.ToFloat64(AICompletionsTotal.WithLabelValues("failure", "upstream_unreachable"))
	o.ObserveResult(ctx, "hi", domain.CompletionResult{Success: false, Kind: domain.FailureUpstreamUnreachable, Attempts: 1})
	assert.Equal(t, failBefore+1, testutil.ToFloat64(AICompletionsTotal.WithLabelValues("failure", "upstream_unreachable")))
}
