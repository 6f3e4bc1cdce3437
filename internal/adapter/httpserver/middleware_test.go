package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	obsctx "github.com/fairyhunter13/futureblink-ai/internal/observability"
)

func Test_SecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(204) })).ServeHTTP(rec, r)
	res := rec.Result()
	if res.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing header")
	}
	if res.Header.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing header")
	}
	if res.Header.Get("Content-Security-Policy") != contentSecurityPolicy {
		t.Fatalf("unexpected csp %q", res.Header.Get("Content-Security-Policy"))
	}
}

func Test_RequestID_SetsHeaderAndContext(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	var seen string
	RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = obsctx.RequestIDFromContext(r.Context())
		if LoggerFrom(r) == nil {
			t.Errorf("expected request logger")
		}
		w.WriteHeader(204)
	})).ServeHTTP(rec, r)
	got := rec.Result().Header.Get("X-Request-Id")
	if got == "" || got != seen {
		t.Fatalf("header %q and context %q differ", got, seen)
	}
}

func Test_RequestID_KeepsIncoming(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("X-Request-Id", "abc-123")
	RequestID()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(204) })).ServeHTTP(rec, r)
	if got := rec.Result().Header.Get("X-Request-Id"); got != "abc-123" {
		t.Fatalf("want incoming id, got %q", got)
	}
}

func Test_Recoverer_HandlesPanic(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	Recoverer()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) { panic("boom") })).ServeHTTP(rec, r)
	if rec.Result().StatusCode != http.StatusInternalServerError {
		t.Fatalf("want 500")
	}
	var body errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error == "" || body.Error == "boom" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func Test_TimeoutMiddleware_SetsDeadline(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	TimeoutMiddleware(5*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			w.WriteHeader(http.StatusGatewayTimeout)
		case <-time.After(time.Second):
			w.WriteHeader(http.StatusOK)
		}
	})).ServeHTTP(rec, r)
	if rec.Result().StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("want 504, got %d", rec.Result().StatusCode)
	}
}

func Test_TimeoutMiddleware_ZeroIsNoop(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	TimeoutMiddleware(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			t.Errorf("unexpected deadline")
		}
		w.WriteHeader(204)
	})).ServeHTTP(rec, r)
	if rec.Result().StatusCode != 204 {
		t.Fatalf("want 204")
	}
}

func Test_TraceMiddleware_PassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(204) })).ServeHTTP(rec, r)
	if rec.Result().StatusCode != 204 {
		t.Fatalf("want 204")
	}
}

func Test_AccessLog_PassesStatus(t *testing.T) {
	for _, code := range []int{200, 404, 500} {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/test", nil)
		AccessLog()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(code) })).ServeHTTP(rec, r)
		if rec.Result().StatusCode != code {
			t.Fatalf("want %d, got %d", code, rec.Result().StatusCode)
		}
	}
}

func Test_LoggerFrom_ReturnsDefault(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	r = r.WithContext(context.Background())
	if LoggerFrom(r) == nil {
		t.Fatalf("expected non-nil logger")
	}
}

func Test_newReqID_ConcurrentUnique(t *testing.T) {
	t.Parallel()

	const workers, perWorker = 8, 50
	var (
		mu  sync.Mutex
		ids = make(map[string]bool, workers*perWorker)
		wg  sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := newReqID()
				mu.Lock()
				ids[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(ids) != workers*perWorker {
		t.Fatalf("want %d unique ids, got %d", workers*perWorker, len(ids))
	}
	for id := range ids {
		// ULID is 26 characters
		if len(id) != 26 {
			t.Fatalf("unexpected ID format: %s", id)
		}
	}
}
