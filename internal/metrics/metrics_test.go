package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubGenerator struct {
	completion string
	err        error
}

func (s stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	return s.completion, s.err
}

func TestInstrumentedGenerator_CountsOutcomes(t *testing.T) {
	gen := InstrumentGenerator(stubGenerator{completion: "fine"}, "identifier")

	before := testutil.ToFloat64(GenerationRequestsTotal.WithLabelValues("identifier", StatusOK))

	if _, err := gen.Generate(context.Background(), "prompt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := testutil.ToFloat64(GenerationRequestsTotal.WithLabelValues("identifier", StatusOK))
	if after != before+1 {
		t.Errorf("expected ok counter to advance by 1, got %f -> %f", before, after)
	}

	if testutil.CollectAndCount(GenerationRequestDuration) == 0 {
		t.Error("expected duration observations")
	}
}

func TestInstrumentedGenerator_CountsErrors(t *testing.T) {
	gen := InstrumentGenerator(stubGenerator{err: errors.New("quota")}, "summary")

	before := testutil.ToFloat64(GenerationRequestsTotal.WithLabelValues("summary", StatusError))

	if _, err := gen.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error from inner generator")
	}

	after := testutil.ToFloat64(GenerationRequestsTotal.WithLabelValues("summary", StatusError))
	if after != before+1 {
		t.Errorf("expected error counter to advance by 1, got %f -> %f", before, after)
	}
}

func TestMetricsMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/ask", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ask", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	requestsVal := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/ask", "200"))
	if requestsVal < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", requestsVal)
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMetricsMiddleware_CapturesStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/bad", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	req := httptest.NewRequest(http.MethodGet, "/bad", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/bad", "400"))
	if val < 1 {
		t.Errorf("expected requests_total for 400 >= 1, got %f", val)
	}
}

func TestNormalizePath(t *testing.T) {
	if got := normalizePath(""); got != "unknown" {
		t.Errorf("normalizePath(\"\") = %q, want unknown", got)
	}

	if got := normalizePath("/healthz"); got != "/healthz" {
		t.Errorf("normalizePath(/healthz) = %q, want /healthz", got)
	}
}

func TestRegisterWorkflowMetricsIsIdempotent(t *testing.T) {
	RegisterWorkflowMetrics()
	RegisterWorkflowMetrics()
}
