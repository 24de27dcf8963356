package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flex_reviews/internal/adapters/observability"
)

func scrape(t *testing.T) string {
	t.Helper()
	mh := observability.MetricsHandler(observability.InitRegistry())
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	return string(body)
}

func TestMetricsRegistryAndHandler(t *testing.T) {
	// record one sample so counters are non-zero
	observability.ObserveHTTP("/api/reviews", "GET", 200, 12*time.Millisecond)
	observability.ObserveExternal("hostaway", "/reviews", 200, 30*time.Millisecond)

	out := scrape(t)
	for _, name := range []string{
		"reviews_http_requests_total",
		"reviews_external_requests_total",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestSyncMetrics(t *testing.T) {
	var m observability.SyncMetrics
	m.Records(3)
	m.Batch(true)
	m.Batch(false)
	m.FetchFailed()

	out := scrape(t)
	for _, want := range []string{
		"reviews_sync_records_total",
		`reviews_sync_batches_total{result="ok"}`,
		`reviews_sync_batches_total{result="error"}`,
		"reviews_sync_fetch_failures_total",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output", want)
		}
	}
}
