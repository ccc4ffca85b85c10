package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"flex_reviews/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so the vectors have children to export
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveSource("hostaway", "ok", 30*time.Millisecond)
	observability.ObserveParse(2, map[string]int{"date": 1})
	observability.ObserveSave("file", "ok")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"reviews_http_requests_total",
		"reviews_source_attempts_total",
		"reviews_records_skipped_total",
		`reviews_fields_degraded_total{field="date"}`,
		`reviews_snapshot_saves_total{backend="file",result="ok"}`,
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	observability.SetLevel("warn")
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("want warn, got %v", zerolog.GlobalLevel())
	}
	observability.SetLevel("chatty")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %v", zerolog.GlobalLevel())
	}
}
