package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"clientbook/internal/metrics"
)

func TestRecordersUpdateCounters(t *testing.T) {
	m := metrics.New()
	m.RecordOutcome("added", 2)
	m.RecordOutcome("added", 1)
	m.RecordOutcome("invalid", 0)
	m.RecordImport(3, 1, 2)
	m.RecordImportFailure()
	m.RecordExport("csv", 5)

	if got := testutil.ToFloat64(m.Outcomes.WithLabelValues("added")); got != 3 {
		t.Fatalf("added = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.ImportRows.WithLabelValues("skipped")); got != 2 {
		t.Fatalf("skipped = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ImportFailures); got != 1 {
		t.Fatalf("failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ExportRows.WithLabelValues("csv")); got != 5 {
		t.Fatalf("export rows = %v, want 5", got)
	}
}

func TestNewIsRepeatable(t *testing.T) {
	first := metrics.New()
	second := metrics.New()
	first.RecordOutcome("duplicate", 1)
	if got := testutil.ToFloat64(second.Outcomes.WithLabelValues("duplicate")); got != 0 {
		t.Fatalf("registries should be independent, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := metrics.New()
	m.RecordOutcome("added", 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `clientbook_submissions_total{outcome="added"} 1`) {
		t.Fatalf("expected submissions counter in output:\n%s", body)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.RecordOutcome("added", 1)
	m.RecordImport(1, 1, 1)
	m.RecordImportFailure()
	m.RecordExport("xlsx", 1)
}
