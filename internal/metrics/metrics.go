// Package metrics exposes Prometheus counters for ingestion and file transfer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for clientbook.
// Each instance owns its registry so tests and multiple gateways never collide.
type Metrics struct {
	registry *prometheus.Registry

	Outcomes        *prometheus.CounterVec
	ExportRows      *prometheus.CounterVec
	ImportRows      *prometheus.CounterVec
	ImportFailures  prometheus.Counter
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clientbook_submissions_total",
			Help: "Submitted numbers by classification",
		}, []string{"outcome"}),
		ExportRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clientbook_export_rows_total",
			Help: "Rows written by exports",
		}, []string{"format"}),
		ImportRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clientbook_import_rows_total",
			Help: "Imported rows by result",
		}, []string{"result"}),
		ImportFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "clientbook_import_failures_total",
			Help: "Imports refused as a whole",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clientbook_http_request_duration_seconds",
			Help:    "Gateway request duration by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "status"}),
	}
}

// RecordOutcome adds count submissions with the given classification.
func (m *Metrics) RecordOutcome(outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Add(float64(count))
}

// RecordExport adds exported rows for format.
func (m *Metrics) RecordExport(format string, rows int) {
	if m == nil {
		return
	}
	m.ExportRows.WithLabelValues(format).Add(float64(rows))
}

// RecordImport adds the per-row results of one import.
func (m *Metrics) RecordImport(added, duplicates, skipped int) {
	if m == nil {
		return
	}
	m.ImportRows.WithLabelValues("added").Add(float64(added))
	m.ImportRows.WithLabelValues("duplicate").Add(float64(duplicates))
	m.ImportRows.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordImportFailure counts an import refused as malformed or failed in storage.
func (m *Metrics) RecordImportFailure() {
	if m == nil {
		return
	}
	m.ImportFailures.Inc()
}

// ObserveRequest records a gateway request duration.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveRequest(route, status string, start time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(time.Since(start).Seconds())
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
