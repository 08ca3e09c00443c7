package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for plugin vetting runs
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec
	RejectionsTotal *prometheus.CounterVec
	FindingsTotal   *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	ArtifactBytes   prometheus.Gauge
}

// NewMetrics creates and registers all collectors on registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storenest_plugin_runs_total",
				Help: "Total number of plugin operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		RejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storenest_plugin_rejections_total",
				Help: "Total number of rejected validations by failing stage",
			},
			[]string{"stage"},
		),
		FindingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storenest_plugin_security_findings_total",
				Help: "Total number of security findings by category",
			},
			[]string{"category"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storenest_plugin_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"stage"},
		),
		ArtifactBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "storenest_plugin_artifact_bytes",
				Help: "Size of the last packaged artifact in bytes",
			},
		),
	}

	registry.MustRegister(
		m.RunsTotal,
		m.RejectionsTotal,
		m.FindingsTotal,
		m.StageDuration,
		m.ArtifactBytes,
	)

	return m
}

// RecordRun counts a finished operation
func (m *Metrics) RecordRun(operation, outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordRejection counts a validation stopped at stage
func (m *Metrics) RecordRejection(stage string) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(stage).Inc()
}

// RecordFinding counts a security finding
func (m *Metrics) RecordFinding(category string) {
	if m == nil {
		return
	}
	m.FindingsTotal.WithLabelValues(category).Inc()
}

// ObserveStage records how long a stage took
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// SetArtifactSize records the size of a packaged artifact
func (m *Metrics) SetArtifactSize(bytes int64) {
	if m == nil {
		return
	}
	m.ArtifactBytes.Set(float64(bytes))
}

// WriteTextfile dumps all collectors in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
