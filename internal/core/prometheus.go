package core

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sigcore/pkg/domain"
)

// PrometheusRecorder exports operation latencies and per-document diagnostic
// counts as Prometheus collectors.
type PrometheusRecorder struct {
	durations   *prometheus.HistogramVec
	diagnostics *prometheus.GaugeVec
}

// NewPrometheusRecorder registers the sigcore collectors with reg. A nil reg
// uses the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sigcore_operation_duration_seconds",
			Help:    "Duration of document operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"operation", "status"}),
		diagnostics: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sigcore_diagnostics",
			Help: "Current diagnostics per document and severity.",
		}, []string{"document", "severity"}),
	}
	for _, c := range []prometheus.Collector{r.durations, r.diagnostics} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register prometheus collector: %w", err)
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	r.durations.WithLabelValues(operation, statusLabel(success)).Observe(duration.Seconds())
}

// ObserveDiagnostics implements DiagnosticsObserver. Every severity is set so
// a cleared severity drops back to zero.
func (r *PrometheusRecorder) ObserveDiagnostics(document string, counts map[domain.Severity]int) {
	for _, sev := range []domain.Severity{domain.SeverityError, domain.SeverityWarning, domain.SeverityInfo} {
		r.diagnostics.WithLabelValues(document, string(sev)).Set(float64(counts[sev]))
	}
}
