package core

import (
	"go.uber.org/zap"

	"sigcore/internal/catalog"
	"sigcore/internal/help"
	"sigcore/pkg/domain"
)

type options struct {
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	clock   Clock
	catalog *catalog.Catalog
	help    help.ContentSource
}

func (o options) layout() domain.Layout {
	if o.catalog != nil {
		return o.catalog.Layout()
	}
	return catalog.DefaultLayout()
}

// Option configures a Document or Workspace.
type Option func(*options)

func defaultOptions() options {
	return options{
		logger:  zap.NewNop(),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
		clock:   systemClock{},
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics recorder. Recorders that also
// implement DiagnosticsObserver receive diagnostic counts after each change.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(o *options) {
		if rec != nil {
			o.metrics = rec
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithAuditRecorder sets the audit recorder.
func WithAuditRecorder(rec AuditRecorder) Option {
	return func(o *options) {
		if rec != nil {
			o.audit = rec
		}
	}
}

// WithClock sets the clock used for durations and audit timestamps.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithCatalog replaces the default rule catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *options) {
		if c != nil {
			o.catalog = c
		}
	}
}

// WithHelpSource replaces the embedded help content.
func WithHelpSource(src help.ContentSource) Option {
	return func(o *options) {
		if src != nil {
			o.help = src
		}
	}
}
