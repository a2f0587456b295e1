package core

import (
	"context"
	"time"

	"sigcore/pkg/domain"
)

// MetricsRecorder observes the outcome of document operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// DiagnosticsObserver is implemented by recorders that also track how many
// diagnostics of each severity a document currently carries.
type DiagnosticsObserver interface {
	ObserveDiagnostics(document string, counts map[domain.Severity]int)
}

// Tracer starts spans around document operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

// AuditStatus records whether an audited mutation committed.
type AuditStatus string

// Audit statuses.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one attempted mutation. Target is the entity kind for
// registry mutations and the field reference for field writes.
type AuditEntry struct {
	Document  string
	Operation string
	Target    string
	Action    domain.Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives an entry for every mutation, committed or rejected.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type noopAudit struct{}

func (noopAudit) Record(context.Context, AuditEntry) {}
