package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"sigcore/pkg/domain"
)

var expvarSeq uint64

// ExpvarMetricsRecorder publishes per-operation timings and outcome counts,
// plus the current diagnostic counts of every document, through expvar.
type ExpvarMetricsRecorder struct {
	name        string
	mu          sync.Mutex
	durations   map[string]float64
	results     map[string]map[string]int64
	diagnostics map[string]map[domain.Severity]int
}

// ExpvarMetricsSnapshot is a read-only copy of the recorded metrics.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64                 `json:"durations_ms_total"`
	Results     map[string]map[string]int64        `json:"results_total"`
	Diagnostics map[string]map[domain.Severity]int `json:"diagnostics"`
	RecordedAt  time.Time                          `json:"recorded_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated sigcore_document_metrics_N name when name is empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("sigcore_document_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{
		name:        name,
		durations:   make(map[string]float64),
		results:     make(map[string]map[string]int64),
		diagnostics: make(map[string]map[domain.Severity]int),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

// Snapshot copies the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	durations := make(map[string]float64, len(r.durations))
	for op, total := range r.durations {
		durations[op] = total
	}
	results := make(map[string]map[string]int64, len(r.results))
	for op, counts := range r.results {
		cp := make(map[string]int64, len(counts))
		for status, n := range counts {
			cp[status] = n
		}
		results[op] = cp
	}
	diagnostics := make(map[string]map[domain.Severity]int, len(r.diagnostics))
	for doc, counts := range r.diagnostics {
		cp := make(map[domain.Severity]int, len(counts))
		for sev, n := range counts {
			cp[sev] = n
		}
		diagnostics[doc] = cp
	}
	return ExpvarMetricsSnapshot{
		DurationsMS: durations,
		Results:     results,
		Diagnostics: diagnostics,
		RecordedAt:  time.Now().UTC(),
	}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[operation] += float64(duration) / float64(time.Millisecond)
	if _, ok := r.results[operation]; !ok {
		r.results[operation] = make(map[string]int64, 2)
	}
	r.results[operation][statusLabel(success)]++
}

// ObserveDiagnostics implements DiagnosticsObserver.
func (r *ExpvarMetricsRecorder) ObserveDiagnostics(document string, counts map[domain.Severity]int) {
	cp := make(map[domain.Severity]int, len(counts))
	for sev, n := range counts {
		cp[sev] = n
	}
	r.mu.Lock()
	r.diagnostics[document] = cp
	r.mu.Unlock()
}

func statusLabel(success bool) string {
	if success {
		return string(AuditStatusSuccess)
	}
	return string(AuditStatusError)
}

// JSONTraceEntry is one span written by JSONTracer.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTracer writes spans as JSON lines and keeps them for inspection.
type JSONTracer struct {
	mu      sync.Mutex
	clock   Clock
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer returns a tracer writing to w. A nil writer only retains spans.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{clock: systemClock{}}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// WithTraceClock replaces the tracer's time source and returns the tracer.
func (t *JSONTracer) WithTraceClock(c Clock) *JSONTracer {
	if c != nil {
		t.clock = c
	}
	return t
}

// Entries returns a copy of every finished span.
func (t *JSONTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, operation: operation, started: t.clock.Now()}
}

type jsonSpan struct {
	tracer    *JSONTracer
	operation string
	started   time.Time
}

func (s *jsonSpan) End(err error) {
	ended := s.tracer.clock.Now()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     statusLabel(err == nil),
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
}
