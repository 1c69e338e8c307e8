// Package tracelog provides structured logging for the fueled merge spine
// and its merge batcher. It is the concrete realization of the optional
// Logger handle the core consumes from its embedding runtime: when nil,
// nothing is logged and nothing is allocated for the attempt.
package tracelog

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID  = "trace_id"
	attrSpanID   = "span_id"
	attrOperator = "operator"
)

// BatchEvent records the insertion of a batch into a spine.
type BatchEvent struct {
	// Operator identifies the spine instance that received the batch.
	Operator uint64
	// Length is the number of updates the batch reports.
	Length int
}

// MergeEvent records progress on an in-progress or completed merge.
type MergeEvent struct {
	// Operator identifies the spine instance performing the merge.
	Operator uint64
	// Scale is the layer index at which the merge runs.
	Scale int
	// Length1 and Length2 are the sizes of the two input batches when a
	// merge begins. On a completion event, Length1 is the size of the
	// merged output and Length2 is zero.
	Length1, Length2 int
	// Complete is true once the merge has produced its output batch.
	Complete bool
}

// Logger is the structured-logging handle the spine accepts.
// A nil *Logger is valid and logs nothing, mirroring the core's
// Option<Logger> contract.
type Logger struct {
	slog *slog.Logger
}

// New wraps an [slog.Logger] as a tracelog.Logger. Passing nil returns a
// Logger that drops every event, same as Discard.
func New(base *slog.Logger) *Logger {
	if base == nil {
		return nil
	}

	return &Logger{slog: base}
}

// Discard returns a Logger that drops every event.
func Discard() *Logger {
	return nil
}

// LogBatch records a BatchEvent. Safe to call on a nil *Logger.
func (l *Logger) LogBatch(ctx context.Context, ev BatchEvent) {
	if l == nil {
		return
	}

	l.slog.LogAttrs(ctx, slog.LevelDebug, "batch inserted",
		slog.Uint64(attrOperator, ev.Operator),
		slog.Int("length", ev.Length),
	)
}

// LogMerge records a MergeEvent. Safe to call on a nil *Logger.
func (l *Logger) LogMerge(ctx context.Context, ev MergeEvent) {
	if l == nil {
		return
	}

	l.slog.LogAttrs(ctx, slog.LevelDebug, "merge progress",
		slog.Uint64(attrOperator, ev.Operator),
		slog.Int("scale", ev.Scale),
		slog.Int("length1", ev.Length1),
		slog.Int("length2", ev.Length2),
		slog.Bool("complete", ev.Complete),
	)
}

// TracingHandler is an [slog.Handler] that injects OpenTelemetry trace
// context (trace_id, span_id) into every log record it forwards, so
// merge/batch events emitted from inside a traced dataflow operator can be
// correlated with the span that triggered them.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps an [slog.Handler], injecting trace context.
func NewTracingHandler(inner slog.Handler) *TracingHandler {
	return &TracingHandler{inner: inner}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds trace context attributes from the span context, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a new TracingHandler with additional attributes.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup returns a new TracingHandler with a group prefix.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
