package tracelib

import (
	"context"

	"github.com/Sumatoshi-tech/tracelib/tracelog"
)

// OperatorInfo identifies the dataflow operator instance a spine belongs
// to. It is opaque to the spine itself; the embedding runtime constructs
// it and the spine only ever reports it back out through logging.
type OperatorInfo struct {
	// GlobalID is a runtime-assigned identifier for the operator.
	GlobalID uint64
	// Name is a human-readable label for diagnostics.
	Name string
}

// Logger is the structured-logging handle the spine accepts.
// It is satisfied by [github.com/Sumatoshi-tech/tracelib/tracelog.Logger],
// whose nil receiver drops every event, so passing a nil *tracelog.Logger
// through this interface is always safe.
type Logger interface {
	LogBatch(ctx context.Context, ev tracelog.BatchEvent)
	LogMerge(ctx context.Context, ev tracelog.MergeEvent)
}

// Activator is the single-method handle the spine uses to ask the
// embedding runtime to re-schedule the operator, e.g. after Exert
// introduces more work than it could finish in one call.
type Activator interface {
	Activate()
}
