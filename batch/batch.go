// Package batch implements the immutable, sorted, time-bounded batch and
// its forward cursor: the unit of storage the fueled spine stacks into
// layers and the merge batcher seals from accumulated updates.
package batch

import (
	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/lattice"
)

// Batch is an immutable, sorted run of updates bounded by [Lower, Upper)
// in time, each advanced no further back than Since.
type Batch[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] interface {
	// Lower is the frontier below which no update in this batch lies.
	Lower() lattice.Antichain[T]
	// Upper is the frontier at or above which no update in this batch lies.
	Upper() lattice.Antichain[T]
	// Since is the frontier the batch's times have been advanced to;
	// reading the batch produces correct accumulations only for query
	// times in advance of Since.
	Since() lattice.Antichain[T]
	// Len is the number of stored updates, after compaction.
	Len() int
	// IsEmpty reports whether Lower equals Upper.
	IsEmpty() bool
	// Cursor returns an independent, read-only view over the batch.
	Cursor() Cursor[D, T, R]
}

// Cursor is a stateful forward walker over a batch (or, via
// [github.com/Sumatoshi-tech/tracelib/cursorlist], several batches at
// once), keyed by (Data, Time). Values are copied out on yield rather than
// borrowed, the callback-free rendering the design notes call for when a
// language lacks borrow checking.
type Cursor[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] interface {
	// Valid reports whether the cursor is positioned on an entry.
	Valid() bool
	// Key returns the current (Data, Time) pair. Only valid when Valid().
	Key() (D, T)
	// Value returns the current diff. Only valid when Valid().
	Value() R
	// Advance moves the cursor to the next entry.
	Advance()
	// SeekKey advances the cursor to the first entry whose key is
	// greater than or equal to (data, time).
	SeekKey(data D, t T)
}
