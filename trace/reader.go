// Package trace declares the read-side contract a maintained collection
// exposes to downstream operators, independent of how it is implemented.
// It exists as its own package so the contract can name batch and cursor
// types without creating an import cycle back into
// [github.com/Sumatoshi-tech/tracelib/spine]: Go interfaces are satisfied
// structurally, so *spine.Spine implements Reader without spine needing to
// import this package at all.
package trace

import (
	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/batch"
	"github.com/Sumatoshi-tech/tracelib/cursorlist"
	"github.com/Sumatoshi-tech/tracelib/lattice"
	"github.com/Sumatoshi-tech/tracelib/spine"
)

// Reader is the read side of a maintained trace: the ability to advance
// its two frontiers and to obtain a cursor over everything known up to
// some upper bound.
type Reader[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] interface {
	// AdvanceBy records the new advance (capability) frontier.
	AdvanceBy(frontier lattice.Antichain[T])
	// AdvanceFrontier returns the current advance frontier.
	AdvanceFrontier() lattice.Antichain[T]
	// DistinguishSince records the new distinguish (since) frontier.
	DistinguishSince(frontier lattice.Antichain[T])
	// DistinguishFrontier returns the current distinguish frontier.
	DistinguishFrontier() lattice.Antichain[T]
	// CursorThrough returns a cursor over every update whose batch upper
	// is at or before upper, the storage keeping those batches alive, and
	// whether such a cursor is currently available.
	CursorThrough(upper lattice.Antichain[T]) (*cursorlist.CursorList[D, T, R], []*batch.OrderedBatch[D, T, R], bool)
}

var _ Reader[tracelib.String, lattice.IntTime, *tracelib.IntDiff] = (*spine.Spine[tracelib.String, lattice.IntTime, *tracelib.IntDiff])(nil)
