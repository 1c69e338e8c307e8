package batch

import (
	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/lattice"
)

// Builder accumulates pushed updates and seals them into an
// [OrderedBatch] once the caller knows the batch's time bounds.
type Builder[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] struct {
	entries []tracelib.Update[D, T, R]
}

// NewBuilder returns an empty Builder.
func NewBuilder[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]]() *Builder[D, T, R] {
	return &Builder[D, T, R]{}
}

// Push appends one update to the builder. Updates may be pushed in any
// order; Done sorts and consolidates them.
func (bld *Builder[D, T, R]) Push(data D, t T, diff R) {
	bld.entries = append(bld.entries, tracelib.Update[D, T, R]{Data: data, Time: t, Diff: diff})
}

// Done seals the builder into an OrderedBatch bounded by [lower, upper),
// recording since as the batch's Since frontier; the pushed times are
// stored as given, not advanced. Entries are sorted by (Data, Time), equal
// keys are combined via PlusEquals, and zero-diff entries are dropped.
func (bld *Builder[D, T, R]) Done(lower, upper, since lattice.Antichain[T]) *OrderedBatch[D, T, R] {
	return &OrderedBatch[D, T, R]{
		entries: consolidate(bld.entries),
		lower:   lower,
		upper:   upper,
		since:   since,
	}
}
