package batch

import (
	"sort"

	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/lattice"
)

// OrderedBatch is the sole Batch implementation this repository ships: a
// sorted-slice-backed run of updates. Per the design notes on monomorphic
// instantiations, this is the one concrete realization of the Batch
// contract rather than an open trait hierarchy.
type OrderedBatch[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] struct {
	entries []tracelib.Update[D, T, R]
	lower   lattice.Antichain[T]
	upper   lattice.Antichain[T]
	since   lattice.Antichain[T]
}

var _ Batch[tracelib.String, lattice.IntTime, *tracelib.IntDiff] = (*OrderedBatch[tracelib.String, lattice.IntTime, *tracelib.IntDiff])(nil)

// Lower implements [Batch].
func (b *OrderedBatch[D, T, R]) Lower() lattice.Antichain[T] { return b.lower }

// Upper implements [Batch].
func (b *OrderedBatch[D, T, R]) Upper() lattice.Antichain[T] { return b.upper }

// Since implements [Batch].
func (b *OrderedBatch[D, T, R]) Since() lattice.Antichain[T] { return b.since }

// Len implements [Batch].
func (b *OrderedBatch[D, T, R]) Len() int { return len(b.entries) }

// IsEmpty implements [Batch].
func (b *OrderedBatch[D, T, R]) IsEmpty() bool { return b.lower.Equal(b.upper) }

// Cursor implements [Batch].
func (b *OrderedBatch[D, T, R]) Cursor() Cursor[D, T, R] {
	return &sliceCursor[D, T, R]{entries: b.entries}
}

// compareEntries orders updates by (Data, Time), the sort key every batch
// and merge kernel in this package maintains.
func compareEntries[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]](
	a, b tracelib.Update[D, T, R],
) int {
	if c := a.Data.Compare(b.Data); c != 0 {
		return c
	}

	return a.Time.Compare(b.Time)
}

// consolidate sorts entries by (Data, Time), combines equal keys via
// PlusEquals, and drops entries whose accumulated diff is zero.
func consolidate[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]](
	entries []tracelib.Update[D, T, R],
) []tracelib.Update[D, T, R] {
	sort.SliceStable(entries, func(i, j int) bool {
		return compareEntries(entries[i], entries[j]) < 0
	})

	out := entries[:0]

	for _, e := range entries {
		if n := len(out); n > 0 && out[n-1].Data.Compare(e.Data) == 0 && out[n-1].Time.Compare(e.Time) == 0 {
			out[n-1].Diff.PlusEquals(e.Diff)

			continue
		}

		e.Diff = e.Diff.Clone()
		out = append(out, e)
	}

	filtered := out[:0]

	for _, e := range out {
		if !e.Diff.IsZero() {
			filtered = append(filtered, e)
		}
	}

	return filtered
}

type sliceCursor[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] struct {
	entries []tracelib.Update[D, T, R]
	pos     int
}

var _ Cursor[tracelib.String, lattice.IntTime, *tracelib.IntDiff] = (*sliceCursor[tracelib.String, lattice.IntTime, *tracelib.IntDiff])(nil)

func (c *sliceCursor[D, T, R]) Valid() bool {
	return c.pos < len(c.entries)
}

func (c *sliceCursor[D, T, R]) Key() (D, T) {
	e := c.entries[c.pos]

	return e.Data, e.Time
}

func (c *sliceCursor[D, T, R]) Value() R {
	return c.entries[c.pos].Diff
}

func (c *sliceCursor[D, T, R]) Advance() {
	c.pos++
}

func (c *sliceCursor[D, T, R]) SeekKey(data D, t T) {
	c.pos += sort.Search(len(c.entries)-c.pos, func(i int) bool {
		e := c.entries[c.pos+i]
		if d := e.Data.Compare(data); d != 0 {
			return d >= 0
		}

		return e.Time.Compare(t) >= 0
	})
}
