package batch

import (
	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/lattice"
)

// MergeRatioPolicy is a hook for deciding whether two batches of the given
// lengths should be merged at all. The reference implementation carries a
// commented-out check here with its intent (skip, or merge and warn) left
// unstated; per the accompanying design notes this hook is preserved and
// defaults to nil. Nothing in this module reads it: BeginMerge and the
// spine always merge, whatever its value.
var MergeRatioPolicy func(len1, len2 int) bool

// Merger performs an incremental two-way merge of two ordered batches,
// consuming fuel proportional to the comparisons and copies it performs
// and terminating early when fuel is exhausted. Completing the merge
// (Done) additionally advances every time forward to the since frontier
// supplied at BeginMerge and re-consolidates any keys that collide as a
// result.
type Merger[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] struct {
	b1, b2 *OrderedBatch[D, T, R]
	i1, i2 int
	merged []tracelib.Update[D, T, R]
	since  lattice.Antichain[T]
	lower  lattice.Antichain[T]
	upper  lattice.Antichain[T]
	done   bool
}

// BeginMerge starts a merge of b1 and b2, whose time ranges must be
// contiguous (b1.Upper() == b2.Lower()). since is the frontier the
// resulting batch's times will be advanced to once the merge completes.
func BeginMerge[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]](
	b1, b2 *OrderedBatch[D, T, R], since lattice.Antichain[T],
) *Merger[D, T, R] {
	return &Merger[D, T, R]{
		b1:    b1,
		b2:    b2,
		since: since,
		lower: b1.lower,
		upper: b2.upper,
	}
}

// Work advances the merge by consuming from *fuel, decrementing it once
// per comparison or bulk copy performed, and returns once *fuel drops to
// zero or below, or the merge completes, whichever comes first.
func (m *Merger[D, T, R]) Work(fuel *int64) {
	if m.done {
		return
	}

	e1, e2 := m.b1.entries, m.b2.entries

	for *fuel > 0 && m.i1 < len(e1) && m.i2 < len(e2) {
		cmp := compareEntries(e1[m.i1], e2[m.i2])

		switch {
		case cmp < 0:
			m.merged = append(m.merged, e1[m.i1])
			m.i1++
		case cmp > 0:
			m.merged = append(m.merged, e2[m.i2])
			m.i2++
		default:
			combined := e1[m.i1]
			combined.Diff = combined.Diff.Clone()
			combined.Diff.PlusEquals(e2[m.i2].Diff)

			if !combined.Diff.IsZero() {
				m.merged = append(m.merged, combined)
			}

			m.i1++
			m.i2++
		}

		*fuel--
	}

	if *fuel <= 0 {
		return
	}

	// One of the two inputs is exhausted; the remainder of the other can
	// be flushed as a single bulk copy, matching the merge kernel's bulk
	// flush of whichever input survives the other's exhaustion.
	if m.i1 < len(e1) {
		*fuel -= int64(len(e1) - m.i1)
		m.merged = append(m.merged, e1[m.i1:]...)
		m.i1 = len(e1)
	}

	if m.i2 < len(e2) {
		*fuel -= int64(len(e2) - m.i2)
		m.merged = append(m.merged, e2[m.i2:]...)
		m.i2 = len(e2)
	}

	m.done = true
}

// Done forces the merge to completion (spending unbounded fuel on
// whatever streaming work remains), advances every resulting time to the
// since frontier, re-sorts, re-consolidates any keys that collided as a
// result, and returns the sealed batch.
func (m *Merger[D, T, R]) Done() *OrderedBatch[D, T, R] {
	if !m.done {
		unbounded := int64(1) << 62
		m.Work(&unbounded)
	}

	advanced := make([]tracelib.Update[D, T, R], len(m.merged))

	for i, e := range m.merged {
		e.Time = lattice.AdvanceTime(e.Time, m.since)
		advanced[i] = e
	}

	return &OrderedBatch[D, T, R]{
		entries: consolidate(advanced),
		lower:   m.lower,
		upper:   m.upper,
		since:   m.since,
	}
}
