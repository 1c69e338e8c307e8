package tracelib

import "github.com/Sumatoshi-tech/tracelib/lattice"

// Update is the atomic record the whole spine operates on: a data key, a
// lattice time, and a diff. A collection is the sum, over all updates whose
// time is less-equal to a query time, of their diffs grouped by data; a sum
// of zero is indistinguishable from absence.
type Update[D Ordered[D], T lattice.Time[T], R Diff[R]] struct {
	Data D
	Time T
	Diff R
}
