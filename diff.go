// Package tracelib implements a fueled log-structured merge spine: the
// per-operator data structure that maintains an append-only, time-indexed
// collection of update batches for an incremental dataflow engine.
//
// The root package carries the data model shared by every other package in
// this module (Update, Diff, Ordered keys) plus the thin interfaces the
// spine consumes from its embedding runtime (OperatorInfo, Logger,
// Activator). The heavier subsystems live in sibling packages: batch
// construction and cursors in [github.com/Sumatoshi-tech/tracelib/batch],
// the unordered-to-sorted batcher in
// [github.com/Sumatoshi-tech/tracelib/batcher], and the tiered merge spine
// itself in [github.com/Sumatoshi-tech/tracelib/spine].
package tracelib

// Diff is a commutative semigroup with an identity (zero) element. The
// spine relies on commutativity to merge updates regardless of arrival
// order, and on IsZero to drop cancelled entries from merged output.
//
// Implementations are typically small mutable value wrappers (see
// [IntDiff]) used through a pointer, since PlusEquals mutates the receiver
// in place, mirroring the reference implementation's plus_equals(&mut
// self, &other).
type Diff[R any] interface {
	// PlusEquals adds other into the receiver in place.
	PlusEquals(other R)
	// IsZero reports whether the receiver is the identity element.
	IsZero() bool
	// Clone returns an independent copy, so merge kernels can accumulate
	// into a fresh value instead of mutating a diff another batch or
	// cursor may still be reading. Grounded directly on the merge
	// kernel's clone_onto(&mut diff) step in the original implementation.
	Clone() R
}

// IntDiff is the common Diff instantiation used by tests and the demo
// CLI: a plain signed counter, mirroring how the original implementation's
// test suites almost always instantiate R with an integer count.
type IntDiff int64

// PlusEquals adds other into the receiver. other is itself a *IntDiff,
// matching the Diff[R] instantiation R = *IntDiff used throughout tests
// and the demo CLI, since PlusEquals mutates in place and Go method sets
// for pointer receivers only attach to the pointer type.
func (d *IntDiff) PlusEquals(other *IntDiff) {
	*d += *other
}

// IsZero reports whether d is zero.
func (d *IntDiff) IsZero() bool {
	return *d == 0
}

// Clone returns an independent copy of d.
func (d *IntDiff) Clone() *IntDiff {
	clone := *d

	return &clone
}
