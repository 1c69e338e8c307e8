// Package lattice provides the time-lattice and frontier (antichain)
// primitives the spine and batcher are built on: a partial order with a
// join (least upper bound), a total order for sorting within a batch, and
// a distinguished minimum.
package lattice

// Time is the contract a time type must satisfy to be used as the T
// parameter throughout this module. It combines a partial order
// (LessEqual, Join) used for frontier reasoning with a total order
// (Compare) used to sort updates within a batch, and a Minimum used to
// seed a freshly constructed trace. Realized as a method on the type
// itself rather than an associated constant, since Go has no trait-level
// constants: callers needing "the" minimum value call any instance's
// Minimum method, typically the zero value's.
type Time[T any] interface {
	// LessEqual reports whether the receiver is less than or equal to
	// other in the lattice's partial order.
	LessEqual(other T) bool
	// Join returns the least upper bound of the receiver and other.
	Join(other T) T
	// Compare provides the total order used to sort updates within a
	// batch. Returns a negative number, zero, or a positive number as
	// the receiver sorts before, equal to, or after other.
	Compare(other T) int
	// Minimum returns the lattice's distinguished minimum element.
	Minimum() T
}
