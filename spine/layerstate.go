package spine

import (
	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/batch"
	"github.com/Sumatoshi-tech/tracelib/lattice"
)

// stateKind tags which of the four layer states layerState currently
// holds: Vacant | Single(batch) | Merging | Complete(batch). This is the
// "cleaner rendering" the design notes call for in place of the reference
// implementation's Option<Batch>-overloaded MergeState/MergeVariant enum
// pair: one tagged struct instead of two nested enums, since Go has no
// sum types to mirror them directly.
type stateKind int

const (
	stateVacant stateKind = iota
	stateSingle
	stateMerging
	stateComplete
)

// layerState is the state of one layer of the spine: empty, holding one
// batch, in the process of merging two batches, or holding a just-merged
// batch awaiting promotion to the next layer. A Single or Complete layer
// whose batch is nil is a structurally empty placeholder kept only to
// drive fuel accounting (the reference implementation's None batch).
type layerState[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] struct {
	kind   stateKind
	single *batch.OrderedBatch[D, T, R]

	mergeB1, mergeB2 *batch.OrderedBatch[D, T, R]
	merger           *batch.Merger[D, T, R]

	complete *batch.OrderedBatch[D, T, R]
}

// len is the number of actual updates contained in the layer.
func (s *layerState[D, T, R]) len() int {
	switch s.kind {
	case stateSingle:
		if s.single != nil {
			return s.single.Len()
		}
	case stateMerging:
		return s.mergeB1.Len() + s.mergeB2.Len()
	case stateComplete:
		if s.complete != nil {
			return s.complete.Len()
		}
	case stateVacant:
	}

	return 0
}

func (s *layerState[D, T, R]) isVacant() bool { return s.kind == stateVacant }
func (s *layerState[D, T, R]) isSingle() bool { return s.kind == stateSingle }
func (s *layerState[D, T, R]) isDouble() bool { return s.kind == stateMerging || s.kind == stateComplete }

// nonTrivial reports whether the layer holds a real batch or an
// in-progress merge, as opposed to being vacant or a structurally empty
// placeholder.
func (s *layerState[D, T, R]) nonTrivial() bool {
	switch s.kind {
	case stateVacant:
		return false
	case stateSingle:
		return s.single != nil
	case stateComplete:
		return s.complete != nil
	case stateMerging:
		return true
	}

	return true
}

// isCompleteDouble reports whether the layer is a finished merge awaiting
// promotion.
func (s *layerState[D, T, R]) isCompleteDouble() bool {
	return s.kind == stateComplete
}

// take extracts the layer's state, resetting the receiver to vacant.
func (s *layerState[D, T, R]) take() layerState[D, T, R] {
	old := *s
	*s = layerState[D, T, R]{}

	return old
}

// completeNow immediately and unconditionally finishes any in-progress merge
// (spending unbounded fuel), returning the resulting batch, or nil if the
// layer was vacant or a structurally empty placeholder. Resets the
// receiver to vacant.
func (s *layerState[D, T, R]) completeNow() *batch.OrderedBatch[D, T, R] {
	old := s.take()

	switch old.kind {
	case stateVacant:
		return nil
	case stateSingle:
		return old.single
	case stateComplete:
		return old.complete
	case stateMerging:
		unbounded := int64(1) << 62
		old.merger.Work(&unbounded)

		return old.merger.Done()
	}

	return nil
}

// work applies fuel to an in-progress merge. If the merge completes, the
// layer transitions to stateComplete holding the resulting batch.
func (s *layerState[D, T, R]) work(fuel *int64) {
	if s.kind != stateMerging {
		return
	}

	s.merger.Work(fuel)

	if *fuel > 0 {
		result := s.merger.Done()
		*s = layerState[D, T, R]{kind: stateComplete, complete: result}
	}
}

// insert places b into the layer, beginning a merge if the layer already
// held a single batch. Panics if the layer is already Double, mirroring
// the reference implementation's "Attempted to insert batch into
// incomplete merge!" contract violation.
func (s *layerState[D, T, R]) insert(b *batch.OrderedBatch[D, T, R], since lattice.Antichain[T]) {
	old := s.take()

	switch old.kind {
	case stateVacant:
		*s = layerState[D, T, R]{kind: stateSingle, single: b}
	case stateSingle:
		*s = beginMerge(old.single, b, since)
	case stateMerging, stateComplete:
		panic(ContractViolation("spine: attempted to insert batch into incomplete merge"))
	}
}

// beginMerge initiates the merge of an "old" batch with a "new" one. If
// either is nil (a structurally empty placeholder), the merge requires no
// computation and completes immediately to whichever batch is non-nil.
func beginMerge[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]](
	b1, b2 *batch.OrderedBatch[D, T, R], since lattice.Antichain[T],
) layerState[D, T, R] {
	switch {
	case b1 == nil && b2 == nil:
		return layerState[D, T, R]{kind: stateComplete}
	case b1 == nil:
		return layerState[D, T, R]{kind: stateComplete, complete: b2}
	case b2 == nil:
		return layerState[D, T, R]{kind: stateComplete, complete: b1}
	default:
		return layerState[D, T, R]{
			kind:    stateMerging,
			mergeB1: b1,
			mergeB2: b2,
			merger:  batch.BeginMerge(b1, b2, since),
		}
	}
}
