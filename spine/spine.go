// Package spine implements the fueled spine: a tiered log-structured
// merge stack of batches with geometric layer sizes, amortised background
// merge work paid for by every insertion, and the two frontiers
// (advance, distinguish) that govern when batches may compact and when
// pending batches may be exposed to readers.
//
// It is a direct generalization of the reference implementation's
// Spine<K,V,T,R,B>, ported field-for-field and method-for-method onto Go
// generics: operator/logger/activator handles, the advance/distinguish
// frontier pair, the layer stack (merging), the pending-batch queue, and
// the upper frontier watermark.
package spine

import (
	"context"

	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/batch"
	"github.com/Sumatoshi-tech/tracelib/cursorlist"
	"github.com/Sumatoshi-tech/tracelib/lattice"
	"github.com/Sumatoshi-tech/tracelib/pkg/mathutil"
	"github.com/Sumatoshi-tech/tracelib/tracelog"
)

// fuelPerUnit is the base fuel, in comparisons, granted per virtual
// record at the layer a batch is introduced to: four units pay for the
// new records, four more pay for the virtual records rolling up lower
// layers introduces. Preserved verbatim from the reference
// implementation's `8 << batch_index` constant.
const fuelPerUnit = 8

// Spine is a fueled, tiered log-structured merge trace over batches of
// (D, T, R) updates.
type Spine[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] struct {
	operator  tracelib.OperatorInfo
	logger    tracelib.Logger
	activator tracelib.Activator

	advanceFrontier     lattice.Antichain[T]
	distinguishFrontier lattice.Antichain[T]

	merging []layerState[D, T, R]
	pending []*batch.OrderedBatch[D, T, R]

	upper  lattice.Antichain[T]
	effort uint
}

// New allocates a Spine with the default effort multiplier of one. logger
// and activator may be nil; a nil logger logs nothing and a nil activator
// is never called.
func New[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]](
	info tracelib.OperatorInfo, logger tracelib.Logger, activator tracelib.Activator,
) *Spine[D, T, R] {
	return WithEffort[D, T, R](1, info, logger, activator)
}

// WithEffort allocates a Spine with a specified effort multiplier: a batch
// introduced at layer k applies fuelPerUnit << k times effort in fuel to
// each in-progress merge, at least eight times effort per update the batch
// carries. effort must be at least one for merging to make
// progress; zero is silently treated as one.
func WithEffort[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]](
	effort uint, info tracelib.OperatorInfo, logger tracelib.Logger, activator tracelib.Activator,
) *Spine[D, T, R] {
	if effort == 0 {
		effort = 1
	}

	var zero T

	minimum := zero.Minimum()

	return &Spine[D, T, R]{
		operator:            info,
		logger:              logger,
		activator:           activator,
		advanceFrontier:     lattice.NewAntichain(minimum),
		distinguishFrontier: lattice.NewAntichain(minimum),
		upper:               lattice.NewAntichain(minimum),
		effort:              effort,
	}
}

// Insert requires batch.Lower() == the trace's current upper, a contract
// violation otherwise signaled by panic. The trace's upper advances to
// batch.Upper(), the batch is queued as pending, and consider_merges is
// invoked so pending batches no longer shadowed by the distinguish
// frontier can begin merging.
func (s *Spine[D, T, R]) Insert(b *batch.OrderedBatch[D, T, R]) {
	if b.Lower().Equal(b.Upper()) {
		panic(ContractViolation("spine: insert: batch is empty; use Close to insert the final empty batch"))
	}

	if !b.Lower().Equal(s.upper) {
		panic(ContractViolation("spine: insert: batch.Lower() does not match trace upper, non-contiguous insertion"))
	}

	if s.logger != nil {
		s.logger.LogBatch(context.Background(), tracelog.BatchEvent{
			Operator: s.operator.GlobalID,
			Length:   b.Len(),
		})
	}

	s.upper = b.Upper()
	s.pending = append(s.pending, b)
	s.considerMerges()
}

// Close completes the trace with a final empty batch spanning from the
// current upper to the empty frontier, signaling that no further batches
// will ever be inserted.
func (s *Spine[D, T, R]) Close() {
	if s.upper.IsEmpty() {
		return
	}

	builder := batch.NewBuilder[D, T, R]()
	final := builder.Done(s.upper, lattice.Antichain[T]{}, s.upper)
	s.Insert(final)
}

// AdvanceBy records the new advance frontier: times at or before which the
// trace must accumulate correctly. An empty frontier closes the trace,
// discarding all batches and pending state.
func (s *Spine[D, T, R]) AdvanceBy(frontier lattice.Antichain[T]) {
	s.advanceFrontier = frontier

	if frontier.IsEmpty() {
		s.pending = nil
		s.merging = nil
	}
}

// AdvanceFrontier returns the current advance frontier.
func (s *Spine[D, T, R]) AdvanceFrontier() lattice.Antichain[T] {
	return s.advanceFrontier
}

// DistinguishSince records the new distinguish frontier: times at or
// before which the trace must still be able to return a subset cursor.
// Previously-pinned pending batches may become releasable, so
// consider_merges runs again.
func (s *Spine[D, T, R]) DistinguishSince(frontier lattice.Antichain[T]) {
	s.distinguishFrontier = frontier
	s.considerMerges()
}

// DistinguishFrontier returns the current distinguish frontier.
func (s *Spine[D, T, R]) DistinguishFrontier() lattice.Antichain[T] {
	return s.distinguishFrontier
}

// reduced reports whether at most one non-trivial batch remains and no
// merge is in progress, i.e. there is no maintenance work left beyond
// further compaction.
func (s *Spine[D, T, R]) reduced() bool {
	nonEmpty := 0

	for i := range s.merging {
		if s.merging[i].isDouble() && !s.merging[i].isCompleteDouble() {
			return false
		}

		if s.merging[i].nonTrivial() {
			nonEmpty++
		}

		if nonEmpty > 1 {
			return false
		}
	}

	return true
}

// Exert applies some amount of effort to trace maintenance when the trace
// is not yet reduced, by introducing a structurally empty batch at the
// layer implied by effort, then activating the embedding runtime so the
// operator is re-scheduled to continue the work.
func (s *Spine[D, T, R]) Exert(effort *int) {
	if s.reduced() {
		return
	}

	level := mathutil.Log2Floor(mathutil.NextPowerOfTwo(*effort))
	s.IntroduceBatch(nil, level)

	if s.activator != nil {
		s.activator.Activate()
	}
}

// considerMerges migrates pending batches whose upper frontier is at or
// before the distinguish frontier into the merging layers, in strict
// insertion (FIFO) order. The reference implementation leaves a TODO
// about processing pending batches out of order under some conditions;
// per the accompanying design notes, insertion order is treated as
// authoritative until a test demonstrates otherwise.
func (s *Spine[D, T, R]) considerMerges() {
	for len(s.pending) > 0 && s.pending[0].Upper().CoversFrontier(s.distinguishFrontier) {
		b := s.pending[0]
		s.pending = s.pending[1:]

		level := mathutil.Log2Ceil(b.Len())
		s.IntroduceBatch(b, level)

		if !s.reduced() && s.activator != nil {
			s.activator.Activate()
		}
	}
}

// IntroduceBatch introduces a batch (or a structurally empty placeholder,
// when b is nil) at the indicated layer, following the four-step
// procedure described in the component design: compute fuel, apply it to
// existing merges, roll up lower layers so the target layer is free to
// accept the insertion, insert, and finally tidy the largest layers.
func (s *Spine[D, T, R]) IntroduceBatch(b *batch.OrderedBatch[D, T, R], level int) {
	fuel := int64(fuelPerUnit) << uint(level) * int64(s.effort) //nolint:gosec

	s.ApplyFuel(&fuel)
	s.rollUp(level)
	s.insertAt(b, level)
	s.tidyLayers()
}

// ApplyFuel applies fuel to every merge in progress, layer by layer from
// the bottom, without sharing fuel across layers. A merge that completes
// is immediately promoted and inserted at the next layer up.
func (s *Spine[D, T, R]) ApplyFuel(fuel *int64) {
	for i := range s.merging {
		layerFuel := *fuel
		s.merging[i].work(&layerFuel)

		if s.merging[i].isCompleteDouble() {
			completed := s.merging[i].completeNow()

			if s.logger != nil && completed != nil {
				s.logger.LogMerge(context.Background(), tracelog.MergeEvent{
					Operator: s.operator.GlobalID,
					Scale:    i,
					Length1:  completed.Len(),
					Complete: true,
				})
			}

			s.insertAt(completed, i+1)
		}
	}
}

// rollUp ensures layer `index` is free to accept an insertion by folding
// every batch at layers below index into a single roll-up batch (via
// fresh, unfueled merges forced to completion) and inserting that result
// at `index`. If that subsequently leaves a Double at `index`, the merge
// is completed and promoted to `index+1`.
func (s *Spine[D, T, R]) rollUp(index int) {
	for len(s.merging) <= index {
		s.merging = append(s.merging, layerState[D, T, R]{})
	}

	anyNonVacant := false

	for i := 0; i < index; i++ {
		if !s.merging[i].isVacant() {
			anyNonVacant = true

			break
		}
	}

	if !anyNonVacant {
		return
	}

	var merged *batch.OrderedBatch[D, T, R]

	haveMerged := false

	for i := 0; i < index; i++ {
		level := s.merging[i].completeNow()
		if level == nil {
			continue
		}

		if !haveMerged {
			merged = level
			haveMerged = true

			continue
		}

		tmp := beginMerge(level, merged, s.advanceFrontier)
		merged = tmp.completeNow()
	}

	s.insertAt(merged, index)

	if s.merging[index].isDouble() {
		promoted := s.merging[index].completeNow()
		s.insertAt(promoted, index+1)
	}
}

// insertAt inserts b (which may be nil, a structurally empty placeholder)
// at the given layer, growing the layer list as needed.
func (s *Spine[D, T, R]) insertAt(b *batch.OrderedBatch[D, T, R], index int) {
	for len(s.merging) <= index {
		s.merging = append(s.merging, layerState[D, T, R]{})
	}

	if s.logger != nil && b != nil && s.merging[index].isSingle() {
		s.logger.LogMerge(context.Background(), tracelog.MergeEvent{
			Operator: s.operator.GlobalID,
			Scale:    index,
			Length1:  s.merging[index].len(),
			Length2:  b.Len(),
		})
	}

	s.merging[index].insert(b, s.advanceFrontier)
}

// tidyLayers draws the largest layer down to a size-appropriate layer
// when it holds a single batch smaller than its layer index warrants and
// the layer below is vacant, repeating until stable. Only the topmost
// layers are tidied, since their descent is what ensures eventual
// compaction of the largest batches.
func (s *Spine[D, T, R]) tidyLayers() {
	length := len(s.merging)

	for length > 0 && s.merging[length-1].isSingle() {
		if mathutil.Log2Ceil(s.merging[length-1].len()) >= length-1 || length <= 1 || !s.merging[length-2].isVacant() {
			break
		}

		moved := s.merging[length-1]
		s.merging = s.merging[:length-1]
		s.merging[length-2] = moved
		length = len(s.merging)
	}
}

// MapBatches visits every live batch exactly once, for diagnostics.
func (s *Spine[D, T, R]) MapBatches(visit func(*batch.OrderedBatch[D, T, R])) {
	for i := len(s.merging) - 1; i >= 0; i-- {
		switch s.merging[i].kind {
		case stateMerging:
			visit(s.merging[i].mergeB1)
			visit(s.merging[i].mergeB2)
		case stateComplete:
			if s.merging[i].complete != nil {
				visit(s.merging[i].complete)
			}
		case stateSingle:
			if s.merging[i].single != nil {
				visit(s.merging[i].single)
			}
		case stateVacant:
		}
	}

	for _, b := range s.pending {
		visit(b)
	}
}

// LayerStat describes the merge progress of one layer, for diagnostics.
type LayerStat struct {
	// State is "vacant", "single", or "double".
	State string
	// Len is the layer's accounted length.
	Len int
}

// Describe reports the state of every layer, intended for diagnostics
// (the tracemetrics layer-occupancy gauge and the tracedemo CLI) rather
// than for use in core merge logic.
func (s *Spine[D, T, R]) Describe() []LayerStat {
	stats := make([]LayerStat, len(s.merging))

	for i := range s.merging {
		state := "vacant"

		switch {
		case s.merging[i].isDouble():
			state = "double"
		case s.merging[i].isSingle():
			state = "single"
		}

		stats[i] = LayerStat{State: state, Len: s.merging[i].len()}
	}

	return stats
}

// CursorThrough returns a merged cursor over every batch whose upper is at
// or below the supplied frontier, along with the storage slice keeping
// those batches alive for the cursor's lifetime. Returns ready=false if
// upper is not yet at or above the distinguish frontier (not available).
// Panics if a pending batch straddles upper: a non-empty batch for which
// upper includes part but not all of its range is a caller bug, per the
// reference implementation's cursor_through contract.
func (s *Spine[D, T, R]) CursorThrough(
	upper lattice.Antichain[T],
) (*cursorlist.CursorList[D, T, R], []*batch.OrderedBatch[D, T, R], bool) {
	if !s.distinguishFrontier.CoversFrontier(upper) {
		return nil, nil, false
	}

	var storage []*batch.OrderedBatch[D, T, R]

	for i := len(s.merging) - 1; i >= 0; i-- {
		switch s.merging[i].kind {
		case stateMerging:
			if !s.merging[i].mergeB1.IsEmpty() {
				storage = append(storage, s.merging[i].mergeB1)
			}

			if !s.merging[i].mergeB2.IsEmpty() {
				storage = append(storage, s.merging[i].mergeB2)
			}
		case stateComplete:
			if s.merging[i].complete != nil && !s.merging[i].complete.IsEmpty() {
				storage = append(storage, s.merging[i].complete)
			}
		case stateSingle:
			if s.merging[i].single != nil && !s.merging[i].single.IsEmpty() {
				storage = append(storage, s.merging[i].single)
			}
		case stateVacant:
		}
	}

	for _, b := range s.pending {
		if b.IsEmpty() {
			continue
		}

		includeLower := b.Lower().CoversFrontier(upper)
		includeUpper := b.Upper().CoversFrontier(upper)

		if includeLower != includeUpper && !upper.Equal(b.Lower()) {
			panic(ContractViolation("spine: CursorThrough: upper straddles a pending batch"))
		}

		if includeUpper {
			storage = append(storage, b)
		}
	}

	cursors := make([]batch.Cursor[D, T, R], len(storage))
	for i, b := range storage {
		cursors[i] = b.Cursor()
	}

	return cursorlist.New(cursors), storage, true
}
