// Package batcher implements the merge batcher: it accepts unsorted,
// partially-timestamped update chunks and produces sorted, compacted runs
// suitable for sealing into a batch, without unbounded buffering.
package batcher

import (
	"sort"
	"unsafe"

	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/lattice"
	"github.com/Sumatoshi-tech/tracelib/pkg/mathutil"
)

// DefaultChunkCapacityBytes is the target byte capacity of one chunk, the
// reference implementation's BUFFER_SIZE_BYTES (8 KiB).
const DefaultChunkCapacityBytes = 8 << 10

// Batcher accepts unsorted update chunks via PushChunk and, on demand,
// extracts the updates whose times are not in advance of a supplied
// frontier via Extract.
// It maintains a stack of sorted runs with geometrically decreasing size
// from bottom to top, merging newly pushed runs into the stack in a
// cache-friendly tournament, and a stash of recycled chunk buffers. Every
// chunk is bounded by the configured byte capacity; a run larger than one
// chunk spans several.
type Batcher[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] struct {
	stack           []run[D, T, R]
	stash           [][]tracelib.Update[D, T, R]
	chunkCapacity   int
	recycleCapacity int
}

// chunk is one sorted, capacity-bounded buffer of updates.
type chunk[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] struct {
	entries []tracelib.Update[D, T, R]
}

// run is a sorted sequence of chunks, the unit the tournament merges.
type run[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] []chunk[D, T, R]

func (r run[D, T, R]) len() int {
	total := 0

	for _, c := range r {
		total += len(c.entries)
	}

	return total
}

// New returns a Batcher whose chunks target chunkCapacityBytes bytes, or
// [DefaultChunkCapacityBytes] if chunkCapacityBytes is zero.
func New[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]](chunkCapacityBytes int) *Batcher[D, T, R] {
	if chunkCapacityBytes <= 0 {
		chunkCapacityBytes = DefaultChunkCapacityBytes
	}

	var zero tracelib.Update[D, T, R]

	entrySize := int(unsafe.Sizeof(zero))
	if entrySize == 0 {
		entrySize = 1
	}

	capacity := mathutil.Max(chunkCapacityBytes/entrySize, 1)

	return &Batcher[D, T, R]{
		chunkCapacity:   capacity,
		recycleCapacity: capacity,
	}
}

// empty returns a chunk buffer from the stash, or a freshly allocated one
// sized to the target chunk capacity.
func (b *Batcher[D, T, R]) empty() []tracelib.Update[D, T, R] {
	if n := len(b.stash); n > 0 {
		buf := b.stash[n-1]
		b.stash = b.stash[:n-1]

		return buf[:0]
	}

	return make([]tracelib.Update[D, T, R], 0, b.chunkCapacity)
}

// recycle returns buf to the stash if it was sized to the target chunk
// capacity; otherwise it is dropped for the garbage collector to reclaim.
func (b *Batcher[D, T, R]) recycle(buf []tracelib.Update[D, T, R]) {
	if cap(buf) == b.recycleCapacity {
		b.stash = append(b.stash, buf[:0])
	}
}

// packRun copies sorted entries into capacity-bounded chunks drawn from
// the stash, restoring the per-chunk size bound for input of any length.
func (b *Batcher[D, T, R]) packRun(entries []tracelib.Update[D, T, R]) run[D, T, R] {
	var r run[D, T, R]

	for len(entries) > 0 {
		n := mathutil.Min(b.chunkCapacity, len(entries))
		buf := b.empty()
		buf = append(buf, entries[:n]...)
		r = append(r, chunk[D, T, R]{entries: buf})
		entries = entries[n:]
	}

	return r
}

// PushChunk sorts an unsorted chunk of updates by (Data, Time) in place,
// packs it into capacity-bounded chunks, then repeatedly merges the
// resulting run with the top of the run stack while the top has
// comparable size, maintaining the invariant that stack runs have
// geometrically decreasing size from bottom to top.
func (b *Batcher[D, T, R]) PushChunk(unsorted []tracelib.Update[D, T, R]) {
	if len(unsorted) == 0 {
		return
	}

	sort.SliceStable(unsorted, func(i, j int) bool {
		return compareKeys(unsorted[i], unsorted[j]) < 0
	})

	b.stack = append(b.stack, b.packRun(unsorted))

	for len(b.stack) >= 2 {
		top := b.stack[len(b.stack)-1]
		under := b.stack[len(b.stack)-2]

		if !comparableSize(top.len(), under.len()) {
			break
		}

		merged := b.mergeRuns(under, top)
		b.stack = b.stack[:len(b.stack)-2]
		b.stack = append(b.stack, merged)
	}
}

// comparableSize reports whether two adjacent stack runs are close
// enough in size to merge now rather than waiting for more input, the
// policy that keeps the stack's sizes geometric. A factor of two mirrors
// the kind of run-balancing rule merge-sort-family batchers use.
func comparableSize(a, b int) bool {
	if a == 0 || b == 0 {
		return true
	}

	if a < b {
		a, b = b, a
	}

	return a <= b*2
}

// Extract first folds every retained run into a single sorted run, then
// partitions its updates by whether their time is in advance of upper:
// times not in advance of upper are sealed as ready (to become a batch
// bounded [prevUpper, upper)), the remainder are kept for a future
// Extract. lowerBound is the minimal antichain of every kept time, the
// next batch's lower frontier.
func (b *Batcher[D, T, R]) Extract(
	upper lattice.Antichain[T],
) (ready, kept []tracelib.Update[D, T, R], lowerBound lattice.Antichain[T]) {
	if len(b.stack) == 0 {
		return nil, nil, nil
	}

	merged := b.stack[0]
	for _, r := range b.stack[1:] {
		merged = b.mergeRuns(merged, r)
	}

	b.stack = b.stack[:0]

	for _, c := range merged {
		for _, e := range c.entries {
			if upper.Covers(e.Time) {
				lowerBound = lowerBound.Insert(e.Time)
				kept = append(kept, e)
			} else {
				ready = append(ready, e)
			}
		}

		b.recycle(c.entries)
	}

	if len(kept) > 0 {
		b.stack = append(b.stack, b.packRun(kept))
	}

	return ready, kept, lowerBound
}

func compareKeys[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]](
	a, b tracelib.Update[D, T, R],
) int {
	if c := a.Data.Compare(b.Data); c != 0 {
		return c
	}

	return a.Time.Compare(b.Time)
}
