// Package cursorlist multiplexes several batch cursors into a single
// sorted (Data, Time) stream via a tournament min-heap, the structure a
// trace reader hands back from CursorThrough. It is grounded directly on
// the Go runtime's trace.Reader frontier-heap pattern (a slice of cursors
// kept in heap order, refreshed and re-heapified as each is advanced),
// adapted here from an event-stream frontier to an update-key frontier,
// and implemented with the standard container/heap interface rather than
// hand-rolled sift helpers, since nothing here needs to avoid importing
// the standard library the way runtime-internal code does.
package cursorlist

import (
	"container/heap"

	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/batch"
	"github.com/Sumatoshi-tech/tracelib/lattice"
)

// CursorList is a batch.Cursor over the union of several underlying
// cursors, yielding (Data, Time) keys in sorted order with duplicate keys
// combined and zero-diff keys suppressed, matching the accumulation
// semantics a single batch's cursor already provides.
type CursorList[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] struct {
	heap    cursorHeap[D, T, R]
	value   R
	hasCur  bool
	curData D
	curTime T
}

var _ batch.Cursor[tracelib.String, lattice.IntTime, *tracelib.IntDiff] = (*CursorList[tracelib.String, lattice.IntTime, *tracelib.IntDiff])(nil)

// New builds a CursorList over cursors, which must all be positioned at
// their first entry (or exhausted). The returned list is already
// positioned on its first key, so Valid/Key/Value may be used at once,
// as with the [batch.Cursor] implementations elsewhere in this module.
func New[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]](
	cursors []batch.Cursor[D, T, R],
) *CursorList[D, T, R] {
	cl := &CursorList[D, T, R]{}

	for _, c := range cursors {
		if c.Valid() {
			cl.heap = append(cl.heap, c)
		}
	}

	heap.Init(&cl.heap)
	cl.Advance()

	return cl
}

// Valid implements [batch.Cursor].
func (cl *CursorList[D, T, R]) Valid() bool { return cl.hasCur }

// Key implements [batch.Cursor].
func (cl *CursorList[D, T, R]) Key() (D, T) { return cl.curData, cl.curTime }

// Value implements [batch.Cursor].
func (cl *CursorList[D, T, R]) Value() R { return cl.value }

// SeekKey implements [batch.Cursor] by seeking every underlying cursor and
// re-establishing the tournament.
func (cl *CursorList[D, T, R]) SeekKey(data D, t T) {
	rebuilt := cl.heap[:0]

	for _, c := range cl.heap {
		c.SeekKey(data, t)

		if c.Valid() {
			rebuilt = append(rebuilt, c)
		}
	}

	cl.heap = rebuilt
	heap.Init(&cl.heap)
	cl.Advance()
}

// Advance moves to the next distinct (Data, Time) key across every
// underlying cursor, combining equal keys via PlusEquals and skipping any
// key whose combined diff is zero.
func (cl *CursorList[D, T, R]) Advance() {
	for {
		if len(cl.heap) == 0 {
			cl.hasCur = false

			return
		}

		data, t := cl.heap[0].Key()

		var total R

		started := false

		for len(cl.heap) > 0 {
			nextData, nextTime := cl.heap[0].Key()
			if nextData.Compare(data) != 0 || nextTime.Compare(t) != 0 {
				break
			}

			v := cl.heap[0].Value()

			if !started {
				total = v.Clone()
				started = true
			} else {
				total.PlusEquals(v)
			}

			cl.heap[0].Advance()

			if cl.heap[0].Valid() {
				heap.Fix(&cl.heap, 0)
			} else {
				heap.Pop(&cl.heap)
			}
		}

		if total.IsZero() {
			continue
		}

		cl.curData, cl.curTime, cl.value, cl.hasCur = data, t, total, true

		return
	}
}

type cursorHeap[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] []batch.Cursor[D, T, R]

func (h cursorHeap[D, T, R]) Len() int { return len(h) }

func (h cursorHeap[D, T, R]) Less(i, j int) bool {
	di, ti := h[i].Key()
	dj, tj := h[j].Key()

	if c := di.Compare(dj); c != 0 {
		return c < 0
	}

	return ti.Compare(tj) < 0
}

func (h cursorHeap[D, T, R]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap[D, T, R]) Push(x any) {
	*h = append(*h, x.(batch.Cursor[D, T, R]))
}

func (h *cursorHeap[D, T, R]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}
