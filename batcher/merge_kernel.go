package batcher

import (
	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/lattice"
	"github.com/Sumatoshi-tech/tracelib/pkg/mathutil"
)

// runQueue yields the entries of a run in (Data, Time) order, handing
// each chunk's buffer back to the stash once it is exhausted.
type runQueue[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]] struct {
	chunks run[D, T, R]
	pos    int
}

func queue[D tracelib.Ordered[D], T lattice.Time[T], R tracelib.Diff[R]](r run[D, T, R]) runQueue[D, T, R] {
	return runQueue[D, T, R]{chunks: r}
}

func (q *runQueue[D, T, R]) empty() bool {
	return len(q.chunks) == 0
}

func (q *runQueue[D, T, R]) peek() tracelib.Update[D, T, R] {
	return q.chunks[0].entries[q.pos]
}

func (q *runQueue[D, T, R]) pop(b *Batcher[D, T, R]) tracelib.Update[D, T, R] {
	e := q.chunks[0].entries[q.pos]
	q.pos++
	q.drop(b)

	return e
}

// drop recycles the head chunk's buffer and advances to the next chunk
// once the head is exhausted.
func (q *runQueue[D, T, R]) drop(b *Batcher[D, T, R]) {
	if q.pos == len(q.chunks[0].entries) {
		b.recycle(q.chunks[0].entries)
		q.chunks = q.chunks[1:]
		q.pos = 0
	}
}

// mergeRuns walks two sorted runs with peek-ahead queues, copying the
// smaller (Data, Time) key forward, combining equal keys via PlusEquals
// and dropping zero results. Whenever the output buffer fills to the
// chunk capacity it is pushed onto the output run and a fresh buffer is
// acquired from the stash, so the merged run stays composed of
// capacity-bounded chunks no matter how large the inputs are. Once one
// input is exhausted, the remainder of the other is flushed as bulk
// copies, a chunk-capacity's worth at a time.
func (b *Batcher[D, T, R]) mergeRuns(a, c run[D, T, R]) run[D, T, R] {
	var out run[D, T, R]

	result := b.empty()

	flush := func() {
		out = append(out, chunk[D, T, R]{entries: result})
		result = b.empty()
	}

	q1, q2 := queue(a), queue(c)

	for !q1.empty() && !q2.empty() {
		cmp := compareKeys(q1.peek(), q2.peek())

		switch {
		case cmp < 0:
			result = append(result, q1.pop(b))
		case cmp > 0:
			result = append(result, q2.pop(b))
		default:
			combined := q1.pop(b)
			combined.Diff = combined.Diff.Clone()
			combined.Diff.PlusEquals(q2.pop(b).Diff)

			if !combined.Diff.IsZero() {
				result = append(result, combined)
			}
		}

		if len(result) == b.chunkCapacity {
			flush()
		}
	}

	for _, q := range []*runQueue[D, T, R]{&q1, &q2} {
		for !q.empty() {
			entries := q.chunks[0].entries
			end := mathutil.Min(q.pos+b.chunkCapacity-len(result), len(entries))
			result = append(result, entries[q.pos:end]...)
			q.pos = end
			q.drop(b)

			if len(result) == b.chunkCapacity {
				flush()
			}
		}
	}

	if len(result) > 0 {
		out = append(out, chunk[D, T, R]{entries: result})
	} else {
		b.recycle(result)
	}

	return out
}
