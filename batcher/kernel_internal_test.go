package batcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/lattice"
)

func entry(data string, tm int64) tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff] {
	d := tracelib.IntDiff(1)

	return tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{
		Data: tracelib.String(data),
		Time: lattice.IntTime(tm),
		Diff: &d,
	}
}

// chunkLens flattens the per-chunk entry counts of every stack run.
func chunkLens(b *Batcher[tracelib.String, lattice.IntTime, *tracelib.IntDiff]) []int {
	var lens []int

	for _, r := range b.stack {
		for _, c := range r {
			lens = append(lens, len(c.entries))
		}
	}

	return lens
}

// An input larger than the chunk capacity must be split across several
// capacity-bounded chunks, never held as one oversized buffer.
func TestPushChunkSplitsOversizedInput(t *testing.T) {
	b := &Batcher[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{
		chunkCapacity:   4,
		recycleCapacity: 4,
	}

	var chunk []tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]
	for i := range 11 {
		chunk = append(chunk, entry(string(rune('a'+i)), 0))
	}

	b.PushChunk(chunk)

	lens := chunkLens(b)
	require.Len(t, lens, 3)

	total := 0

	for _, n := range lens {
		assert.LessOrEqual(t, n, 4)
		total += n
	}

	assert.Equal(t, 11, total)
}

// Merging two runs must keep every output chunk within the capacity and
// recycle the consumed input buffers through the stash.
func TestMergeRunsKeepsChunksBounded(t *testing.T) {
	b := &Batcher[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{
		chunkCapacity:   4,
		recycleCapacity: 4,
	}

	var first, second []tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]
	for i := range 10 {
		first = append(first, entry(string(rune('a'+2*i)), 0))
		second = append(second, entry(string(rune('b'+2*i)), 0))
	}

	b.PushChunk(first)
	b.PushChunk(second)

	require.Len(t, b.stack, 1, "comparable-size runs must merge into one")
	assert.Equal(t, 20, b.stack[0].len())

	for _, n := range chunkLens(b) {
		assert.LessOrEqual(t, n, 4)
	}

	assert.NotEmpty(t, b.stash, "consumed input buffers must return to the stash")
}
