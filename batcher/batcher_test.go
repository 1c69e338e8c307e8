package batcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/batcher"
	"github.com/Sumatoshi-tech/tracelib/lattice"
)

func diff(v int64) *tracelib.IntDiff {
	d := tracelib.IntDiff(v)

	return &d
}

func upd(data string, t int64, v int64) tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff] {
	return tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{
		Data: tracelib.String(data),
		Time: lattice.IntTime(t),
		Diff: diff(v),
	}
}

func TestBatcherExtractPartitionsByFrontier(t *testing.T) {
	b := batcher.New[tracelib.String, lattice.IntTime, *tracelib.IntDiff](0)

	b.PushChunk([]tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{
		upd("b", 2, 1),
		upd("a", 0, 1),
		upd("a", 1, 1),
	})

	ready, kept, lowerBound := b.Extract(lattice.NewAntichain(lattice.IntTime(2)))

	require.Len(t, ready, 2)
	assert.Equal(t, tracelib.String("a"), ready[0].Data)
	assert.Equal(t, lattice.IntTime(0), ready[0].Time)
	assert.Equal(t, lattice.IntTime(1), ready[1].Time)

	require.Len(t, kept, 1)
	assert.Equal(t, tracelib.String("b"), kept[0].Data)
	assert.True(t, lowerBound.Covers(lattice.IntTime(2)))
}

func TestBatcherConsolidatesEqualKeysOnMerge(t *testing.T) {
	b := batcher.New[tracelib.String, lattice.IntTime, *tracelib.IntDiff](0)

	b.PushChunk([]tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{upd("x", 0, 1)})
	b.PushChunk([]tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{upd("x", 0, -1)})

	ready, _, _ := b.Extract(lattice.NewAntichain(lattice.IntTime(1)))

	assert.Empty(t, ready, "equal and opposite diffs at the same key must cancel")
}

func TestBatcherPreservesUnrelatedKeys(t *testing.T) {
	b := batcher.New[tracelib.String, lattice.IntTime, *tracelib.IntDiff](0)

	b.PushChunk([]tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{upd("x", 0, 2)})
	b.PushChunk([]tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{upd("y", 0, 3)})

	ready, _, _ := b.Extract(lattice.NewAntichain(lattice.IntTime(1)))

	require.Len(t, ready, 2)
	assert.Equal(t, tracelib.String("x"), ready[0].Data)
	assert.Equal(t, tracelib.String("y"), ready[1].Data)
}

func TestBatcherExtractLowerBoundIsAntichainOfKeptTimes(t *testing.T) {
	b := batcher.New[tracelib.String, lattice.IntTime, *tracelib.IntDiff](0)

	b.PushChunk([]tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{
		upd("a", 0, 1),
		upd("b", 5, 1),
		upd("c", 7, 1),
	})

	_, kept, lowerBound := b.Extract(lattice.NewAntichain(lattice.IntTime(3)))

	require.Len(t, kept, 2)
	assert.True(t, lowerBound.Equal(lattice.NewAntichain(lattice.IntTime(5))),
		"the lower bound must be the minimal antichain of every retained time")
}

func TestBatcherKeptUpdatesSurviveToNextExtract(t *testing.T) {
	b := batcher.New[tracelib.String, lattice.IntTime, *tracelib.IntDiff](0)

	b.PushChunk([]tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{
		upd("a", 0, 1),
		upd("b", 5, 1),
	})

	ready, _, _ := b.Extract(lattice.NewAntichain(lattice.IntTime(1)))
	require.Len(t, ready, 1)

	ready, kept, _ := b.Extract(lattice.NewAntichain(lattice.IntTime(6)))
	require.Len(t, ready, 1)
	assert.Equal(t, tracelib.String("b"), ready[0].Data)
	assert.Empty(t, kept)
}

func TestBatcherTinyChunkCapacityStillConsolidates(t *testing.T) {
	// A one-entry chunk capacity forces the stack and stash through their
	// smallest possible configuration.
	b := batcher.New[tracelib.String, lattice.IntTime, *tracelib.IntDiff](1)

	for i := range 64 {
		b.PushChunk([]tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{
			upd("k", int64(i%4), 1),
		})
	}

	ready, _, _ := b.Extract(lattice.NewAntichain(lattice.IntTime(4)))

	require.Len(t, ready, 4, "64 updates over 4 distinct times must consolidate to 4")

	for _, e := range ready {
		assert.Equal(t, tracelib.IntDiff(16), *e.Diff)
	}
}
