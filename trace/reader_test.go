package trace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/batch"
	"github.com/Sumatoshi-tech/tracelib/lattice"
	"github.com/Sumatoshi-tech/tracelib/spine"
	"github.com/Sumatoshi-tech/tracelib/trace"
)

// A spine driven purely through the Reader contract behaves identically
// to one driven through its concrete type: downstream operators only ever
// see this interface.
func TestSpineThroughReaderContract(t *testing.T) {
	var r trace.Reader[tracelib.String, lattice.IntTime, *tracelib.IntDiff] =
		spine.New[tracelib.String, lattice.IntTime, *tracelib.IntDiff](tracelib.OperatorInfo{}, nil, nil)

	s, ok := r.(*spine.Spine[tracelib.String, lattice.IntTime, *tracelib.IntDiff])
	require.True(t, ok)

	d := tracelib.IntDiff(1)
	builder := batch.NewBuilder[tracelib.String, lattice.IntTime, *tracelib.IntDiff]()
	builder.Push("a", 0, &d)
	s.Insert(builder.Done(
		lattice.NewAntichain(lattice.IntTime(0)),
		lattice.NewAntichain(lattice.IntTime(1)),
		lattice.NewAntichain(lattice.IntTime(0)),
	))

	r.AdvanceBy(lattice.NewAntichain(lattice.IntTime(1)))
	r.DistinguishSince(lattice.NewAntichain(lattice.IntTime(1)))

	assert.True(t, r.AdvanceFrontier().Equal(lattice.NewAntichain(lattice.IntTime(1))))
	assert.True(t, r.DistinguishFrontier().Equal(lattice.NewAntichain(lattice.IntTime(1))))

	cur, storage, ready := r.CursorThrough(lattice.NewAntichain(lattice.IntTime(1)))
	require.True(t, ready)
	require.Len(t, storage, 1)
	require.True(t, cur.Valid())

	data, _ := cur.Key()
	assert.Equal(t, tracelib.String("a"), data)
}
