package lattice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tracelib/lattice"
)

func TestAntichainInsertDominance(t *testing.T) {
	a := lattice.NewAntichain(lattice.IntTime(5))
	a = a.Insert(lattice.IntTime(3))

	require.Len(t, a, 1)
	assert.Equal(t, lattice.IntTime(5), a[0], "3 is dominated by the existing 5 and must be discarded")
}

func TestAntichainInsertReplacesDominated(t *testing.T) {
	a := lattice.NewAntichain(lattice.IntTime(5))
	a = a.Insert(lattice.IntTime(8))

	require.Len(t, a, 1)
	assert.Equal(t, lattice.IntTime(8), a[0])
}

func TestAntichainCovers(t *testing.T) {
	f := lattice.NewAntichain(lattice.IntTime(2))

	assert.True(t, f.Covers(2))
	assert.True(t, f.Covers(5))
	assert.False(t, f.Covers(1))
}

func TestAntichainEqual(t *testing.T) {
	a := lattice.NewAntichain(lattice.IntTime(2))
	b := lattice.NewAntichain(lattice.IntTime(2))
	c := lattice.NewAntichain(lattice.IntTime(3))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestAntichainIsEmpty(t *testing.T) {
	var empty lattice.Antichain[lattice.IntTime]
	assert.True(t, empty.IsEmpty())

	nonEmpty := lattice.NewAntichain(lattice.IntTime(0))
	assert.False(t, nonEmpty.IsEmpty())
}

func TestAdvanceTime(t *testing.T) {
	since := lattice.NewAntichain(lattice.IntTime(4))

	advanced := lattice.AdvanceTime(lattice.IntTime(1), since)
	assert.Equal(t, lattice.IntTime(4), advanced, "times below since collapse to since")

	advanced = lattice.AdvanceTime(lattice.IntTime(9), since)
	assert.Equal(t, lattice.IntTime(9), advanced, "times above since are left untouched")
}

func TestAntichainJoin(t *testing.T) {
	a := lattice.NewAntichain(lattice.IntTime(2))
	b := lattice.NewAntichain(lattice.IntTime(5))

	joined := a.Join(b)
	require.Len(t, joined, 1)
	assert.Equal(t, lattice.IntTime(5), joined[0])
}
