package spine_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/lattice"
	"github.com/Sumatoshi-tech/tracelib/spine"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s := spine.New[tracelib.String, lattice.IntTime, *tracelib.IntDiff](tracelib.OperatorInfo{GlobalID: 7}, nil, nil)
	s.DistinguishSince(lattice.NewAntichain(lattice.IntTime(1 << 20)))

	for i := int64(0); i < 64; i++ {
		s.Insert(sealBatch(t, i, i+1, upd("k", i, 1)))
	}

	var buf bytes.Buffer
	require.NoError(t, s.WriteSnapshot(&buf))

	raw, err := spine.ReadSnapshotYAML(&buf)
	require.NoError(t, err)

	var doc struct {
		Advance []int64 `yaml:"advance"`
		Upper   []int64 `yaml:"upper"`
		Pending int     `yaml:"pending"`
		Layers  []struct {
			State string `yaml:"state"`
			Len   int    `yaml:"len"`
		} `yaml:"layers"`
	}

	require.NoError(t, yaml.Unmarshal(raw, &doc))

	assert.Equal(t, []int64{64}, doc.Upper)
	assert.NotEmpty(t, doc.Layers)

	total := 0
	for _, layer := range doc.Layers {
		total += layer.Len
	}

	assert.Equal(t, 64, total)
}

func TestSnapshotEmptySpine(t *testing.T) {
	s := spine.New[tracelib.String, lattice.IntTime, *tracelib.IntDiff](tracelib.OperatorInfo{}, nil, nil)

	data, err := s.SnapshotBytes()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	raw, err := spine.ReadSnapshotYAML(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "pending: 0")
}