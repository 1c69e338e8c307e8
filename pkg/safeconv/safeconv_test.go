package safeconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/tracelib/pkg/safeconv"
)

func TestMustUintToInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, safeconv.MustUintToInt(0))
	assert.Equal(t, 42, safeconv.MustUintToInt(42))
	assert.Equal(t, safeconv.MaxInt, safeconv.MustUintToInt(uint(safeconv.MaxInt)))

	assert.PanicsWithValue(t, "safeconv: uint to int overflow", func() {
		safeconv.MustUintToInt(uint(safeconv.MaxInt) + 1)
	})
}

func TestSafeInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    uint64
		expected int
	}{
		{name: "zero", input: 0, expected: 0},
		{name: "normal_value", input: 42, expected: 42},
		{name: "max_int", input: uint64(safeconv.MaxInt), expected: safeconv.MaxInt},
		{name: "overflow_clamps", input: math.MaxUint64, expected: safeconv.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, safeconv.SafeInt(tt.input))
		})
	}
}

func TestSafeInt64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    uint64
		expected int64
	}{
		{name: "zero", input: 0, expected: 0},
		{name: "normal_value", input: 42, expected: 42},
		{name: "max_int64", input: uint64(math.MaxInt64), expected: math.MaxInt64},
		{name: "overflow_clamps", input: math.MaxUint64, expected: math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, safeconv.SafeInt64(tt.input))
		})
	}
}
