package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

func TestHistogramEquality(t *testing.T) {
	h := NewIntHistogram(10, 1, 100)
	for v := int32(1); v <= 100; v++ {
		h.AddValue(v)
	}

	// each bucket covers 10 values: = matches at bucket resolution
	got, err := h.EstimateSelectivity(tuple.OpEquals, 50)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got, 1e-9)

	got, err = h.EstimateSelectivity(tuple.OpNotEquals, 50)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, got, 1e-9)

	// out of range
	got, err = h.EstimateSelectivity(tuple.OpEquals, 200)
	require.NoError(t, err)
	assert.Zero(t, got)

	got, err = h.EstimateSelectivity(tuple.OpNotEquals, 200)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestHistogramRangeEstimates(t *testing.T) {
	h := NewIntHistogram(10, 1, 100)
	for v := int32(1); v <= 100; v++ {
		h.AddValue(v)
	}

	tests := []struct {
		name     string
		op       tuple.Op
		v        int32
		expected float64
	}{
		{"gt below min", tuple.OpGreaterThan, -5, 1},
		{"gt above max", tuple.OpGreaterThan, 101, 0},
		{"gt mid", tuple.OpGreaterThan, 91, 0.1},
		{"ge mid", tuple.OpGreaterThanOrEq, 91, 0.1},
		{"lt mid", tuple.OpLessThan, 91, 0.9},
		{"le below min", tuple.OpLessThanOrEq, -5, 0},
		{"lt above max", tuple.OpLessThan, 101, 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := h.EstimateSelectivity(test.op, test.v)
			require.NoError(t, err)
			assert.InDelta(t, test.expected, got, 1e-9)
		})
	}
}

func TestHistogramClampsOutOfRangeValues(t *testing.T) {
	h := NewIntHistogram(4, 0, 39)

	h.AddValue(-1000)
	h.AddValue(1000)

	sel, err := h.EstimateSelectivity(tuple.OpEquals, 5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sel, 1e-9) // the low outlier landed in bucket 0

	sel, err = h.EstimateSelectivity(tuple.OpEquals, 35)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sel, 1e-9)
}

func TestHistogramEmpty(t *testing.T) {
	h := NewIntHistogram(5, 0, 10)

	sel, err := h.EstimateSelectivity(tuple.OpEquals, 3)
	require.NoError(t, err)
	assert.Zero(t, sel)
}

func TestHistogramRejectsLike(t *testing.T) {
	h := NewIntHistogram(5, 0, 10)
	h.AddValue(1)

	_, err := h.EstimateSelectivity(tuple.OpLike, 3)
	require.Error(t, err)
}

func TestHistogramSingleValueRange(t *testing.T) {
	h := NewIntHistogram(5, 7, 7)
	h.AddValue(7)

	sel, err := h.EstimateSelectivity(tuple.OpEquals, 7)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sel, 1e-9)
}
