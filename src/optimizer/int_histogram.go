package optimizer

import (
	"fmt"
	"strings"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

// IntHistogram is a fixed-width histogram over an int32 column, used to
// estimate predicate selectivity at bucket-level resolution.
type IntHistogram struct {
	min     int32
	max     int32
	buckets []int64
	count   int64
}

func NewIntHistogram(buckets int, min, max int32) *IntHistogram {
	assert.Assert(buckets > 0, "histogram needs at least one bucket")
	assert.Assert(min <= max, "histogram range is empty: [%d, %d]", min, max)

	return &IntHistogram{
		min:     min,
		max:     max,
		buckets: make([]int64, buckets),
	}
}

// pos maps a value to its bucket, clamped to the valid range.
func (h *IntHistogram) pos(v int32) int {
	b := int64(len(h.buckets)) * (int64(v) - int64(h.min)) /
		(int64(h.max) - int64(h.min) + 1)
	if b < 0 {
		b = 0
	}
	if b >= int64(len(h.buckets)) {
		b = int64(len(h.buckets)) - 1
	}
	return int(b)
}

func (h *IntHistogram) AddValue(v int32) {
	h.buckets[h.pos(v)]++
	h.count++
}

// EstimateSelectivity predicts the fraction of recorded values satisfying
// "value op v". Resolution is whole buckets; no interpolation.
func (h *IntHistogram) EstimateSelectivity(op tuple.Op, v int32) (float64, error) {
	if h.count == 0 {
		return 0, nil
	}

	switch op {
	case tuple.OpEquals, tuple.OpNotEquals:
		eq := 0.0
		if v >= h.min && v <= h.max {
			eq = float64(h.buckets[h.pos(v)]) / float64(h.count)
		}
		if op == tuple.OpEquals {
			return eq, nil
		}
		return 1 - eq, nil

	case tuple.OpGreaterThan, tuple.OpGreaterThanOrEq,
		tuple.OpLessThan, tuple.OpLessThanOrEq:
		gt := 1.0
		switch {
		case v > h.max:
			gt = 0
		case v < h.min:
			gt = 1
		default:
			var sum int64
			for i := h.pos(v); i < len(h.buckets); i++ {
				sum += h.buckets[i]
			}
			gt = float64(sum) / float64(h.count)
		}
		if op == tuple.OpGreaterThan || op == tuple.OpGreaterThanOrEq {
			return gt, nil
		}
		return 1 - gt, nil
	}

	return 0, fmt.Errorf("operator %s has no histogram estimate", op)
}

func (h *IntHistogram) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "IntHistogram[%d..%d, n=%d]:", h.min, h.max, h.count)
	for i, c := range h.buckets {
		fmt.Fprintf(&b, " b%d=%d", i, c)
	}
	return b.String()
}
