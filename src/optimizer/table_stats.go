package optimizer

import (
	"fmt"
	"math"

	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

const defaultHistogramBuckets = 100

// TableStats holds one histogram per int column of a table, built from a
// full sequential scan through the buffer pool. Two passes: one to find the
// per-column ranges, one to populate the buckets.
type TableStats struct {
	tableID    common.TableID
	numTuples  int64
	histograms map[int]*IntHistogram
}

func NewTableStats(
	tid common.TxnID,
	tableID common.TableID,
	pool *bufferpool.Manager,
	tables bufferpool.Tables,
) (*TableStats, error) {
	file, err := tables.DBFile(tableID)
	if err != nil {
		return nil, err
	}
	desc := file.Desc()

	mins := map[int]int32{}
	maxs := map[int]int32{}
	for i := 0; i < desc.NumFields(); i++ {
		if desc.TypeAt(i) == tuple.IntType {
			mins[i] = math.MaxInt32
			maxs[i] = math.MinInt32
		}
	}

	stats := &TableStats{
		tableID:    tableID,
		histograms: map[int]*IntHistogram{},
	}

	it := file.Iterator(tid, pool)
	if err := it.Open(); err != nil {
		return nil, err
	}
	defer it.Close()

	for {
		next, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("stats range scan: %w", err)
		}
		if next.IsNone() {
			break
		}

		stats.numTuples++
		t := next.Unwrap()
		for i := range mins {
			v := t.Field(i).(tuple.IntField).Value
			if v < mins[i] {
				mins[i] = v
			}
			if v > maxs[i] {
				maxs[i] = v
			}
		}
	}

	if stats.numTuples == 0 {
		return stats, nil
	}

	for i := range mins {
		stats.histograms[i] = NewIntHistogram(defaultHistogramBuckets, mins[i], maxs[i])
	}

	if err := it.Rewind(); err != nil {
		return nil, err
	}
	for {
		next, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("stats fill scan: %w", err)
		}
		if next.IsNone() {
			break
		}

		t := next.Unwrap()
		for i, h := range stats.histograms {
			h.AddValue(t.Field(i).(tuple.IntField).Value)
		}
	}

	return stats, nil
}

func (s *TableStats) NumTuples() int64 {
	return s.numTuples
}

// EstimateSelectivity predicts the fraction of the table's tuples matching
// "field op v". Columns without a histogram fall back to 1.
func (s *TableStats) EstimateSelectivity(field int, op tuple.Op, v int32) (float64, error) {
	h, ok := s.histograms[field]
	if !ok {
		return 1, nil
	}
	return h.EstimateSelectivity(op, v)
}
