package execution

import (
	"errors"

	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

// NoGrouping disables grouping when passed as the group-by field index.
const NoGrouping = -1

var ErrIllegalAggregate = errors.New("aggregate operator is not applicable to the field type")

type AggregateOp uint8

const (
	AggMin AggregateOp = iota
	AggMax
	AggSum
	AggAvg
	AggCount
)

func (op AggregateOp) String() string {
	switch op {
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggSum:
		return "sum"
	case AggAvg:
		return "avg"
	case AggCount:
		return "count"
	}
	return "?"
}

// Aggregator merges tuples one at a time and replays the aggregated result.
type Aggregator interface {
	MergeTupleIntoGroup(t *tuple.Tuple) error
	Iterator() OpIterator
}

// sliceIterator replays an in-memory result set.
type sliceIterator struct {
	desc   *tuple.TupleDesc
	tuples []*tuple.Tuple
	pos    int
	open   bool
}

func newSliceIterator(desc *tuple.TupleDesc, tuples []*tuple.Tuple) *sliceIterator {
	return &sliceIterator{desc: desc, tuples: tuples}
}

func (it *sliceIterator) Open() error {
	it.open = true
	it.pos = 0
	return nil
}

func (it *sliceIterator) Next() (optional.Optional[*tuple.Tuple], error) {
	if !it.open {
		return noTuple(), ErrNotOpen
	}
	if it.pos >= len(it.tuples) {
		return noTuple(), nil
	}
	t := it.tuples[it.pos]
	it.pos++
	return optional.Some(t), nil
}

func (it *sliceIterator) Rewind() error {
	if !it.open {
		return ErrNotOpen
	}
	it.pos = 0
	return nil
}

func (it *sliceIterator) Close() {
	it.open = false
}

func (it *sliceIterator) TupleDesc() *tuple.TupleDesc {
	return it.desc
}
