package execution

import (
	"fmt"

	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

// intAggState is the per-group running state. It is sufficient to compute
// any of the five operators in a single pass; the sum is kept in 64 bits so
// intermediate overflow cannot corrupt AVG.
type intAggState struct {
	min   int32
	max   int32
	sum   int64
	count int64
}

func (s *intAggState) merge(v int32) {
	if s.count == 0 {
		s.min = v
		s.max = v
	} else {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
	}
	s.sum += int64(v)
	s.count++
}

// result materializes the operator. SUM wraps to 32 bits with two's
// complement semantics; AVG uses integer division.
func (s *intAggState) result(op AggregateOp) int32 {
	switch op {
	case AggMin:
		return s.min
	case AggMax:
		return s.max
	case AggSum:
		return int32(s.sum)
	case AggAvg:
		return int32(s.sum / s.count)
	case AggCount:
		return int32(s.count)
	}
	panic(fmt.Sprintf("unknown aggregate op %d", op))
}

// IntegerAggregator computes MIN/MAX/SUM/AVG/COUNT over an int column,
// optionally grouped by another field.
type IntegerAggregator struct {
	gfield int
	afield int
	op     AggregateOp
	desc   *tuple.TupleDesc

	groups    map[tuple.Field]*intAggState
	groupKeys []tuple.Field // insertion order, for deterministic replay
	ungrouped intAggState
	merged    bool
}

func NewIntegerAggregator(
	gfield int,
	gfieldType tuple.Type,
	afield int,
	op AggregateOp,
) *IntegerAggregator {
	var desc *tuple.TupleDesc
	if gfield == NoGrouping {
		desc = tuple.MustTupleDesc(
			[]tuple.Type{tuple.IntType},
			[]string{fmt.Sprintf("%s(aggregate)", op)},
		)
	} else {
		desc = tuple.MustTupleDesc(
			[]tuple.Type{gfieldType, tuple.IntType},
			[]string{"group", fmt.Sprintf("%s(aggregate)", op)},
		)
	}

	return &IntegerAggregator{
		gfield: gfield,
		afield: afield,
		op:     op,
		desc:   desc,
		groups: make(map[tuple.Field]*intAggState),
	}
}

func (a *IntegerAggregator) MergeTupleIntoGroup(t *tuple.Tuple) error {
	af, ok := t.Field(a.afield).(tuple.IntField)
	if !ok {
		return fmt.Errorf("%w: %s over %s", ErrIllegalAggregate, a.op, t.Field(a.afield).Type())
	}

	if a.gfield == NoGrouping {
		a.ungrouped.merge(af.Value)
		a.merged = true
		return nil
	}

	key := t.Field(a.gfield)
	state, ok := a.groups[key]
	if !ok {
		state = &intAggState{}
		a.groups[key] = state
		a.groupKeys = append(a.groupKeys, key)
	}
	state.merge(af.Value)
	return nil
}

func (a *IntegerAggregator) Iterator() OpIterator {
	var tuples []*tuple.Tuple

	if a.gfield == NoGrouping {
		if a.merged {
			t := tuple.New(a.desc)
			t.SetField(0, tuple.NewIntField(a.ungrouped.result(a.op)))
			tuples = append(tuples, t)
		}
	} else {
		for _, key := range a.groupKeys {
			t := tuple.New(a.desc)
			t.SetField(0, key)
			t.SetField(1, tuple.NewIntField(a.groups[key].result(a.op)))
			tuples = append(tuples, t)
		}
	}

	return newSliceIterator(a.desc, tuples)
}
