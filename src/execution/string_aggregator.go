package execution

import (
	"fmt"

	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

// StringAggregator supports COUNT only; any other operator over a string
// column is rejected at construction.
type StringAggregator struct {
	gfield int
	afield int
	desc   *tuple.TupleDesc

	counts    map[tuple.Field]int64
	groupKeys []tuple.Field
	ungrouped int64
	merged    bool
}

func NewStringAggregator(
	gfield int,
	gfieldType tuple.Type,
	afield int,
	op AggregateOp,
) (*StringAggregator, error) {
	if op != AggCount {
		return nil, fmt.Errorf("%w: %s over string", ErrIllegalAggregate, op)
	}

	var desc *tuple.TupleDesc
	if gfield == NoGrouping {
		desc = tuple.MustTupleDesc(
			[]tuple.Type{tuple.IntType},
			[]string{"count(aggregate)"},
		)
	} else {
		desc = tuple.MustTupleDesc(
			[]tuple.Type{gfieldType, tuple.IntType},
			[]string{"group", "count(aggregate)"},
		)
	}

	return &StringAggregator{
		gfield: gfield,
		afield: afield,
		desc:   desc,
		counts: make(map[tuple.Field]int64),
	}, nil
}

func (a *StringAggregator) MergeTupleIntoGroup(t *tuple.Tuple) error {
	if _, ok := t.Field(a.afield).(tuple.StringField); !ok {
		return fmt.Errorf(
			"%w: string aggregator over %s",
			ErrIllegalAggregate,
			t.Field(a.afield).Type(),
		)
	}

	if a.gfield == NoGrouping {
		a.ungrouped++
		a.merged = true
		return nil
	}

	key := t.Field(a.gfield)
	if _, ok := a.counts[key]; !ok {
		a.groupKeys = append(a.groupKeys, key)
	}
	a.counts[key]++
	return nil
}

func (a *StringAggregator) Iterator() OpIterator {
	var tuples []*tuple.Tuple

	if a.gfield == NoGrouping {
		if a.merged {
			t := tuple.New(a.desc)
			t.SetField(0, tuple.NewIntField(int32(a.ungrouped)))
			tuples = append(tuples, t)
		}
	} else {
		for _, key := range a.groupKeys {
			t := tuple.New(a.desc)
			t.SetField(0, key)
			t.SetField(1, tuple.NewIntField(int32(a.counts[key])))
			tuples = append(tuples, t)
		}
	}

	return newSliceIterator(a.desc, tuples)
}
