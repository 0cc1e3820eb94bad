package execution

import (
	"fmt"

	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

// Aggregate drains its child on open, merges every tuple into an aggregator
// picked by the aggregated column's type, and replays the result set. Group
// iteration order is unspecified.
type Aggregate struct {
	child  OpIterator
	afield int
	gfield int
	op     AggregateOp

	agg     Aggregator
	results OpIterator
	open    bool
}

func NewAggregate(
	child OpIterator,
	afield int,
	gfield int,
	op AggregateOp,
) (*Aggregate, error) {
	childDesc := child.TupleDesc()
	if afield < 0 || afield >= childDesc.NumFields() {
		return nil, fmt.Errorf("%w: aggregate field %d", ErrBadFieldIdx, afield)
	}
	if gfield != NoGrouping && (gfield < 0 || gfield >= childDesc.NumFields()) {
		return nil, fmt.Errorf("%w: group field %d", ErrBadFieldIdx, gfield)
	}

	var gfieldType tuple.Type
	if gfield != NoGrouping {
		gfieldType = childDesc.TypeAt(gfield)
	}

	var (
		agg Aggregator
		err error
	)
	switch childDesc.TypeAt(afield) {
	case tuple.IntType:
		agg = NewIntegerAggregator(gfield, gfieldType, afield, op)
	case tuple.StringType:
		agg, err = NewStringAggregator(gfield, gfieldType, afield, op)
		if err != nil {
			return nil, err
		}
	}

	return &Aggregate{
		child:  child,
		afield: afield,
		gfield: gfield,
		op:     op,
		agg:    agg,
	}, nil
}

func (a *Aggregate) AggregateFieldName() string {
	return a.child.TupleDesc().NameAt(a.afield)
}

func (a *Aggregate) GroupFieldName() string {
	if a.gfield == NoGrouping {
		return ""
	}
	return a.child.TupleDesc().NameAt(a.gfield)
}

func (a *Aggregate) Open() error {
	if err := a.child.Open(); err != nil {
		return err
	}

	for {
		next, err := a.child.Next()
		if err != nil {
			a.child.Close()
			return err
		}
		if next.IsNone() {
			break
		}
		if err := a.agg.MergeTupleIntoGroup(next.Unwrap()); err != nil {
			a.child.Close()
			return err
		}
	}

	a.results = a.agg.Iterator()
	if err := a.results.Open(); err != nil {
		return err
	}
	a.open = true
	return nil
}

func (a *Aggregate) Next() (optional.Optional[*tuple.Tuple], error) {
	if !a.open {
		return noTuple(), ErrNotOpen
	}
	return a.results.Next()
}

func (a *Aggregate) Rewind() error {
	if !a.open {
		return ErrNotOpen
	}
	return a.results.Rewind()
}

func (a *Aggregate) Close() {
	a.open = false
	if a.results != nil {
		a.results.Close()
	}
	a.child.Close()
}

func (a *Aggregate) TupleDesc() *tuple.TupleDesc {
	if a.results != nil {
		return a.results.TupleDesc()
	}
	// schema is known before open as well
	return a.agg.Iterator().TupleDesc()
}
