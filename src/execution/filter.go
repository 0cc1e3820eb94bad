package execution

import (
	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

// Filter passes through the child tuples matching its predicate.
type Filter struct {
	pred  Predicate
	child OpIterator
	open  bool
}

func NewFilter(pred Predicate, child OpIterator) *Filter {
	return &Filter{pred: pred, child: child}
}

func (f *Filter) Open() error {
	if err := f.child.Open(); err != nil {
		return err
	}
	f.open = true
	return nil
}

func (f *Filter) Next() (optional.Optional[*tuple.Tuple], error) {
	if !f.open {
		return noTuple(), ErrNotOpen
	}

	for {
		next, err := f.child.Next()
		if err != nil || next.IsNone() {
			return next, err
		}

		t := next.Unwrap()
		matches, err := f.pred.Filter(t)
		if err != nil {
			return noTuple(), err
		}
		if matches {
			return optional.Some(t), nil
		}
	}
}

func (f *Filter) Rewind() error {
	if !f.open {
		return ErrNotOpen
	}
	return f.child.Rewind()
}

func (f *Filter) Close() {
	f.open = false
	f.child.Close()
}

func (f *Filter) TupleDesc() *tuple.TupleDesc {
	return f.child.TupleDesc()
}
