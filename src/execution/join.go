package execution

import (
	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

// Join is a nested-loop join: for every left tuple the right child is
// rewound and streamed; matching pairs are emitted concatenated.
type Join struct {
	pred  JoinPredicate
	left  OpIterator
	right OpIterator

	desc *tuple.TupleDesc
	cur  optional.Optional[*tuple.Tuple]
	open bool
}

func NewJoin(pred JoinPredicate, left, right OpIterator) *Join {
	return &Join{
		pred:  pred,
		left:  left,
		right: right,
		desc:  tuple.Merge(left.TupleDesc(), right.TupleDesc()),
	}
}

func (j *Join) Open() error {
	if err := j.left.Open(); err != nil {
		return err
	}
	if err := j.right.Open(); err != nil {
		j.left.Close()
		return err
	}
	j.open = true
	j.cur = optional.None[*tuple.Tuple]()
	return nil
}

func (j *Join) Next() (optional.Optional[*tuple.Tuple], error) {
	if !j.open {
		return noTuple(), ErrNotOpen
	}

	for {
		if j.cur.IsNone() {
			next, err := j.left.Next()
			if err != nil || next.IsNone() {
				return next, err
			}
			j.cur = next
			if err := j.right.Rewind(); err != nil {
				return noTuple(), err
			}
		}

		left := j.cur.Unwrap()
		for {
			rnext, err := j.right.Next()
			if err != nil {
				return noTuple(), err
			}
			if rnext.IsNone() {
				j.cur.Clear()
				break
			}

			right := rnext.Unwrap()
			matches, err := j.pred.Filter(left, right)
			if err != nil {
				return noTuple(), err
			}
			if matches {
				return optional.Some(tuple.Combine(left, right)), nil
			}
		}
	}
}

func (j *Join) Rewind() error {
	if !j.open {
		return ErrNotOpen
	}
	if err := j.left.Rewind(); err != nil {
		return err
	}
	if err := j.right.Rewind(); err != nil {
		return err
	}
	j.cur.Clear()
	return nil
}

func (j *Join) Close() {
	j.open = false
	j.cur.Clear()
	j.left.Close()
	j.right.Close()
}

func (j *Join) TupleDesc() *tuple.TupleDesc {
	return j.desc
}
