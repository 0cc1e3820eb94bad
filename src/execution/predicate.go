package execution

import (
	"fmt"

	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

// Predicate compares one field of a tuple against a constant.
type Predicate struct {
	Field   int
	Op      tuple.Op
	Operand tuple.Field
}

func NewPredicate(field int, op tuple.Op, operand tuple.Field) Predicate {
	return Predicate{Field: field, Op: op, Operand: operand}
}

func (p Predicate) Filter(t *tuple.Tuple) (bool, error) {
	if p.Field < 0 || p.Field >= t.Desc().NumFields() {
		return false, fmt.Errorf("%w: %d", ErrBadFieldIdx, p.Field)
	}
	return t.Field(p.Field).Compare(p.Op, p.Operand)
}

func (p Predicate) String() string {
	return fmt.Sprintf("f%d %s %s", p.Field, p.Op, p.Operand)
}

// JoinPredicate compares a field of a left tuple with a field of a right
// tuple.
type JoinPredicate struct {
	LeftField  int
	RightField int
	Op         tuple.Op
}

func NewJoinPredicate(leftField, rightField int, op tuple.Op) JoinPredicate {
	return JoinPredicate{LeftField: leftField, RightField: rightField, Op: op}
}

func (p JoinPredicate) Filter(left, right *tuple.Tuple) (bool, error) {
	if p.LeftField < 0 || p.LeftField >= left.Desc().NumFields() {
		return false, fmt.Errorf("%w: left %d", ErrBadFieldIdx, p.LeftField)
	}
	if p.RightField < 0 || p.RightField >= right.Desc().NumFields() {
		return false, fmt.Errorf("%w: right %d", ErrBadFieldIdx, p.RightField)
	}
	return left.Field(p.LeftField).Compare(p.Op, right.Field(p.RightField))
}
