package execution

import (
	"fmt"

	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

// Delete removes every child tuple through the buffer pool and emits a
// single 1-field tuple holding the count. Subsequent calls return None.
type Delete struct {
	tid   common.TxnID
	child OpIterator
	pool  *bufferpool.Manager

	open bool
	done bool
}

func NewDelete(tid common.TxnID, child OpIterator, pool *bufferpool.Manager) *Delete {
	return &Delete{
		tid:   tid,
		child: child,
		pool:  pool,
	}
}

func (op *Delete) Open() error {
	if err := op.child.Open(); err != nil {
		return err
	}
	op.open = true
	op.done = false
	return nil
}

func (op *Delete) Next() (optional.Optional[*tuple.Tuple], error) {
	if !op.open {
		return noTuple(), ErrNotOpen
	}
	if op.done {
		return noTuple(), nil
	}
	op.done = true

	count := int32(0)
	for {
		next, err := op.child.Next()
		if err != nil {
			return noTuple(), err
		}
		if next.IsNone() {
			break
		}

		if err := op.pool.DeleteTuple(op.tid, next.Unwrap()); err != nil {
			return noTuple(), fmt.Errorf("delete operator: %w", err)
		}
		count++
	}

	result := tuple.New(countDesc)
	result.SetField(0, tuple.NewIntField(count))
	return optional.Some(result), nil
}

func (op *Delete) Rewind() error {
	if !op.open {
		return ErrNotOpen
	}
	if err := op.child.Rewind(); err != nil {
		return err
	}
	op.done = false
	return nil
}

func (op *Delete) Close() {
	op.open = false
	op.child.Close()
}

func (op *Delete) TupleDesc() *tuple.TupleDesc {
	return countDesc
}
