package execution

import (
	"fmt"

	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

var countDesc = tuple.MustTupleDesc(
	[]tuple.Type{tuple.IntType},
	[]string{"count"},
)

// Insert consumes every child tuple, adds each to the target table through
// the buffer pool, and emits a single 1-field tuple holding the count.
// Subsequent calls return None.
type Insert struct {
	tid     common.TxnID
	child   OpIterator
	tableID common.TableID
	pool    *bufferpool.Manager

	open bool
	done bool
}

func NewInsert(
	tid common.TxnID,
	child OpIterator,
	tableID common.TableID,
	pool *bufferpool.Manager,
) *Insert {
	return &Insert{
		tid:     tid,
		child:   child,
		tableID: tableID,
		pool:    pool,
	}
}

func (op *Insert) Open() error {
	if err := op.child.Open(); err != nil {
		return err
	}
	op.open = true
	op.done = false
	return nil
}

func (op *Insert) Next() (optional.Optional[*tuple.Tuple], error) {
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

		if err := op.pool.InsertTuple(op.tid, op.tableID, next.Unwrap()); err != nil {
			return noTuple(), fmt.Errorf("insert operator: %w", err)
		}
		count++
	}

	result := tuple.New(countDesc)
	result.SetField(0, tuple.NewIntField(count))
	return optional.Some(result), nil
}

func (op *Insert) Rewind() error {
	if !op.open {
		return ErrNotOpen
	}
	if err := op.child.Rewind(); err != nil {
		return err
	}
	op.done = false
	return nil
}

func (op *Insert) Close() {
	op.open = false
	op.child.Close()
}

func (op *Insert) TupleDesc() *tuple.TupleDesc {
	return countDesc
}
