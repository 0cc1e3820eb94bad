package execution

import (
	"errors"

	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

var (
	ErrNotOpen      = errors.New("operator is not open")
	ErrBadFieldIdx  = errors.New("field index out of range for the schema")
	ErrIllegalState = errors.New("illegal operator state")
)

// OpIterator is the pull contract every operator implements. Next returns
// None once the stream is exhausted; Rewind resets to the start; Close
// releases child resources.
type OpIterator interface {
	Open() error
	Next() (optional.Optional[*tuple.Tuple], error)
	Rewind() error
	Close()
	TupleDesc() *tuple.TupleDesc
}

func noTuple() optional.Optional[*tuple.Tuple] {
	return optional.None[*tuple.Tuple]()
}
