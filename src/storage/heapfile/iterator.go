package heapfile

import (
	"errors"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

var ErrIteratorClosed = errors.New("iterator was closed")

// Iterator pulls tuples page by page in ascending page order. Every page is
// acquired through the pool with read-only permission, so the scan
// participates in the transaction's lock set.
type Iterator struct {
	file *HeapFile
	tid  common.TxnID
	pool Pool

	open    bool
	pageNum common.PageNum
	current []*tuple.Tuple
	pos     int
}

func (f *HeapFile) Iterator(tid common.TxnID, pool Pool) *Iterator {
	return &Iterator{
		file: f,
		tid:  tid,
		pool: pool,
	}
}

func (it *Iterator) Open() error {
	it.open = true
	it.pageNum = 0
	it.current = nil
	it.pos = 0
	return nil
}

func (it *Iterator) Rewind() error {
	if !it.open {
		return ErrIteratorClosed
	}
	return it.Open()
}

func (it *Iterator) Close() {
	it.open = false
	it.current = nil
}

// Next returns the next tuple, or None once the file is exhausted.
func (it *Iterator) Next() (optional.Optional[*tuple.Tuple], error) {
	none := optional.None[*tuple.Tuple]()
	if !it.open {
		return none, ErrIteratorClosed
	}

	for {
		if it.current != nil && it.pos < len(it.current) {
			t := it.current[it.pos]
			it.pos++
			return optional.Some(t), nil
		}

		numPages, err := it.file.NumPages()
		if err != nil {
			return none, err
		}
		if it.pageNum >= numPages {
			return none, nil
		}

		pid := common.PageIdentity{TableID: it.file.ID(), PageNum: it.pageNum}
		p, err := it.pool.GetPage(it.tid, pid, common.PermReadOnly)
		if err != nil {
			return none, err
		}

		it.current = p.Tuples()
		it.pos = 0
		it.pageNum++
	}
}
