package execution

import (
	"fmt"

	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/catalog"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/storage/heapfile"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

// SeqScan streams every tuple of a table in page order. Output field names
// are prefixed with the table alias ("alias.field").
type SeqScan struct {
	tid     common.TxnID
	tableID common.TableID
	alias   string

	pool *bufferpool.Manager
	cat  *catalog.Catalog

	desc *tuple.TupleDesc
	it   *heapfile.Iterator
}

func NewSeqScan(
	tid common.TxnID,
	tableID common.TableID,
	alias string,
	pool *bufferpool.Manager,
	cat *catalog.Catalog,
) (*SeqScan, error) {
	file, err := cat.DBFile(tableID)
	if err != nil {
		return nil, err
	}

	base := file.Desc()
	prefixed := make([]string, base.NumFields())
	for i := range prefixed {
		prefixed[i] = fmt.Sprintf("%s.%s", alias, base.NameAt(i))
	}

	return &SeqScan{
		tid:     tid,
		tableID: tableID,
		alias:   alias,
		pool:    pool,
		cat:     cat,
		desc:    base.WithNames(prefixed),
	}, nil
}

func (s *SeqScan) Open() error {
	file, err := s.cat.DBFile(s.tableID)
	if err != nil {
		return err
	}
	s.it = file.Iterator(s.tid, s.pool)
	return s.it.Open()
}

func (s *SeqScan) Next() (optional.Optional[*tuple.Tuple], error) {
	if s.it == nil {
		return noTuple(), ErrNotOpen
	}
	return s.it.Next()
}

func (s *SeqScan) Rewind() error {
	if s.it == nil {
		return ErrNotOpen
	}
	return s.it.Rewind()
}

func (s *SeqScan) Close() {
	if s.it != nil {
		s.it.Close()
		s.it = nil
	}
}

func (s *SeqScan) TupleDesc() *tuple.TupleDesc {
	return s.desc
}
