package execution

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/catalog"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/heapfile"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
	"github.com/Blackdeer1524/HeapDB/src/txns"
)

func newTestTable(t *testing.T) (*heapfile.HeapFile, *catalog.Catalog, *bufferpool.Manager) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ints.dat")
	created, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, created.Close())

	file, err := heapfile.New(path, kvDesc)
	require.NoError(t, err)

	cat := catalog.New()
	cat.AddTable(file, "ints", "k")

	locker := txns.NewLockManager(200 * time.Millisecond)
	pool, err := bufferpool.New(bufferpool.DefaultPoolSize, cat, locker, zap.NewNop().Sugar())
	require.NoError(t, err)

	return file, cat, pool
}

func TestInsertOperatorReportsCount(t *testing.T) {
	file, _, pool := newTestTable(t)

	tid := common.NextTxnID()
	source := newSliceIterator(kvDesc, []*tuple.Tuple{
		kvTuple(1, 10),
		kvTuple(2, 20),
		kvTuple(3, 30),
	})

	ins := NewInsert(tid, source, file.ID(), pool)
	require.NoError(t, ins.Open())
	defer ins.Close()

	got := drain(t, ins)
	require.Len(t, got, 1)
	assert.Equal(t, tuple.NewIntField(3), got[0].Field(0))

	// exactly once: the second pull yields nothing
	again, err := ins.Next()
	require.NoError(t, err)
	assert.True(t, again.IsNone())

	require.NoError(t, pool.TransactionComplete(tid, true))
}

func TestSeqScanAliasesFieldNames(t *testing.T) {
	file, cat, pool := newTestTable(t)

	tid := common.NextTxnID()
	scan, err := NewSeqScan(tid, file.ID(), "t", pool, cat)
	require.NoError(t, err)

	assert.Equal(t, "t.k", scan.TupleDesc().NameAt(0))
	assert.Equal(t, "t.v", scan.TupleDesc().NameAt(1))
}

func TestInsertScanDeletePipeline(t *testing.T) {
	file, cat, pool := newTestTable(t)

	// insert
	writer := common.NextTxnID()
	ins := NewInsert(writer, newSliceIterator(kvDesc, []*tuple.Tuple{
		kvTuple(1, 10),
		kvTuple(2, 20),
		kvTuple(3, 30),
	}), file.ID(), pool)
	require.NoError(t, ins.Open())
	drain(t, ins)
	ins.Close()
	require.NoError(t, pool.TransactionComplete(writer, true))

	// scan them back
	reader := common.NextTxnID()
	scan, err := NewSeqScan(reader, file.ID(), "t", pool, cat)
	require.NoError(t, err)
	require.NoError(t, scan.Open())
	got := drain(t, scan)
	scan.Close()
	require.NoError(t, pool.TransactionComplete(reader, true))
	assert.ElementsMatch(t, []int32{1, 2, 3}, intsAt(got, 0))

	// delete the k=2 row through a filter under the scan
	deleter := common.NextTxnID()
	delScan, err := NewSeqScan(deleter, file.ID(), "t", pool, cat)
	require.NoError(t, err)
	del := NewDelete(
		deleter,
		NewFilter(NewPredicate(0, tuple.OpEquals, tuple.NewIntField(2)), delScan),
		pool,
	)
	require.NoError(t, del.Open())
	counts := drain(t, del)
	del.Close()
	require.NoError(t, pool.TransactionComplete(deleter, true))

	require.Len(t, counts, 1)
	assert.Equal(t, tuple.NewIntField(1), counts[0].Field(0))

	// verify the survivors
	verifier := common.NextTxnID()
	scan2, err := NewSeqScan(verifier, file.ID(), "t", pool, cat)
	require.NoError(t, err)
	require.NoError(t, scan2.Open())
	rest := drain(t, scan2)
	scan2.Close()
	require.NoError(t, pool.TransactionComplete(verifier, true))

	assert.ElementsMatch(t, []int32{1, 3}, intsAt(rest, 0))
}

func TestAggregateOverSeqScan(t *testing.T) {
	file, cat, pool := newTestTable(t)

	writer := common.NextTxnID()
	ins := NewInsert(writer, newSliceIterator(kvDesc, []*tuple.Tuple{
		kvTuple(1, 10),
		kvTuple(1, 20),
		kvTuple(2, 30),
	}), file.ID(), pool)
	require.NoError(t, ins.Open())
	drain(t, ins)
	ins.Close()
	require.NoError(t, pool.TransactionComplete(writer, true))

	reader := common.NextTxnID()
	scan, err := NewSeqScan(reader, file.ID(), "s", pool, cat)
	require.NoError(t, err)

	agg, err := NewAggregate(scan, 1, 0, AggSum)
	require.NoError(t, err)
	require.NoError(t, agg.Open())
	got := drain(t, agg)
	agg.Close()
	require.NoError(t, pool.TransactionComplete(reader, true))

	sums := map[int32]int32{}
	for _, r := range got {
		sums[r.Field(0).(tuple.IntField).Value] = r.Field(1).(tuple.IntField).Value
	}
	assert.Equal(t, map[int32]int32{1: 30, 2: 30}, sums)
}
