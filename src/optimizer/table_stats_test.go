package optimizer

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

var mixedDesc = tuple.MustTupleDesc(
	[]tuple.Type{tuple.IntType, tuple.StringType},
	[]string{"n", "label"},
)

func newStatsFixture(t *testing.T) (*heapfile.HeapFile, *catalog.Catalog, *bufferpool.Manager) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stats.dat")
	created, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, created.Close())

	file, err := heapfile.New(path, mixedDesc)
	require.NoError(t, err)

	cat := catalog.New()
	cat.AddTable(file, "stats", "n")

	locker := txns.NewLockManager(200 * time.Millisecond)
	pool, err := bufferpool.New(bufferpool.DefaultPoolSize, cat, locker, zap.NewNop().Sugar())
	require.NoError(t, err)

	return file, cat, pool
}

func TestTableStatsOverTable(t *testing.T) {
	file, cat, pool := newStatsFixture(t)

	writer := common.NextTxnID()
	for v := int32(1); v <= 100; v++ {
		row := tuple.New(mixedDesc)
		row.SetField(0, tuple.NewIntField(v))
		row.SetField(1, tuple.NewStringField("row"))
		_, err := file.InsertTuple(writer, row, pool)
		require.NoError(t, err)
	}
	require.NoError(t, pool.TransactionComplete(writer, true))

	reader := common.NextTxnID()
	stats, err := NewTableStats(reader, file.ID(), pool, cat)
	require.NoError(t, err)
	require.NoError(t, pool.TransactionComplete(reader, true))

	assert.Equal(t, int64(100), stats.NumTuples())

	sel, err := stats.EstimateSelectivity(0, tuple.OpGreaterThan, 90)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, sel, 0.05)

	// string columns have no histogram: selectivity falls back to 1
	sel, err = stats.EstimateSelectivity(1, tuple.OpEquals, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sel)
}

func TestTableStatsEmptyTable(t *testing.T) {
	file, cat, pool := newStatsFixture(t)

	reader := common.NextTxnID()
	stats, err := NewTableStats(reader, file.ID(), pool, cat)
	require.NoError(t, err)
	require.NoError(t, pool.TransactionComplete(reader, true))

	assert.Zero(t, stats.NumTuples())

	sel, err := stats.EstimateSelectivity(0, tuple.OpEquals, 5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sel)
}
