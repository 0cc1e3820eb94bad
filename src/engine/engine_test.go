package engine

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/catalog"
	"github.com/Blackdeer1524/HeapDB/src/cfg"
	"github.com/Blackdeer1524/HeapDB/src/storage/heapfile"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
	"github.com/Blackdeer1524/HeapDB/src/txns"
)

var intDesc = tuple.MustTupleDesc([]tuple.Type{tuple.IntType}, []string{"v"})

func intTuple(v int32) *tuple.Tuple {
	t := tuple.New(intDesc)
	t.SetField(0, tuple.NewIntField(v))
	return t
}

func newTestDatabase(t *testing.T) (*Database, *heapfile.HeapFile) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "t.dat")
	created, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, created.Close())

	file, err := heapfile.New(path, intDesc)
	require.NoError(t, err)

	cat := catalog.New()
	cat.AddTable(file, "t", "v")

	locker := txns.NewLockManager(200 * time.Millisecond)
	pool, err := bufferpool.New(bufferpool.DefaultPoolSize, cat, locker, zap.NewNop().Sugar())
	require.NoError(t, err)

	return New(cat, locker, pool, zap.NewNop().Sugar()), file
}

func scanValues(t *testing.T, db *Database, file *heapfile.HeapFile) []int32 {
	t.Helper()

	tx := db.Begin()
	it := file.Iterator(tx.ID(), db.Pool())
	require.NoError(t, it.Open())

	var values []int32
	for {
		next, err := it.Next()
		require.NoError(t, err)
		if next.IsNone() {
			break
		}
		values = append(values, next.Unwrap().Field(0).(tuple.IntField).Value)
	}
	it.Close()
	require.NoError(t, tx.Commit())
	return values
}

// tryScan is scanValues without the test assertions: contended scans may
// legitimately abort.
func tryScan(db *Database, file *heapfile.HeapFile) ([]int32, error) {
	tx := db.Begin()
	it := file.Iterator(tx.ID(), db.Pool())
	if err := it.Open(); err != nil {
		_ = tx.Abort()
		return nil, err
	}

	var values []int32
	for {
		next, err := it.Next()
		if err != nil {
			it.Close()
			_ = tx.Abort()
			return nil, err
		}
		if next.IsNone() {
			break
		}
		values = append(values, next.Unwrap().Field(0).(tuple.IntField).Value)
	}
	it.Close()
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return values, nil
}

func TestOpenLoadsSchema(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "schema.txt"),
		[]byte("users (id int pk, name string)\n"),
		0600,
	))

	config := cfg.Config{
		Environment:   cfg.EnvDev,
		DataDir:       dir,
		SchemaPath:    filepath.Join(dir, "schema.txt"),
		PoolSize:      10,
		LockTimeoutMS: 200,
	}

	db, err := Open(config, afero.NewOsFs(), zap.NewNop().Sugar())
	require.NoError(t, err)

	info, err := db.Catalog().TableByName("users")
	require.NoError(t, err)
	assert.Equal(t, "id", info.PrimaryKey)
}

func TestCommitMakesWritesVisible(t *testing.T) {
	db, file := newTestDatabase(t)

	tx := db.Begin()
	require.NoError(t, db.Pool().InsertTuple(tx.ID(), file.ID(), intTuple(1)))
	require.NoError(t, tx.Commit())

	assert.Equal(t, []int32{1}, scanValues(t, db, file))
}

func TestAbortHidesWrites(t *testing.T) {
	db, file := newTestDatabase(t)

	tx := db.Begin()
	require.NoError(t, db.Pool().InsertTuple(tx.ID(), file.ID(), intTuple(9)))
	require.NoError(t, tx.Abort())

	assert.Empty(t, scanValues(t, db, file))
}

func TestTxnIDsAreMonotonic(t *testing.T) {
	db, _ := newTestDatabase(t)

	a := db.Begin()
	b := db.Begin()
	assert.Less(t, a.ID(), b.ID())

	require.NoError(t, a.Abort())
	require.NoError(t, b.Abort())
}

// Property: with committed inserts I and deletes D and no concurrent
// writers, a scan yields exactly I \ D.
func TestInsertDeleteScanMultiset(t *testing.T) {
	db, file := newTestDatabase(t)

	rng := rand.New(rand.NewSource(1))

	inserted := map[int32]int{}
	for i := 0; i < 500; i++ {
		v := int32(rng.Intn(50))
		tx := db.Begin()
		require.NoError(t, db.Pool().InsertTuple(tx.ID(), file.ID(), intTuple(v)))
		require.NoError(t, tx.Commit())
		inserted[v]++
	}

	// delete every tuple with value < 10
	tx := db.Begin()
	it := file.Iterator(tx.ID(), db.Pool())
	require.NoError(t, it.Open())
	var victims []*tuple.Tuple
	for {
		next, err := it.Next()
		require.NoError(t, err)
		if next.IsNone() {
			break
		}
		if next.Unwrap().Field(0).(tuple.IntField).Value < 10 {
			victims = append(victims, next.Unwrap())
		}
	}
	it.Close()
	for _, v := range victims {
		require.NoError(t, db.Pool().DeleteTuple(tx.ID(), v))
	}
	require.NoError(t, tx.Commit())

	expected := map[int32]int{}
	for v, n := range inserted {
		if v >= 10 {
			expected[v] = n
		}
	}

	got := map[int32]int{}
	for _, v := range scanValues(t, db, file) {
		got[v]++
	}
	assert.Equal(t, expected, got)
}

// Many writers race on the same table; timed-out transactions abort and
// retry. Every value eventually commits exactly once.
func TestConcurrentWritersConverge(t *testing.T) {
	db, file := newTestDatabase(t)

	const (
		workers   = 8
		perWorker = 25
	)

	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		base := int32(w * perWorker)
		eg.Go(func() error {
			for i := int32(0); i < perWorker; i++ {
				v := base + i
				for {
					tx := db.Begin()
					err := db.Pool().InsertTuple(tx.ID(), file.ID(), intTuple(v))
					if err == nil {
						if err := tx.Commit(); err != nil {
							return err
						}
						break
					}
					if !errors.Is(err, txns.ErrTransactionAborted) {
						_ = tx.Abort()
						return err
					}
					if err := tx.Abort(); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	values := scanValues(t, db, file)
	require.Len(t, values, workers*perWorker)

	seen := map[int32]bool{}
	for _, v := range values {
		assert.False(t, seen[v], "value %d committed twice", v)
		seen[v] = true
	}
}

// Readers and an aborting writer interleave: aborted writes never become
// visible to any committed reader.
func TestAbortedWritesNeverVisible(t *testing.T) {
	db, file := newTestDatabase(t)

	setup := db.Begin()
	require.NoError(t, db.Pool().InsertTuple(setup.ID(), file.ID(), intTuple(1)))
	require.NoError(t, setup.Commit())

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}

			tx := db.Begin()
			if err := db.Pool().InsertTuple(tx.ID(), file.ID(), intTuple(666)); err != nil {
				_ = tx.Abort()
				continue
			}
			_ = tx.Abort()
		}
	}()

	// lock contention may abort a scan; only successful scans count
	for successful := 0; successful < 20; {
		values, err := tryScan(db, file)
		if err != nil {
			require.ErrorIs(t, err, txns.ErrTransactionAborted)
			continue
		}
		for _, v := range values {
			require.NotEqual(t, int32(666), v, "aborted write leaked into a scan")
		}
		successful++
	}

	close(stop)
	wg.Wait()
}
