package bufferpool

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	"github.com/Blackdeer1524/HeapDB/src"
	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/heapfile"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
	"github.com/Blackdeer1524/HeapDB/src/txns"
)

// DefaultPoolSize is the default page capacity.
const DefaultPoolSize = 50

var (
	ErrNoCleanPageToEvict = errors.New(
		"no clean page to evict: every cached page is dirty or write-locked",
	)
	ErrPageNotCached = errors.New("page is not in the buffer pool")
)

// Tables resolves a table id to its heap file. Implemented by the catalog.
type Tables interface {
	DBFile(id common.TableID) (*heapfile.HeapFile, error)
}

// Locker is the lock manager surface the pool depends on.
type Locker interface {
	Acquire(tid common.TxnID, pid common.PageIdentity, perm common.Permissions) bool
	Release(tid common.TxnID, pid common.PageIdentity)
	HoldsLock(tid common.TxnID, pid common.PageIdentity) bool
	IsWriteLocked(pid common.PageIdentity) bool
	UnlockAll(tid common.TxnID)
}

// Manager is the single in-memory cache of pages and the only path from
// operators to heap files. Every page handed out is locked through the lock
// manager first; locks are always taken before the cache mutex so the two
// locking layers cannot invert.
//
// Eviction is NO-STEAL: a dirty page never leaves memory before the
// transaction that wrote it commits.
type Manager struct {
	capacity int
	tables   Tables
	locker   Locker
	log      src.Logger
	metrics  *poolMetrics

	mu    sync.RWMutex
	pages map[common.PageIdentity]*page.HeapPage
	order *list.List // insertion order of PageIdentity values, front = oldest
	elems map[common.PageIdentity]*list.Element
}

var _ heapfile.Pool = &Manager{}

func New(capacity int, tables Tables, locker Locker, log src.Logger) (*Manager, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("pool capacity must be positive, got %d", capacity)
	}

	return &Manager{
		capacity: capacity,
		tables:   tables,
		locker:   locker,
		log:      log,
		metrics:  newPoolMetrics(),
		pages:    make(map[common.PageIdentity]*page.HeapPage),
		order:    list.New(),
		elems:    make(map[common.PageIdentity]*list.Element),
	}, nil
}

// GetPage returns the requested page under the appropriate lock: shared for
// PermReadOnly, exclusive for PermReadWrite. A lock-wait timeout surfaces as
// ErrTransactionAborted.
func (m *Manager) GetPage(
	tid common.TxnID,
	pid common.PageIdentity,
	perm common.Permissions,
) (*page.HeapPage, error) {
	if !m.locker.Acquire(tid, pid, perm) {
		return nil, fmt.Errorf("%w: %s on %s", txns.ErrTransactionAborted, perm, pid)
	}

	m.mu.RLock()
	if p, ok := m.pages[pid]; ok {
		m.mu.RUnlock()
		m.metrics.hit()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pages[pid]; ok {
		m.metrics.hit()
		return p, nil
	}

	if len(m.pages) >= m.capacity {
		if err := m.evictLocked(tid); err != nil {
			return nil, err
		}
	}

	file, err := m.tables.DBFile(pid.TableID)
	if err != nil {
		return nil, err
	}

	p, err := file.ReadPage(pid)
	if err != nil {
		return nil, err
	}

	m.addLocked(p)
	m.metrics.miss()

	return p, nil
}

// ReleasePage drops tid's lock on pid early. Used by the heap file's
// insert scan to avoid piling up shared locks on full pages.
func (m *Manager) ReleasePage(tid common.TxnID, pid common.PageIdentity) {
	m.locker.Release(tid, pid)
}

func (m *Manager) HoldsLock(tid common.TxnID, pid common.PageIdentity) bool {
	return m.locker.HoldsLock(tid, pid)
}

// InsertTuple adds t to the table on behalf of tid, marking every touched
// page dirty and making sure each one is cached.
func (m *Manager) InsertTuple(
	tid common.TxnID,
	tableID common.TableID,
	t *tuple.Tuple,
) error {
	file, err := m.tables.DBFile(tableID)
	if err != nil {
		return err
	}

	dirty, err := file.InsertTuple(tid, t, m)
	if err != nil {
		return fmt.Errorf("inserting tuple into table %d: %w", tableID, err)
	}

	return m.adoptDirty(tid, dirty)
}

// DeleteTuple removes t (addressed by its record id) on behalf of tid.
func (m *Manager) DeleteTuple(tid common.TxnID, t *tuple.Tuple) error {
	ridOpt := t.RecordID()
	if ridOpt.IsNone() {
		return fmt.Errorf("deleting a tuple that is not on any page")
	}

	tableID := ridOpt.Unwrap().TableID
	file, err := m.tables.DBFile(tableID)
	if err != nil {
		return err
	}

	p, err := file.DeleteTuple(tid, t, m)
	if err != nil {
		return fmt.Errorf("deleting tuple from table %d: %w", tableID, err)
	}

	return m.adoptDirty(tid, []*page.HeapPage{p})
}

// adoptDirty stamps the dirtier on every touched page and makes sure each
// one is cached. A page can only be missing if it was evicted between the
// mutation and this call, while still clean.
func (m *Manager) adoptDirty(tid common.TxnID, dirty []*page.HeapPage) error {
	for _, p := range dirty {
		p.MarkDirty(true, tid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range dirty {
		if _, cached := m.pages[p.ID()]; cached {
			continue
		}
		if len(m.pages) >= m.capacity {
			if err := m.evictLocked(tid); err != nil {
				return err
			}
		}
		m.addLocked(p)
	}
	return nil
}

// TransactionComplete ends tid. On commit every page it dirtied is flushed
// before any of its remaining locks are released; on abort its dirty pages
// are dropped from the cache so the next reader refetches the pre-transaction
// image from disk. Always runs to completion; flush errors are logged,
// collected and returned after the locks are gone.
func (m *Manager) TransactionComplete(tid common.TxnID, commit bool) error {
	// free readers early: locks on cached pages the transaction only read.
	// Locks on pages no longer cached are left to UnlockAll below.
	m.mu.RLock()
	sharedOnly := make([]common.PageIdentity, 0)
	for pid := range m.pages {
		if m.locker.HoldsLock(tid, pid) && !m.locker.IsWriteLocked(pid) {
			sharedOnly = append(sharedOnly, pid)
		}
	}
	m.mu.RUnlock()

	for _, pid := range sharedOnly {
		m.locker.Release(tid, pid)
	}

	var firstErr error
	if commit {
		firstErr = m.flushTxnPages(tid)
	} else {
		m.discardTxnPages(tid)
	}

	m.locker.UnlockAll(tid)
	return firstErr
}

func (m *Manager) flushTxnPages(tid common.TxnID) error {
	m.mu.RLock()
	toFlush := make([]common.PageIdentity, 0)
	for pid, p := range m.pages {
		if d := p.Dirtier(); d.IsSome() && d.Unwrap() == tid {
			toFlush = append(toFlush, pid)
		}
	}
	m.mu.RUnlock()

	var firstErr error
	for _, pid := range toFlush {
		if err := m.FlushPage(pid); err != nil {
			m.log.Errorf("flushing page %s on commit of txn %d: %v", pid, tid, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *Manager) discardTxnPages(tid common.TxnID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for pid, p := range m.pages {
		if d := p.Dirtier(); d.IsSome() && d.Unwrap() == tid {
			m.removeLocked(pid)
		}
	}
}

// FlushPage writes the page through its heap file and clears the dirty
// marker. A clean page is a no-op.
func (m *Manager) FlushPage(pid common.PageIdentity) error {
	m.mu.RLock()
	p, ok := m.pages[pid]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrPageNotCached, pid)
	}
	if p.Dirtier().IsNone() {
		return nil
	}

	file, err := m.tables.DBFile(pid.TableID)
	if err != nil {
		return err
	}
	if err := file.WritePage(p); err != nil {
		return fmt.Errorf("failed to write page to disk: %w", err)
	}

	p.MarkDirty(false, 0)
	return nil
}

// FlushAllPages writes every dirty page out. Breaks NO-STEAL for pages of
// live transactions; maintenance use only.
func (m *Manager) FlushAllPages() error {
	m.mu.RLock()
	pids := make([]common.PageIdentity, 0, len(m.pages))
	for pid := range m.pages {
		pids = append(pids, pid)
	}
	m.mu.RUnlock()

	var firstErr error
	for _, pid := range pids {
		if err := m.FlushPage(pid); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RemovePage drops pid from the cache without flushing.
func (m *Manager) RemovePage(pid common.PageIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(pid)
}

// NumCachedPages reports the current cache size.
func (m *Manager) NumCachedPages() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}

// CachedPage returns the cached page if present. No locks are taken.
func (m *Manager) CachedPage(pid common.PageIdentity) (*page.HeapPage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[pid]
	return p, ok
}

func (m *Manager) addLocked(p *page.HeapPage) {
	pid := p.ID()
	_, present := m.pages[pid]
	assert.Assert(!present, "page %s is already cached", pid)

	m.pages[pid] = p
	m.elems[pid] = m.order.PushBack(pid)
}

func (m *Manager) removeLocked(pid common.PageIdentity) {
	if elem, ok := m.elems[pid]; ok {
		m.order.Remove(elem)
		delete(m.elems, pid)
	}
	delete(m.pages, pid)
}

// evictLocked removes the oldest cached page that is clean and either not
// write-locked at all or write-locked by the requesting transaction itself.
// Caller holds m.mu for writing.
func (m *Manager) evictLocked(tid common.TxnID) error {
	for elem := m.order.Front(); elem != nil; elem = elem.Next() {
		pid := elem.Value.(common.PageIdentity)
		p := m.pages[pid]
		assert.Assert(p != nil, "eviction order references an uncached page %s", pid)

		if p.Dirtier().IsSome() {
			continue
		}
		if m.locker.IsWriteLocked(pid) && !m.locker.HoldsLock(tid, pid) {
			continue
		}

		m.removeLocked(pid)
		m.metrics.eviction()
		return nil
	}

	return ErrNoCleanPageToEvict
}
