package txns

import (
	"errors"
	"sync"
	"time"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
)

// ErrTransactionAborted signals that a lock wait timed out. The transaction
// boundary must respond with transactionComplete(commit=false).
var ErrTransactionAborted = errors.New("transaction aborted: lock wait timed out")

const DefaultLockTimeout = 300 * time.Millisecond

type lockMode uint8

const (
	modeFree lockMode = iota
	modeShared
	modeExclusive
)

// pageLock is the lock slot of a single page. All transitions happen under
// mu; waiters park on cond and are woken by a broadcast on every release.
type pageLock struct {
	mu   sync.Mutex
	cond *sync.Cond

	mode    lockMode
	holders map[common.TxnID]struct{}
}

func newPageLock() *pageLock {
	pl := &pageLock{
		holders: make(map[common.TxnID]struct{}),
	}
	pl.cond = sync.NewCond(&pl.mu)
	return pl
}

// tryGrantShared reports whether tid may hold a shared lock right now and
// applies the transition if so.
func (pl *pageLock) tryGrantShared(tid common.TxnID) bool {
	switch pl.mode {
	case modeFree:
		pl.mode = modeShared
		pl.holders[tid] = struct{}{}
		return true
	case modeShared:
		pl.holders[tid] = struct{}{}
		return true
	case modeExclusive:
		// re-entrant read under the transaction's own exclusive lock
		_, held := pl.holders[tid]
		return held
	}
	assert.Assert(false, "unreachable lock mode %d", pl.mode)
	return false
}

func (pl *pageLock) tryGrantExclusive(tid common.TxnID) bool {
	switch pl.mode {
	case modeFree:
		pl.mode = modeExclusive
		pl.holders[tid] = struct{}{}
		return true
	case modeExclusive:
		_, held := pl.holders[tid]
		return held
	case modeShared:
		// upgrade is legal only for a sole shared holder
		if len(pl.holders) == 1 {
			if _, held := pl.holders[tid]; held {
				pl.mode = modeExclusive
				return true
			}
		}
		return false
	}
	assert.Assert(false, "unreachable lock mode %d", pl.mode)
	return false
}

// acquire parks the caller until tryGrant succeeds or the deadline passes.
// The timer broadcasts on expiry so a timed-out waiter re-checks and leaves.
func (pl *pageLock) acquire(
	tid common.TxnID,
	tryGrant func(common.TxnID) bool,
	timeout time.Duration,
) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if tryGrant(tid) {
		return true
	}

	deadline := time.Now().Add(timeout)
	// The timer takes mu before broadcasting: it cannot fire in the gap
	// between arming and the waiter parking on cond.
	timer := time.AfterFunc(timeout, func() {
		pl.mu.Lock()
		defer pl.mu.Unlock()
		pl.cond.Broadcast()
	})
	defer timer.Stop()

	for {
		pl.cond.Wait()
		if tryGrant(tid) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
	}
}

// release removes tid from the holder set. Reports false if tid held
// nothing.
func (pl *pageLock) release(tid common.TxnID) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if _, held := pl.holders[tid]; !held {
		return false
	}

	delete(pl.holders, tid)
	if len(pl.holders) == 0 {
		pl.mode = modeFree
	}
	pl.cond.Broadcast()
	return true
}

func (pl *pageLock) isWriteLocked() bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.mode == modeExclusive
}

// LockManager implements strict two-phase page-level locking with shared and
// exclusive modes, lock upgrade for a sole shared holder, and bounded waits.
//
// There is no waits-for graph: deadlocks resolve by timeout. Timeouts jitter
// per transaction so two symmetric waiters do not abort simultaneously.
type LockManager struct {
	timeout time.Duration

	tableGuard sync.Mutex
	locks      map[common.PageIdentity]*pageLock

	txnPagesGuard sync.Mutex
	txnPages      map[common.TxnID]map[common.PageIdentity]struct{}
}

func NewLockManager(timeout time.Duration) *LockManager {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &LockManager{
		timeout:  timeout,
		locks:    map[common.PageIdentity]*pageLock{},
		txnPages: map[common.TxnID]map[common.PageIdentity]struct{}{},
	}
}

func (m *LockManager) pageLockFor(pid common.PageIdentity) *pageLock {
	m.tableGuard.Lock()
	defer m.tableGuard.Unlock()

	pl, ok := m.locks[pid]
	if !ok {
		pl = newPageLock()
		m.locks[pid] = pl
	}
	return pl
}

// splitmix64, used to derive a stable per-transaction jitter factor.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// jitteredTimeout scales the base timeout into [0.6, 1.4) of its value,
// deterministically per transaction.
func (m *LockManager) jitteredTimeout(tid common.TxnID) time.Duration {
	frac := float64(splitmix64(uint64(tid))%1000) / 1000.0
	return time.Duration(float64(m.timeout) * (0.6 + 0.8*frac))
}

// Acquire takes a shared (PermReadOnly) or exclusive (PermReadWrite) lock on
// pid for tid. Returns false when the wait timed out; the caller must treat
// that as a transaction abort.
func (m *LockManager) Acquire(
	tid common.TxnID,
	pid common.PageIdentity,
	perm common.Permissions,
) bool {
	pl := m.pageLockFor(pid)

	var tryGrant func(common.TxnID) bool
	if perm == common.PermReadWrite {
		tryGrant = pl.tryGrantExclusive
	} else {
		tryGrant = pl.tryGrantShared
	}

	if !pl.acquire(tid, tryGrant, m.jitteredTimeout(tid)) {
		return false
	}

	m.txnPagesGuard.Lock()
	defer m.txnPagesGuard.Unlock()

	pages, ok := m.txnPages[tid]
	if !ok {
		pages = make(map[common.PageIdentity]struct{})
		m.txnPages[tid] = pages
	}
	pages[pid] = struct{}{}

	return true
}

// Release drops tid's lock on pid. The transaction must actually hold it.
func (m *LockManager) Release(tid common.TxnID, pid common.PageIdentity) {
	pl := m.pageLockFor(pid)
	released := pl.release(tid)
	assert.Assert(released, "transaction %d does not hold a lock on %s", tid, pid)

	m.txnPagesGuard.Lock()
	defer m.txnPagesGuard.Unlock()

	if pages, ok := m.txnPages[tid]; ok {
		delete(pages, pid)
		if len(pages) == 0 {
			delete(m.txnPages, tid)
		}
	}
}

func (m *LockManager) HoldsLock(tid common.TxnID, pid common.PageIdentity) bool {
	m.txnPagesGuard.Lock()
	defer m.txnPagesGuard.Unlock()

	pages, ok := m.txnPages[tid]
	if !ok {
		return false
	}
	_, held := pages[pid]
	return held
}

func (m *LockManager) IsWriteLocked(pid common.PageIdentity) bool {
	m.tableGuard.Lock()
	pl, ok := m.locks[pid]
	m.tableGuard.Unlock()

	if !ok {
		return false
	}
	return pl.isWriteLocked()
}

// UnlockAll releases every lock tid still holds. It never panics: the unlock
// path of a transaction must run to completion even if individual entries
// are stale.
func (m *LockManager) UnlockAll(tid common.TxnID) {
	m.txnPagesGuard.Lock()
	pages := m.txnPages[tid]
	delete(m.txnPages, tid)
	m.txnPagesGuard.Unlock()

	for pid := range pages {
		m.tableGuard.Lock()
		pl, ok := m.locks[pid]
		m.tableGuard.Unlock()
		if !ok {
			continue
		}
		_ = pl.release(tid)
	}
}
