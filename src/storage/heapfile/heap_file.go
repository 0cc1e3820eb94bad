package heapfile

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

var ErrShortRead = errors.New("page read past end of file")

// Pool is the page access path a HeapFile uses for tuple-level operations.
// All reads and writes of page contents go through it so that locking and
// transaction semantics hold; only raw page I/O stays on the file itself.
type Pool interface {
	GetPage(
		tid common.TxnID,
		pid common.PageIdentity,
		perm common.Permissions,
	) (*page.HeapPage, error)
	ReleasePage(tid common.TxnID, pid common.PageIdentity)
	HoldsLock(tid common.TxnID, pid common.PageIdentity) bool
}

// HeapFile is a persistent array of pages backed by a single file. Pages are
// numbered 0..NumPages()-1 and addressed by byte offset pageNum * PageSize.
type HeapFile struct {
	path string
	desc *tuple.TupleDesc
	id   common.TableID

	// serializes writes and page allocation; reads use independent handles
	mu sync.Mutex
}

// New opens (without creating) a heap file description over path. The table
// id is an FNV-1a hash of the absolute path, so it is stable across
// restarts.
func New(path string, desc *tuple.TupleDesc) (*HeapFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving heap file path: %w", err)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(abs))

	return &HeapFile{
		path: abs,
		desc: desc,
		id:   common.TableID(int32(h.Sum32())),
	}, nil
}

func (f *HeapFile) ID() common.TableID {
	return f.id
}

func (f *HeapFile) Path() string {
	return f.path
}

func (f *HeapFile) Desc() *tuple.TupleDesc {
	return f.desc
}

// NumPages is the file length divided by the page size. Trailing partial
// bytes are ignored.
func (f *HeapFile) NumPages() (common.PageNum, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", f.path, err)
	}
	return common.PageNum(info.Size() / int64(page.PageSize())), nil
}

// ReadPage fetches one page image from disk. Never call this directly from
// an operator: go through the buffer pool.
func (f *HeapFile) ReadPage(pid common.PageIdentity) (*page.HeapPage, error) {
	if pid.TableID != f.id {
		return nil, fmt.Errorf(
			"page %s does not belong to table %d",
			pid,
			f.id,
		)
	}

	file, err := os.Open(filepath.Clean(f.path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer file.Close()

	offset := int64(pid.PageNum) * int64(page.PageSize())
	data := make([]byte, page.PageSize())

	n, err := file.ReadAt(data, offset)
	if err != nil && n != page.PageSize() {
		return nil, fmt.Errorf("%w: page %s, read %d bytes: %v", ErrShortRead, pid, n, err)
	}

	return page.NewFromBytes(pid, data, f.desc)
}

// WritePage stores the page image at its offset.
func (f *HeapFile) WritePage(p *page.HeapPage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.writePageLocked(p)
}

func (f *HeapFile) writePageLocked(p *page.HeapPage) error {
	file, err := os.OpenFile(filepath.Clean(f.path), os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("open %s for write: %w", f.path, err)
	}
	defer file.Close()

	offset := int64(p.ID().PageNum) * int64(page.PageSize())
	if _, err := file.WriteAt(p.PageData(), offset); err != nil {
		return fmt.Errorf("write page %s: %w", p.ID(), err)
	}
	return nil
}

// InsertTuple places t on the first page with an unused slot, appending a
// fresh page when every existing one is full. Returns the pages it dirtied.
//
// Candidate pages are probed under a shared lock first; a full page whose
// lock the transaction did not already hold is released right away so an
// appending scan does not accumulate shared locks across the whole file.
func (f *HeapFile) InsertTuple(
	tid common.TxnID,
	t *tuple.Tuple,
	pool Pool,
) ([]*page.HeapPage, error) {
	numPages, err := f.NumPages()
	if err != nil {
		return nil, err
	}

	for i := common.PageNum(0); i < numPages; i++ {
		pid := common.PageIdentity{TableID: f.id, PageNum: i}
		alreadyLocked := pool.HoldsLock(tid, pid)

		p, err := pool.GetPage(tid, pid, common.PermReadOnly)
		if err != nil {
			return nil, err
		}

		if p.NumUnusedSlots() == 0 {
			if !alreadyLocked {
				pool.ReleasePage(tid, pid)
			}
			continue
		}

		p, err = pool.GetPage(tid, pid, common.PermReadWrite)
		if err != nil {
			return nil, err
		}
		if err := p.InsertTuple(t); err != nil {
			if errors.Is(err, page.ErrPageFull) {
				// lost the slot between the probe and the upgrade
				continue
			}
			return nil, err
		}
		return []*page.HeapPage{p}, nil
	}

	pid, err := f.appendEmptyPage()
	if err != nil {
		return nil, err
	}

	p, err := pool.GetPage(tid, pid, common.PermReadWrite)
	if err != nil {
		return nil, err
	}
	if err := p.InsertTuple(t); err != nil {
		return nil, err
	}
	return []*page.HeapPage{p}, nil
}

// appendEmptyPage extends the file by one zeroed page and returns its
// identity. Serialized so two appending transactions cannot claim the same
// page number.
func (f *HeapFile) appendEmptyPage() (common.PageIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	numPages, err := f.NumPages()
	if err != nil {
		return common.PageIdentity{}, err
	}

	pid := common.PageIdentity{TableID: f.id, PageNum: numPages}
	empty := page.NewEmpty(pid, f.desc)
	if err := f.writePageLocked(empty); err != nil {
		return common.PageIdentity{}, err
	}
	return pid, nil
}

// DeleteTuple removes t from the page its record id references. Returns the
// dirtied page.
func (f *HeapFile) DeleteTuple(
	tid common.TxnID,
	t *tuple.Tuple,
	pool Pool,
) (*page.HeapPage, error) {
	ridOpt := t.RecordID()
	if ridOpt.IsNone() {
		return nil, fmt.Errorf("%w: tuple has no record id", page.ErrNotOnThisPage)
	}

	p, err := pool.GetPage(tid, ridOpt.Unwrap().PageIdentity(), common.PermReadWrite)
	if err != nil {
		return nil, err
	}
	if err := p.DeleteTuple(t); err != nil {
		return nil, err
	}
	return p, nil
}
