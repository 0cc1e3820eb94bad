package page

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

const DefaultPageSize = 4096

var pageSize = DefaultPageSize

func PageSize() int {
	return pageSize
}

// SetPageSize overrides the page size. Tests only.
func SetPageSize(size int) {
	assert.Assert(size > 0, "page size must be positive")
	pageSize = size
}

func ResetPageSize() {
	pageSize = DefaultPageSize
}

var (
	ErrCorruptPage    = errors.New("page image has wrong size")
	ErrPageFull       = errors.New("no unused slot on page")
	ErrSchemaMismatch = errors.New("tuple schema does not match page schema")
	ErrSlotEmpty      = errors.New("slot is already empty")
	ErrNotOnThisPage  = errors.New("record id references a different page")
)

// TuplesPerPage is the slot capacity for the given schema: each tuple costs
// its serialized width plus one header bit.
func TuplesPerPage(desc *tuple.TupleDesc) int {
	return (PageSize() * 8) / (desc.Size()*8 + 1)
}

// HeaderSize is the byte length of the occupancy bitmap for the given schema.
func HeaderSize(desc *tuple.TupleDesc) int {
	return (TuplesPerPage(desc) + 7) / 8
}

// HeapPage is the in-memory image of one fixed-size page of a heap file.
//
// On disk the page is a bitmap header followed by the slot area. Bit i of
// header byte i/8 (LSB first) is set iff slot i holds a live tuple. Unused
// slots and the tail of the page are zero-filled.
//
// The dirty marker and the before image are transient: they never reach disk.
// The before image is the byte snapshot taken when the page transitions from
// clean to dirty.
type HeapPage struct {
	id   common.PageIdentity
	desc *tuple.TupleDesc

	header []byte
	tuples []*tuple.Tuple

	dirtier     optional.Optional[common.TxnID]
	beforeImage []byte
}

// NewFromBytes parses a page image. The image must be exactly PageSize()
// bytes.
func NewFromBytes(
	id common.PageIdentity,
	data []byte,
	desc *tuple.TupleDesc,
) (*HeapPage, error) {
	if len(data) != PageSize() {
		return nil, fmt.Errorf(
			"%w: got %d bytes, want %d",
			ErrCorruptPage,
			len(data),
			PageSize(),
		)
	}

	numSlots := TuplesPerPage(desc)
	headerSize := HeaderSize(desc)

	p := &HeapPage{
		id:     id,
		desc:   desc,
		header: append([]byte(nil), data[:headerSize]...),
		tuples: make([]*tuple.Tuple, numSlots),
	}

	rd := bytes.NewReader(data[headerSize:])
	tupleSize := desc.Size()
	for slot := 0; slot < numSlots; slot++ {
		if !p.slotUsed(slot) {
			if _, err := rd.Seek(int64(tupleSize), io.SeekCurrent); err != nil {
				return nil, err
			}
			continue
		}

		t, err := tuple.ReadTuple(rd, desc)
		if err != nil {
			return nil, fmt.Errorf("decoding slot %d: %w", slot, err)
		}
		t.SetRecordID(common.RecordID{
			TableID: id.TableID,
			PageNum: id.PageNum,
			SlotNum: int32(slot),
		})
		p.tuples[slot] = t
	}

	return p, nil
}

// NewEmpty returns a fresh all-zero page.
func NewEmpty(id common.PageIdentity, desc *tuple.TupleDesc) *HeapPage {
	return &HeapPage{
		id:     id,
		desc:   desc,
		header: make([]byte, HeaderSize(desc)),
		tuples: make([]*tuple.Tuple, TuplesPerPage(desc)),
	}
}

func (p *HeapPage) ID() common.PageIdentity {
	return p.id
}

func (p *HeapPage) Desc() *tuple.TupleDesc {
	return p.desc
}

func (p *HeapPage) NumSlots() int {
	return len(p.tuples)
}

func (p *HeapPage) slotUsed(slot int) bool {
	return p.header[slot/8]&(byte(1)<<(slot%8)) != 0
}

func (p *HeapPage) setSlotUsed(slot int, used bool) {
	if used {
		p.header[slot/8] |= byte(1) << (slot % 8)
	} else {
		p.header[slot/8] &^= byte(1) << (slot % 8)
	}
}

func (p *HeapPage) NumUnusedSlots() int {
	unused := 0
	for slot := range p.tuples {
		if !p.slotUsed(slot) {
			unused++
		}
	}
	return unused
}

// InsertTuple places t into the lowest-numbered unused slot and stamps its
// record id.
func (p *HeapPage) InsertTuple(t *tuple.Tuple) error {
	if !t.Desc().Equals(p.desc) {
		return ErrSchemaMismatch
	}

	for slot := range p.tuples {
		if p.slotUsed(slot) {
			continue
		}

		p.setSlotUsed(slot, true)
		t.SetRecordID(common.RecordID{
			TableID: p.id.TableID,
			PageNum: p.id.PageNum,
			SlotNum: int32(slot),
		})
		p.tuples[slot] = t
		return nil
	}

	return ErrPageFull
}

// DeleteTuple clears the slot referenced by t's record id.
func (p *HeapPage) DeleteTuple(t *tuple.Tuple) error {
	ridOpt := t.RecordID()
	if ridOpt.IsNone() {
		return fmt.Errorf("%w: tuple has no record id", ErrNotOnThisPage)
	}

	rid := ridOpt.Unwrap()
	if rid.PageIdentity() != p.id {
		return fmt.Errorf("%w: %s", ErrNotOnThisPage, rid)
	}

	slot := int(rid.SlotNum)
	if slot < 0 || slot >= len(p.tuples) || !p.slotUsed(slot) {
		return fmt.Errorf("%w: slot %d", ErrSlotEmpty, slot)
	}

	p.setSlotUsed(slot, false)
	p.tuples[slot] = nil
	return nil
}

// MarkDirty records which transaction dirtied the page. The first transition
// from clean to dirty snapshots the current image for use as the before
// image.
func (p *HeapPage) MarkDirty(dirty bool, tid common.TxnID) {
	if !dirty {
		p.dirtier.Clear()
		return
	}

	if p.dirtier.IsNone() {
		p.beforeImage = p.PageData()
	}
	p.dirtier.Emplace(tid)
}

// Dirtier returns the transaction that last wrote the page, if any.
func (p *HeapPage) Dirtier() optional.Optional[common.TxnID] {
	return p.dirtier
}

// BeforeImage returns the snapshot taken at the clean-to-dirty transition,
// or the current image if the page has never been dirtied.
func (p *HeapPage) BeforeImage() []byte {
	if p.beforeImage == nil {
		return p.PageData()
	}
	return append([]byte(nil), p.beforeImage...)
}

// PageData emits the full on-disk image: header, slots, zero padding.
func (p *HeapPage) PageData() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, PageSize()))
	buf.Write(p.header)

	tupleSize := p.desc.Size()
	zeros := make([]byte, tupleSize)
	for slot, t := range p.tuples {
		if t == nil {
			buf.Write(zeros)
			continue
		}
		err := t.Serialize(buf)
		assert.NoError(err)
		assert.Assert(p.slotUsed(slot), "tuple present in an unused slot %d", slot)
	}

	data := buf.Bytes()
	assert.Assert(
		len(data) <= PageSize(),
		"page image overflow: %d > %d",
		len(data),
		PageSize(),
	)
	return append(data, make([]byte, PageSize()-len(data))...)
}

// Tuples returns the occupied tuples in ascending slot order.
func (p *HeapPage) Tuples() []*tuple.Tuple {
	res := make([]*tuple.Tuple, 0, len(p.tuples))
	for slot, t := range p.tuples {
		if t != nil {
			assert.Assert(p.slotUsed(slot), "tuple present in an unused slot %d", slot)
			res = append(res, t)
		}
	}
	return res
}
