package common

import (
	"fmt"
	"sync/atomic"
)

// TableID is the identity of a heap file. It is derived from a hash of the
// file's absolute path, so it is stable across restarts.
type TableID int32

// PageNum is a zero-based page number inside a heap file.
type PageNum int32

/* a monotonically increasing counter. It is guaranteed to be unique between
 * transactions within a single process */
type TxnID int64

var txnCounter atomic.Int64

func NextTxnID() TxnID {
	return TxnID(txnCounter.Add(1))
}

type PageIdentity struct {
	TableID TableID
	PageNum PageNum
}

func (p PageIdentity) String() string {
	return fmt.Sprintf("page(%d:%d)", p.TableID, p.PageNum)
}

type RecordID struct {
	TableID TableID
	PageNum PageNum
	SlotNum int32
}

func (r RecordID) PageIdentity() PageIdentity {
	return PageIdentity{
		TableID: r.TableID,
		PageNum: r.PageNum,
	}
}

func (r RecordID) String() string {
	return fmt.Sprintf("record(%d:%d:%d)", r.TableID, r.PageNum, r.SlotNum)
}
