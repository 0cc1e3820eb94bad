package engine

import (
	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
)

// Transaction is one logical thread of control. It carries the id every
// storage call is tagged with; finishing it drives the flush-or-discard of
// its dirty pages and releases its locks.
type Transaction struct {
	id   common.TxnID
	db   *Database
	done bool
}

func (db *Database) Begin() *Transaction {
	return &Transaction{
		id: common.NextTxnID(),
		db: db,
	}
}

func (t *Transaction) ID() common.TxnID {
	return t.id
}

// Commit flushes every page the transaction dirtied, then releases its
// locks. The transaction must not be reused afterwards.
func (t *Transaction) Commit() error {
	assert.Assert(!t.done, "transaction %d finished twice", t.id)
	t.done = true
	return t.db.pool.TransactionComplete(t.id, true)
}

// Abort discards the transaction's dirty pages and releases its locks.
func (t *Transaction) Abort() error {
	assert.Assert(!t.done, "transaction %d finished twice", t.id)
	t.done = true
	return t.db.pool.TransactionComplete(t.id, false)
}
