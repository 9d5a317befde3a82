package tablekv

import (
	"sync/atomic"
	"time"
)

// Txish is satisfied by both Tx and RWTx, so read-side operations accept
// either.
type Txish interface {
	DBTx() *Tx
}

// Tx is a read transaction: a consistent point-in-time snapshot of the
// database. It caches one engine table handle per registry slot, resolved
// lazily on first access; handles are never shared across transactions.
//
// A Tx is single-use: after Commit or Abort every operation fails with
// ErrTxDone.
type Tx struct {
	db  *DB
	etx engineTx
	set *TableSet
	wr  bool

	// handle cache indexed by TableDesc.Pos; handleOpens counts engine
	// handle resolutions so cache behavior stays observable in tests.
	handles     []engineTable
	handleOpens int

	done         bool
	readGuardOff atomic.Bool
	warned       atomic.Bool
	startTime    time.Time
	stack        string
}

// RWTx is a write transaction. It embeds Tx, so every read operation works
// on it too; mutating operations only accept an RWTx, making write
// capability a compile-time property.
type RWTx struct {
	Tx
	written bool
}

// DBTx implements Txish.
func (tx *Tx) DBTx() *Tx {
	return tx
}

func (tx *Tx) DB() *DB {
	return tx.db
}

// IsWritable reports the transaction's capability level.
func (tx *Tx) IsWritable() bool {
	return tx.wr
}

// DisableReadGuard exempts this read transaction from the slow-reader
// guard, for deliberately long-lived scans. Holding a read snapshot open
// prevents the engine from reclaiming obsolete pages, so bound such scans
// yourself.
func (tx *Tx) DisableReadGuard() {
	tx.readGuardOff.Store(true)
}

// table resolves the engine handle for tbl, opening it on first access
// within this transaction and caching it by registry position afterwards.
func (tx *Tx) table(tbl TableDesc) (engineTable, error) {
	if tx.done {
		return nil, ErrTxDone
	}
	if tbl.setOf() != tx.set {
		return nil, tableErrf(tbl.Name(), nil, ErrUnknownTable, "table is not part of this database's set")
	}
	pos := tbl.Pos()
	if h := tx.handles[pos]; h != nil {
		return h, nil
	}
	h, err := tx.etx.openTable(tbl.Name(), tbl.DupSort())
	if err != nil {
		return nil, tableErrf(tbl.Name(), nil, err, "opening table handle")
	}
	tx.handles[pos] = h
	tx.handleOpens++
	return h, nil
}

// cacheTable stores an already-resolved handle, used by CreateTable so a
// later access doesn't re-open it.
func (tx *Tx) cacheTable(tbl TableDesc, h engineTable) {
	tx.handles[tbl.Pos()] = h
}

// Commit releases the read snapshot. The transaction is unusable afterwards.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	err := tx.etx.commit()
	tx.finish()
	return err
}

// Abort releases the transaction, discarding any pending state. Safe to call
// after Commit (it does nothing then), which makes it defer-friendly.
func (tx *Tx) Abort() {
	if tx.done {
		return
	}
	_ = tx.etx.rollback()
	tx.finish()
}

// Commit makes the transaction's writes durable and reports whether the
// transaction actually wrote anything. The transaction is unusable
// afterwards.
func (tx *RWTx) Commit() (bool, error) {
	if tx.done {
		return false, ErrTxDone
	}
	err := tx.etx.commit()
	tx.finish()
	if err != nil {
		return false, err
	}
	return tx.written, nil
}

func (tx *Tx) finish() {
	if tx.done {
		return
	}
	tx.done = true
	if tx.db != nil {
		tx.db.removeTx(tx)
	}
}
