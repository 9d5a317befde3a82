package tablekv

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// memEngine is a transient in-memory engine intended for tests. It mirrors
// the engine contract: every transaction sees a point-in-time snapshot and
// at most one write transaction is active at a time.
type memEngine struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tables map[string]*memTable
	closed bool
	writer bool
}

func newMemEngine() engine {
	e := &memEngine{tables: make(map[string]*memTable)}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func (e *memEngine) beginTx(writable bool) (engineTx, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrDatabaseClosed
	}
	if writable {
		for e.writer && !e.closed {
			e.cond.Wait()
		}
		if e.closed {
			return nil, ErrDatabaseClosed
		}
		e.writer = true
	}

	// Snapshot the entire store for isolation (simplicity over efficiency).
	snap := make(map[string]*memTable, len(e.tables))
	for name, t := range e.tables {
		snap[name] = t.clone()
	}

	return &memTx{base: e, wr: writable, tables: snap}, nil
}

func (e *memEngine) close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.tables = nil
	e.cond.Broadcast()
	return nil
}

type memTx struct {
	base   *memEngine
	wr     bool
	tables map[string]*memTable
	closed bool
}

func (tx *memTx) writable() bool { return tx.wr }

func (tx *memTx) openTable(name string, dupSort bool) (engineTable, error) {
	if tx.closed {
		return nil, ErrTxDone
	}
	t := tx.tables[name]
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return &memTableHandle{tx: tx, t: t}, nil
}

func (tx *memTx) createTable(name string, dupSort bool) (engineTable, bool, error) {
	if tx.closed {
		return nil, false, ErrTxDone
	}
	if !tx.wr {
		return nil, false, ErrReadOnlyTx
	}
	t := tx.tables[name]
	created := t == nil
	if created {
		t = &memTable{dup: dupSort}
		tx.tables[name] = t
	}
	return &memTableHandle{tx: tx, t: t}, created, nil
}

func (tx *memTx) commit() error {
	if tx.closed {
		return ErrTxDone
	}
	tx.base.mu.Lock()
	defer tx.base.mu.Unlock()
	if tx.wr && !tx.base.closed {
		tx.base.tables = tx.tables
	}
	tx.closeLocked()
	return nil
}

func (tx *memTx) rollback() error {
	tx.base.mu.Lock()
	defer tx.base.mu.Unlock()
	tx.closeLocked()
	return nil
}

func (tx *memTx) closeLocked() {
	if tx.closed {
		return
	}
	tx.closed = true
	if tx.wr {
		tx.base.writer = false
		tx.base.cond.Broadcast()
	}
}

// memTable keeps items sorted by key, then value. Plain tables hold one
// item per key; dup tables hold the whole group.
type memTable struct {
	dup   bool
	items []memKV
}

type memKV struct {
	key   []byte
	value []byte
}

func (t *memTable) clone() *memTable {
	out := &memTable{dup: t.dup, items: make([]memKV, len(t.items))}
	for i, kv := range t.items {
		out.items[i] = memKV{key: slices.Clone(kv.key), value: slices.Clone(kv.value)}
	}
	return out
}

type memTableHandle struct {
	tx *memTx
	t  *memTable
}

// firstGE returns the index of the first item with key >= key.
func (h *memTableHandle) firstGE(key []byte) int {
	items := h.t.items
	return sort.Search(len(items), func(i int) bool {
		return bytes.Compare(items[i].key, key) >= 0
	})
}

func (h *memTableHandle) get(key []byte) []byte {
	i := h.firstGE(key)
	if i < len(h.t.items) && bytes.Equal(h.t.items[i].key, key) {
		return h.t.items[i].value
	}
	return nil
}

func (h *memTableHandle) put(key, value []byte) error {
	if !h.tx.wr {
		return ErrReadOnlyTx
	}
	key = slices.Clone(key)
	value = slices.Clone(value)
	items := h.t.items
	i := h.firstGE(key)

	if h.t.dup {
		// Insert into the group keeping (key, value) order.
		for i < len(items) && bytes.Equal(items[i].key, key) {
			switch bytes.Compare(items[i].value, value) {
			case 0:
				return nil // duplicate values are stored once
			case -1:
				i++
				continue
			}
			break
		}
	} else if i < len(items) && bytes.Equal(items[i].key, key) {
		items[i].value = value
		return nil
	}
	h.t.items = slices.Insert(items, i, memKV{key: key, value: value})
	return nil
}

func (h *memTableHandle) del(key, value []byte) (bool, error) {
	if !h.tx.wr {
		return false, ErrReadOnlyTx
	}
	items := h.t.items
	i := h.firstGE(key)
	j := i
	deleted := false
	for j < len(items) && bytes.Equal(items[j].key, key) {
		if value == nil || bytes.Equal(items[j].value, value) {
			deleted = true
			if value != nil {
				h.t.items = slices.Delete(items, j, j+1)
				return true, nil
			}
		}
		j++
	}
	if deleted {
		h.t.items = slices.Delete(items, i, j)
	}
	return deleted, nil
}

func (h *memTableHandle) clear() error {
	if !h.tx.wr {
		return ErrReadOnlyTx
	}
	h.t.items = nil
	return nil
}

func (h *memTableHandle) cursor() engineCursor {
	return &memCursor{h: h, pos: -1}
}

func (h *memTableHandle) entryCount() int {
	return len(h.t.items)
}

type memCursor struct {
	h   *memTableHandle
	pos int
}

func (c *memCursor) at() ([]byte, []byte) {
	items := c.h.t.items
	if c.pos < 0 || c.pos >= len(items) {
		return nil, nil
	}
	return items[c.pos].key, items[c.pos].value
}

func (c *memCursor) first() ([]byte, []byte) {
	c.pos = 0
	return c.at()
}

func (c *memCursor) next() ([]byte, []byte) {
	if c.pos < 0 {
		return c.first()
	}
	c.pos++
	return c.at()
}

func (c *memCursor) seek(seek []byte) ([]byte, []byte) {
	c.pos = c.h.firstGE(seek)
	return c.at()
}

func (c *memCursor) nextDup() ([]byte, []byte) {
	items := c.h.t.items
	if c.pos < 0 || c.pos >= len(items) {
		return nil, nil
	}
	if c.pos+1 >= len(items) || !bytes.Equal(items[c.pos+1].key, items[c.pos].key) {
		return nil, nil
	}
	c.pos++
	return c.at()
}

func (c *memCursor) nextNoDup() ([]byte, []byte) {
	items := c.h.t.items
	if c.pos < 0 {
		return c.first()
	}
	if c.pos >= len(items) {
		return nil, nil
	}
	cur := items[c.pos].key
	for c.pos < len(items) && bytes.Equal(items[c.pos].key, cur) {
		c.pos++
	}
	return c.at()
}
