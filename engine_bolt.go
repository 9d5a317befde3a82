package tablekv

import (
	"bytes"
	"fmt"
	"time"
	"unsafe"

	"go.etcd.io/bbolt"
)

// openBolt opens the engine file with settings tuned the same way for
// production and tests: tests skip fsync and start with a small mmap.
func openBolt(path string, opt Options) (*bbolt.DB, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}
	return bbolt.Open(path, 0o666, &bopt)
}

// dup groups store values as nested-bucket keys, so the stored bolt value
// is always this placeholder.
var emptyValue = []byte{}

type boltEngine struct {
	bdb *bbolt.DB
}

func newBoltEngine(bdb *bbolt.DB) engine {
	return &boltEngine{bdb: bdb}
}

func (e *boltEngine) beginTx(writable bool) (engineTx, error) {
	btx, err := e.bdb.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &boltTx{btx: btx}, nil
}

func (e *boltEngine) close() error {
	return e.bdb.Close()
}

type boltTx struct {
	btx *bbolt.Tx
}

func (tx *boltTx) writable() bool { return tx.btx.Writable() }

func (tx *boltTx) openTable(name string, dupSort bool) (engineTable, error) {
	b := tx.btx.Bucket(unsafeBytesFromString(name))
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return newBoltTable(tx.btx, name, dupSort, b), nil
}

func (tx *boltTx) createTable(name string, dupSort bool) (engineTable, bool, error) {
	existed := tx.btx.Bucket(unsafeBytesFromString(name)) != nil
	b, err := tx.btx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, false, err
	}
	return newBoltTable(tx.btx, name, dupSort, b), !existed, nil
}

func (tx *boltTx) commit() error {
	if tx.btx.Writable() {
		return tx.btx.Commit()
	}
	// Read snapshots are released via Rollback; Bolt has no read commit.
	return tx.rollback()
}

func (tx *boltTx) rollback() error {
	err := tx.btx.Rollback()
	if err == bbolt.ErrTxClosed {
		return nil
	}
	return err
}

func newBoltTable(btx *bbolt.Tx, name string, dupSort bool, b *bbolt.Bucket) engineTable {
	if dupSort {
		return &boltDupTable{btx: btx, name: []byte(name), b: b}
	}
	return &boltTable{btx: btx, name: []byte(name), b: b}
}

// boltTable maps a plain table directly onto one bucket.
type boltTable struct {
	btx  *bbolt.Tx
	name []byte
	b    *bbolt.Bucket
}

func (t *boltTable) get(key []byte) []byte {
	return t.b.Get(key)
}

func (t *boltTable) put(key, value []byte) error {
	return t.b.Put(key, value)
}

func (t *boltTable) del(key, value []byte) (bool, error) {
	cur := t.b.Get(key)
	if cur == nil {
		return false, nil
	}
	if value != nil && !bytes.Equal(cur, value) {
		return false, nil
	}
	return true, t.b.Delete(key)
}

func (t *boltTable) clear() error {
	if err := t.btx.DeleteBucket(t.name); err != nil {
		return err
	}
	b, err := t.btx.CreateBucket(t.name)
	if err != nil {
		return err
	}
	t.b = b
	return nil
}

func (t *boltTable) cursor() engineCursor {
	return &boltFlatCursor{c: t.b.Cursor()}
}

func (t *boltTable) entryCount() int {
	return t.b.Stats().KeyN
}

type boltFlatCursor struct {
	c *bbolt.Cursor
}

func (c *boltFlatCursor) first() ([]byte, []byte)           { return c.c.First() }
func (c *boltFlatCursor) next() ([]byte, []byte)            { return c.c.Next() }
func (c *boltFlatCursor) seek(seek []byte) ([]byte, []byte) { return c.c.Seek(seek) }
func (c *boltFlatCursor) nextDup() ([]byte, []byte)         { return nil, nil }
func (c *boltFlatCursor) nextNoDup() ([]byte, []byte)       { return c.c.Next() }

// boltDupTable emulates a dup-sorted table with a nested bucket per key;
// the values are the nested bucket's keys, so each dup group is value-ordered.
type boltDupTable struct {
	btx  *bbolt.Tx
	name []byte
	b    *bbolt.Bucket
}

func (t *boltDupTable) get(key []byte) []byte {
	g := t.b.Bucket(key)
	if g == nil {
		return nil
	}
	v, _ := g.Cursor().First()
	return v
}

func (t *boltDupTable) put(key, value []byte) error {
	g, err := t.b.CreateBucketIfNotExists(key)
	if err != nil {
		return err
	}
	return g.Put(value, emptyValue)
}

func (t *boltDupTable) del(key, value []byte) (bool, error) {
	g := t.b.Bucket(key)
	if g == nil {
		return false, nil
	}
	if value == nil {
		return true, t.b.DeleteBucket(key)
	}
	k, _ := g.Cursor().Seek(value)
	if k == nil || !bytes.Equal(k, value) {
		return false, nil
	}
	if err := g.Delete(value); err != nil {
		return false, err
	}
	// Don't leave empty dup groups behind: get and cursors would have to
	// skip them.
	if k, _ := g.Cursor().First(); k == nil {
		return true, t.b.DeleteBucket(key)
	}
	return true, nil
}

func (t *boltDupTable) clear() error {
	if err := t.btx.DeleteBucket(t.name); err != nil {
		return err
	}
	b, err := t.btx.CreateBucket(t.name)
	if err != nil {
		return err
	}
	t.b = b
	return nil
}

func (t *boltDupTable) cursor() engineCursor {
	return &boltDupCursor{b: t.b, outer: t.b.Cursor()}
}

func (t *boltDupTable) entryCount() int {
	// Stats aggregates nested buckets; KeyN counts both the values and the
	// per-key bucket slots in the parent, BucketN counts the buckets.
	s := t.b.Stats()
	return s.KeyN - (s.BucketN - 1)
}

type boltDupCursor struct {
	b     *bbolt.Bucket
	outer *bbolt.Cursor
	inner *bbolt.Cursor
	key   []byte
}

func (c *boltDupCursor) first() ([]byte, []byte) {
	k, _ := c.outer.First()
	return c.enterGroup(k)
}

// enterGroup positions the inner cursor at the first value of the group at k,
// advancing the outer cursor past anything that isn't a non-empty dup group.
func (c *boltDupCursor) enterGroup(k []byte) ([]byte, []byte) {
	for k != nil {
		if g := c.b.Bucket(k); g != nil {
			c.inner = g.Cursor()
			if v, _ := c.inner.First(); v != nil {
				c.key = k
				return k, v
			}
		}
		k, _ = c.outer.Next()
	}
	c.inner = nil
	c.key = nil
	return nil, nil
}

func (c *boltDupCursor) next() ([]byte, []byte) {
	if c.inner == nil {
		return c.first()
	}
	if v, _ := c.inner.Next(); v != nil {
		return c.key, v
	}
	k, _ := c.outer.Next()
	return c.enterGroup(k)
}

func (c *boltDupCursor) seek(seek []byte) ([]byte, []byte) {
	k, _ := c.outer.Seek(seek)
	return c.enterGroup(k)
}

func (c *boltDupCursor) nextDup() ([]byte, []byte) {
	if c.inner == nil {
		return nil, nil
	}
	v, _ := c.inner.Next()
	if v == nil {
		return nil, nil
	}
	return c.key, v
}

func (c *boltDupCursor) nextNoDup() ([]byte, []byte) {
	if c.inner == nil {
		return c.first()
	}
	k, _ := c.outer.Next()
	return c.enterGroup(k)
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
