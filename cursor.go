package tablekv

import "bytes"

// Cursor traverses one table in key order, decoding pairs at the boundary.
// It borrows from its transaction and is only valid until the transaction
// ends. A fresh cursor is positioned before the first entry.
//
// Positioning methods return a nil value pointer when the table (or the
// current dup group) is exhausted; the key result is the zero K then.
type Cursor[K, V any] struct {
	tbl     *Table[K, V]
	ec      engineCursor
	started bool
}

// TableCursor returns a cursor over tbl within the given transaction.
func TableCursor[K, V any](txish Txish, tbl *Table[K, V]) (*Cursor[K, V], error) {
	tx := txish.DBTx()
	h, err := tx.table(tbl)
	if err != nil {
		return nil, err
	}
	return &Cursor[K, V]{tbl: tbl, ec: h.cursor()}, nil
}

func (c *Cursor[K, V]) pair(keyRaw, valRaw []byte) (K, *V, error) {
	var zeroK K
	if keyRaw == nil {
		return zeroK, nil, nil
	}
	key, err := c.tbl.keyEnc.Decode(keyRaw)
	if err != nil {
		return zeroK, nil, tableErrf(c.tbl.name, keyRaw, err, "decoding cursor key")
	}
	v, err := c.tbl.valEnc.Decode(valRaw)
	if err != nil {
		return zeroK, nil, tableErrf(c.tbl.name, keyRaw, err, "decoding cursor value")
	}
	return key, &v, nil
}

// First moves to the first entry.
func (c *Cursor[K, V]) First() (K, *V, error) {
	c.started = true
	return c.pair(c.ec.first())
}

// Next moves to the next entry, walking through dup groups. On a fresh
// cursor it behaves like First.
func (c *Cursor[K, V]) Next() (K, *V, error) {
	if !c.started {
		return c.First()
	}
	return c.pair(c.ec.next())
}

// Seek moves to the first entry with key >= the given key.
func (c *Cursor[K, V]) Seek(key K) (K, *V, error) {
	c.started = true
	return c.pair(c.ec.seek(c.tbl.keyEnc.Encode(nil, key)))
}

// SeekExact moves to the given key and returns its (first) value, or nil if
// the key is absent.
func (c *Cursor[K, V]) SeekExact(key K) (*V, error) {
	c.started = true
	keyRaw := c.tbl.keyEnc.Encode(nil, key)
	gotRaw, valRaw := c.ec.seek(keyRaw)
	if gotRaw == nil || !bytes.Equal(gotRaw, keyRaw) {
		return nil, nil
	}
	_, v, err := c.pair(gotRaw, valRaw)
	return v, err
}

// NextDup moves to the next value of the current key's dup group. At the end
// of the group it returns a nil value without moving past the group, so
// iteration can resume with NextNoDup. Only meaningful on dup-sorted tables.
func (c *Cursor[K, V]) NextDup() (K, *V, error) {
	var zeroK K
	if !c.started {
		return zeroK, nil, nil
	}
	return c.pair(c.ec.nextDup())
}

// NextNoDup moves to the first value of the next distinct key.
func (c *Cursor[K, V]) NextNoDup() (K, *V, error) {
	if !c.started {
		return c.First()
	}
	return c.pair(c.ec.nextNoDup())
}
