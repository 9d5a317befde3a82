package tablekv

// Get performs a typed point lookup. It returns nil for an absent key.
// A value that is present but fails to decode is a decode error, never nil:
// the bytes were written by this system, so failure signals corruption or
// version skew.
func Get[K, V any](txish Txish, tbl *Table[K, V], key K) (*V, error) {
	tx := txish.DBTx()
	h, err := tx.table(tbl)
	if err != nil {
		return nil, err
	}
	keyRaw := tbl.keyEnc.Encode(nil, key)
	raw := h.get(keyRaw)
	if raw == nil {
		return nil, nil
	}
	v, err := tbl.valEnc.Decode(raw)
	if err != nil {
		return nil, tableErrf(tbl.name, keyRaw, err, "decoding value")
	}
	return &v, nil
}

// Put upserts a key/value pair. For duplicate-sorted tables the value joins
// the key's ordered group instead of replacing it.
func Put[K, V any](tx *RWTx, tbl *Table[K, V], key K, value V) error {
	h, err := tx.table(tbl)
	if err != nil {
		return err
	}
	keyRaw := tbl.keyEnc.Encode(nil, key)
	valRaw := tbl.valEnc.Encode(nil, value)
	if err := h.put(keyRaw, valRaw); err != nil {
		return &WriteError{Op: "put", Table: tbl.name, Key: keyRaw, Err: err}
	}
	tx.written = true
	return nil
}

// Delete removes entries for key and reports whether anything was deleted.
// With a non-nil value, only the entry matching that exact encoded value is
// removed; this is how a single member of a dup group is deleted.
func Delete[K, V any](tx *RWTx, tbl *Table[K, V], key K, value *V) (bool, error) {
	h, err := tx.table(tbl)
	if err != nil {
		return false, err
	}
	keyRaw := tbl.keyEnc.Encode(nil, key)
	var valRaw []byte
	if value != nil {
		valRaw = tbl.valEnc.Encode(nil, *value)
	}
	deleted, err := h.del(keyRaw, valRaw)
	if err != nil {
		return false, &WriteError{Op: "delete", Table: tbl.name, Key: keyRaw, Err: err}
	}
	if deleted {
		tx.written = true
	}
	return deleted, nil
}

// Clear removes every entry of the table.
func Clear(tx *RWTx, tbl TableDesc) error {
	h, err := tx.table(tbl)
	if err != nil {
		return err
	}
	if err := h.clear(); err != nil {
		return &WriteError{Op: "clear", Table: tbl.Name(), Err: err}
	}
	tx.written = true
	return nil
}

// Entries returns the table's current entry count from the engine's
// statistics, without scanning.
func Entries(txish Txish, tbl TableDesc) (int, error) {
	tx := txish.DBTx()
	h, err := tx.table(tbl)
	if err != nil {
		return 0, err
	}
	return h.entryCount(), nil
}

// CreateTable ensures the table's sub-database exists, reusing it if it
// already does. The registry's CreateTables calls this for every member.
func CreateTable(tx *RWTx, tbl TableDesc) error {
	if tx.done {
		return ErrTxDone
	}
	if tbl.setOf() != tx.set {
		return tableErrf(tbl.Name(), nil, ErrUnknownTable, "table is not part of this database's set")
	}
	h, created, err := tx.etx.createTable(tbl.Name(), tbl.DupSort())
	if err != nil {
		return tableErrf(tbl.Name(), nil, err, "creating table")
	}
	tx.cacheTable(tbl, h)
	if created {
		tx.written = true
	}
	return nil
}
