package tablekv

import (
	"errors"
	"testing"
)

func TestTxDeleteAndEntries(t *testing.T) {
	db := setup(t)

	ensure(t, db.Write(func(tx *RWTx) error {
		return Put(tx, recordsTable, 100, Record{Hi: "to me", This: 1220.0})
	}))

	ensure(t, db.Write(func(tx *RWTx) error {
		deleted := must(Delete(tx, recordsTable, 100, nil))
		if !deleted {
			t.Errorf("Delete of an existing key = false")
		}
		deleted = must(Delete(tx, recordsTable, 100, nil))
		if deleted {
			t.Errorf("Delete of an absent key = true")
		}
		return nil
	}))

	ensure(t, db.Read(func(tx *Tx) error {
		isnil(t, must(Get(tx, recordsTable, 100)))
		deepEqual(t, must(Entries(tx, recordsTable)), 0)
		return nil
	}))
}

func TestTxDeleteWithValue(t *testing.T) {
	db := setup(t)

	r := Record{Hi: "keep", This: 1}
	ensure(t, db.Write(func(tx *RWTx) error {
		return Put(tx, recordsTable, 1, r)
	}))

	other := Record{Hi: "other", This: 2}
	ensure(t, db.Write(func(tx *RWTx) error {
		if must(Delete(tx, recordsTable, 1, &other)) {
			t.Errorf("Delete with a mismatched value = true")
		}
		if !must(Delete(tx, recordsTable, 1, &r)) {
			t.Errorf("Delete with the matching value = false")
		}
		return nil
	}))
}

func TestTxClear(t *testing.T) {
	db := setup(t)

	ensure(t, db.Write(func(tx *RWTx) error {
		for i := uint8(1); i <= 5; i++ {
			if err := Put(tx, recordsTable, i, Record{This: float64(i)}); err != nil {
				return err
			}
		}
		return nil
	}))

	ensure(t, db.Write(func(tx *RWTx) error {
		return Clear(tx, recordsTable)
	}))

	ensure(t, db.Read(func(tx *Tx) error {
		deepEqual(t, must(Entries(tx, recordsTable)), 0)
		isnil(t, must(Get(tx, recordsTable, 3)))
		return nil
	}))
}

func TestTxDupSort(t *testing.T) {
	db := setup(t)

	ensure(t, db.Write(func(tx *RWTx) error {
		ensure(t, Put(tx, tagsTable, "host", Tag{Name: "ab"}))
		ensure(t, Put(tx, tagsTable, "host", Tag{Name: "aa"}))
		ensure(t, Put(tx, tagsTable, "zone", Tag{Name: "zz"}))
		return nil
	}))

	ensure(t, db.Read(func(tx *Tx) error {
		deepEqual(t, must(Entries(tx, tagsTable)), 3)

		// Get returns the first value of the group in value order.
		deepEqual(t, must(Get(tx, tagsTable, "host")), &Tag{Name: "aa"})
		return nil
	}))

	// Deleting one value leaves the rest of the group intact.
	ensure(t, db.Write(func(tx *RWTx) error {
		if !must(Delete(tx, tagsTable, "host", &Tag{Name: "aa"})) {
			t.Errorf("Delete of a dup group member = false")
		}
		return nil
	}))
	ensure(t, db.Read(func(tx *Tx) error {
		deepEqual(t, must(Entries(tx, tagsTable)), 2)
		deepEqual(t, must(Get(tx, tagsTable, "host")), &Tag{Name: "ab"})
		return nil
	}))

	// Deleting without a value drops the whole group.
	ensure(t, db.Write(func(tx *RWTx) error {
		if !must(Delete(tx, tagsTable, "host", nil)) {
			t.Errorf("Delete of a dup group = false")
		}
		return nil
	}))
	ensure(t, db.Read(func(tx *Tx) error {
		deepEqual(t, must(Entries(tx, tagsTable)), 1)
		isnil(t, must(Get(tx, tagsTable, "host")))
		return nil
	}))
}

func TestTxFixedLayoutTable(t *testing.T) {
	db := setup(t)

	p := Point{X: 10, Y: 20}
	ensure(t, db.Write(func(tx *RWTx) error {
		return Put(tx, pointsTable, 77, p)
	}))
	ensure(t, db.Read(func(tx *Tx) error {
		deepEqual(t, must(Get(tx, pointsTable, 77)), &p)
		return nil
	}))
}

func TestTxCommitReportsWritten(t *testing.T) {
	db := setup(t)

	tx, err := db.BeginWrite()
	ensure(t, err)
	written, err := tx.Commit()
	ensure(t, err)
	if written {
		t.Errorf("Commit of an empty transaction reported written")
	}

	tx, err = db.BeginWrite()
	ensure(t, err)
	ensure(t, Put(tx, recordsTable, 1, Record{}))
	written, err = tx.Commit()
	ensure(t, err)
	if !written {
		t.Errorf("Commit after Put reported not written")
	}

	// Deleting nothing does not count as a write.
	tx, err = db.BeginWrite()
	ensure(t, err)
	_ = must(Delete(tx, recordsTable, 200, nil))
	written, err = tx.Commit()
	ensure(t, err)
	if written {
		t.Errorf("Commit after a no-op delete reported written")
	}
}

func TestTxHandleCache(t *testing.T) {
	db := setup(t)

	ensure(t, db.Write(func(tx *RWTx) error {
		for i := uint8(0); i < 10; i++ {
			ensure(t, Put(tx, recordsTable, i, Record{This: float64(i)}))
			_ = must(Get(tx, recordsTable, i))
		}
		deepEqual(t, tx.handleOpens, 1)

		_ = must(Entries(tx, tagsTable))
		deepEqual(t, tx.handleOpens, 2)
		return nil
	}))
}

func TestTxDone(t *testing.T) {
	db := setup(t)

	tx, err := db.BeginRead()
	ensure(t, err)
	ensure(t, tx.Commit())

	if _, err := Get(tx, recordsTable, 1); !errors.Is(err, ErrTxDone) {
		t.Fatalf("Get on a finished tx = %v, wanted ErrTxDone", err)
	}
	if err := tx.Commit(); !errors.Is(err, ErrTxDone) {
		t.Fatalf("second Commit = %v, wanted ErrTxDone", err)
	}
	tx.Abort() // must be a no-op
}

func TestTxForeignTableRejected(t *testing.T) {
	db := setup(t)

	stray := NewTable[uint8, Record]("stray")
	_ = NewTableSet(stray)

	err := db.Read(func(tx *Tx) error {
		_, err := Get(tx, stray, 1)
		return err
	})
	if !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("Get on a foreign table = %v, wanted ErrUnknownTable", err)
	}
}
