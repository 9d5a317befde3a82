package tablekv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jnoorchashm37/tablekv/codec"
)

type (
	AccountID uint64

	Record struct {
		Hi   string  `msgpack:"h"`
		This float64 `msgpack:"t"`
	}

	Account struct {
		Name    string `msgpack:"n"`
		Balance int64  `msgpack:"b"`
	}

	Tag struct {
		Name string `msgpack:"n"`
	}

	Point struct {
		X uint32
		Y uint32
	}
)

var (
	recordsTable  = NewTable[uint8, Record]("records")
	accountsTable = NewTable[AccountID, Account]("accounts",
		WithValueCodec[AccountID, Account](codec.Compressed(codec.Portable[Account](), codec.Zstd)))
	tagsTable   = NewTable[string, Tag]("tags", DupSort[string, Tag]())
	pointsTable = NewTable[uint32, Point]("points",
		WithValueCodec[uint32, Point](codec.Archive[Point]()))

	testSet = NewTableSet(recordsTable, accountsTable, tagsTable, pointsTable)
)

func TestDB(t *testing.T) {
	db := setup(t)

	r := Record{Hi: "to me", This: 1220.0}
	ensure(t, db.Write(func(tx *RWTx) error {
		return Put(tx, recordsTable, 100, r)
	}))

	ensure(t, db.Read(func(tx *Tx) error {
		got := must(Get(tx, recordsTable, 100))
		deepEqual(t, got, &r)
		isnil(t, must(Get(tx, recordsTable, 101)))
		return nil
	}))
}

func TestDBReopenPersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")

	db, err := Open(dir, testSet, Options{IsTesting: true})
	ensure(t, err)
	a := Account{Name: "alice", Balance: 1200}
	ensure(t, db.Write(func(tx *RWTx) error {
		return Put(tx, accountsTable, 7, a)
	}))
	ensure(t, db.Close())

	db, err = Open(dir, testSet, Options{IsTesting: true})
	ensure(t, err)
	defer db.Close()
	ensure(t, db.Read(func(tx *Tx) error {
		deepEqual(t, must(Get(tx, accountsTable, 7)), &a)
		return nil
	}))
}

func TestDBVersionMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")

	db, err := Open(dir, testSet, Options{IsTesting: true})
	ensure(t, err)
	ensure(t, db.Close())

	writeFile(t, filepath.Join(dir, versionFileName), "999")

	_, err = Open(dir, testSet, Options{IsTesting: true})
	var vme *VersionMismatchError
	if !errors.As(err, &vme) {
		t.Fatalf("Open = %v, wanted VersionMismatchError", err)
	}
	if vme.OnDisk != 999 || vme.Current != CurrentFormatVersion {
		t.Fatalf("VersionMismatchError = %+v", vme)
	}
}

func TestDBWriteRollsBackOnError(t *testing.T) {
	db := setup(t)

	boom := errors.New("boom")
	err := db.Write(func(tx *RWTx) error {
		ensure(t, Put(tx, recordsTable, 5, Record{Hi: "doomed"}))
		return boom
	})
	if err != boom {
		t.Fatalf("Write = %v, wanted %v", err, boom)
	}

	ensure(t, db.Read(func(tx *Tx) error {
		isnil(t, must(Get(tx, recordsTable, 5)))
		return nil
	}))
}

func TestDBReadSnapshotIsolation(t *testing.T) {
	db := setup(t)

	rtx, err := db.BeginRead()
	ensure(t, err)
	defer rtx.Abort()

	ensure(t, db.Write(func(tx *RWTx) error {
		return Put(tx, recordsTable, 42, Record{Hi: "late"})
	}))

	// The snapshot predates the commit and must not observe it.
	isnil(t, must(Get(rtx, recordsTable, 42)))
	ensure(t, rtx.Commit())

	ensure(t, db.Read(func(tx *Tx) error {
		if must(Get(tx, recordsTable, 42)) == nil {
			t.Errorf("committed write not visible to a fresh snapshot")
		}
		return nil
	}))
}

func TestDBSingleWriterExclusion(t *testing.T) {
	db := setup(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	second := make(chan error, 1)

	go func() {
		first <- db.Write(func(tx *RWTx) error {
			close(entered)
			<-release
			return Put(tx, recordsTable, 1, Record{Hi: "first"})
		})
	}()
	<-entered

	go func() {
		second <- db.Write(func(tx *RWTx) error {
			return Put(tx, recordsTable, 2, Record{Hi: "second"})
		})
	}()

	select {
	case err := <-second:
		t.Fatalf("second writer finished while first held the write slot: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	ensure(t, <-first)
	ensure(t, <-second)

	ensure(t, db.Read(func(tx *Tx) error {
		if must(Get(tx, recordsTable, 1)) == nil || must(Get(tx, recordsTable, 2)) == nil {
			t.Errorf("missing writes after serialized commits")
		}
		return nil
	}))
}

func TestDBCtxVariants(t *testing.T) {
	db := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ensure(t, db.WriteCtx(ctx, func(ctx context.Context, tx *RWTx) error {
		return Put(tx, recordsTable, 9, Record{Hi: "ctx"})
	}))
	ensure(t, db.ReadCtx(ctx, func(ctx context.Context, tx *Tx) error {
		if must(Get(tx, recordsTable, 9)) == nil {
			t.Errorf("write not visible")
		}
		return nil
	}))

	cancel()
	if err := db.ReadCtx(ctx, func(ctx context.Context, tx *Tx) error {
		t.Errorf("closure ran despite cancelled context")
		return nil
	}); err == nil {
		t.Fatalf("ReadCtx with cancelled ctx = nil, wanted error")
	}
}

func TestDBInMemory(t *testing.T) {
	db := setupMem(t)

	r := Record{Hi: "volatile", This: 1.5}
	ensure(t, db.Write(func(tx *RWTx) error {
		return Put(tx, recordsTable, 3, r)
	}))

	rtx, err := db.BeginRead()
	ensure(t, err)
	defer rtx.Abort()

	ensure(t, db.Write(func(tx *RWTx) error {
		return Put(tx, recordsTable, 4, Record{Hi: "after"})
	}))

	deepEqual(t, must(Get(rtx, recordsTable, 3)), &r)
	isnil(t, must(Get(rtx, recordsTable, 4)))
}

func TestDBClosedRejectsTxns(t *testing.T) {
	db := setupMem(t)
	ensure(t, db.Close())

	if _, err := db.BeginRead(); !errors.Is(err, ErrDatabaseClosed) {
		t.Fatalf("BeginRead on closed DB = %v", err)
	}
	if err := db.Write(func(tx *RWTx) error { return nil }); !errors.Is(err, ErrDatabaseClosed) {
		t.Fatalf("Write on closed DB = %v", err)
	}
}
