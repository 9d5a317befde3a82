package tablekv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const trackTxns = true

// DefaultReadGuard is the slow-reader threshold used when Options.ReadGuard
// is zero.
const DefaultReadGuard = time.Minute

// DB owns the opened engine and the table set it was materialized with.
// It stays open for the process's database lifetime; the engine enforces a
// single write transaction and any number of snapshot-isolated readers, and
// this layer only ever hands out transactions that preserve that.
type DB struct {
	eng       engine
	set       *TableSet
	logger    *slog.Logger
	readGuard time.Duration

	ReaderCount atomic.Int64
	WriterCount atomic.Int64

	txns     []*Tx
	txnsLock sync.Mutex

	stopGuard chan struct{}
	closed    atomic.Bool
}

type Options struct {
	// Logger receives slow-reader warnings and diagnostics. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// IsTesting trades durability for speed (no fsync, small mmap).
	IsTesting bool

	// MmapSize overrides the engine's initial mmap size in bytes.
	MmapSize int

	// InMemory opens a transient in-memory engine instead of Bolt.
	// Nothing touches disk; Path is ignored.
	InMemory bool

	// ReadGuard is how long a read transaction may stay open before the
	// slow-reader guard logs it. Zero means DefaultReadGuard; negative
	// disables the guard entirely.
	ReadGuard time.Duration
}

// Open opens or creates the database directory at path and materializes
// every table of the set inside it. An empty (or missing) directory becomes
// a fresh database with a format version marker; a non-empty one must carry
// a matching marker.
func Open(path string, set *TableSet, opt Options) (*DB, error) {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	readGuard := opt.ReadGuard
	if readGuard == 0 {
		readGuard = DefaultReadGuard
	}

	var eng engine
	if opt.InMemory {
		eng = newMemEngine()
	} else {
		if isDatabaseEmpty(path) {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return nil, &OpenError{Path: path, Err: err}
			}
			if err := createVersionFile(path); err != nil {
				return nil, &OpenError{Path: path, Err: err}
			}
		} else if err := checkVersionFile(path); err != nil {
			if _, ok := err.(*VersionMismatchError); ok {
				return nil, err
			}
			return nil, &OpenError{Path: path, Err: err}
		}

		bdb, err := openBolt(filepath.Join(path, dataFileName), opt)
		if err != nil {
			return nil, &OpenError{Path: path, Err: err}
		}
		eng = newBoltEngine(bdb)
	}

	db := &DB{
		eng:       eng,
		set:       set,
		logger:    logger,
		readGuard: readGuard,
	}

	if err := db.Write(func(tx *RWTx) error {
		return set.CreateTables(tx)
	}); err != nil {
		_ = eng.close()
		return nil, &OpenError{Path: path, Err: fmt.Errorf("creating tables: %w", err)}
	}

	if readGuard > 0 {
		db.stopGuard = make(chan struct{})
		go db.watchReaders()
	}
	return db, nil
}

// Close releases the engine. Outstanding transactions become invalid, so
// finish them first.
func (db *DB) Close() error {
	if db.closed.Swap(true) {
		return nil
	}
	if db.stopGuard != nil {
		close(db.stopGuard)
	}
	return db.eng.close()
}

// BeginRead starts a read transaction pinned to the current snapshot.
// Prefer the closure-scoped Read unless the lifecycle genuinely needs to be
// explicit.
func (db *DB) BeginRead() (*Tx, error) {
	if db.closed.Load() {
		return nil, ErrDatabaseClosed
	}
	etx, err := db.eng.beginTx(false)
	if err != nil {
		return nil, fmt.Errorf("tablekv: begin read: %w", err)
	}
	tx := &Tx{}
	db.initTx(tx, etx, false)
	return tx, nil
}

// BeginWrite starts the write transaction, blocking while another one is
// active (the engine serializes writers).
func (db *DB) BeginWrite() (*RWTx, error) {
	if db.closed.Load() {
		return nil, ErrDatabaseClosed
	}
	etx, err := db.eng.beginTx(true)
	if err != nil {
		return nil, fmt.Errorf("tablekv: begin write: %w", err)
	}
	rtx := &RWTx{}
	db.initTx(&rtx.Tx, etx, true)
	return rtx, nil
}

func (db *DB) initTx(tx *Tx, etx engineTx, writable bool) {
	tx.db = db
	tx.etx = etx
	tx.set = db.set
	tx.wr = writable
	tx.handles = make([]engineTable, db.set.Len())
	tx.startTime = time.Now()
	if trackTxns {
		tx.stack = string(debug.Stack())
	}
	if writable {
		db.WriterCount.Add(1)
	} else {
		db.ReaderCount.Add(1)
	}
	db.addTx(tx)
}

// Read runs f inside a read transaction and releases the snapshot when f
// returns. Cursors and decoded values borrowed from engine pages must not
// be retained past f.
func (db *DB) Read(f func(tx *Tx) error) error {
	tx, err := db.BeginRead()
	if err != nil {
		return err
	}
	defer tx.Abort()
	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Write runs f inside the write transaction, committing when f returns nil
// and rolling back when it returns an error. There is no partial-commit
// path: f sees only the typed operation surface.
func (db *DB) Write(f func(tx *RWTx) error) error {
	tx, err := db.BeginWrite()
	if err != nil {
		return err
	}
	defer tx.Abort()
	if err := f(tx); err != nil {
		return err
	}
	_, err = tx.Commit()
	return err
}

// ReadCtx is Read for closures that block on ctx. The transaction stays
// open across any suspension inside f, so bound how long f runs: a parked
// read snapshot accumulates stale-reader pressure.
func (db *DB) ReadCtx(ctx context.Context, f func(ctx context.Context, tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := db.BeginRead()
	if err != nil {
		return err
	}
	defer tx.Abort()
	if err := f(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// WriteCtx is Write for closures that block on ctx. The single writer slot
// is held for as long as f runs.
func (db *DB) WriteCtx(ctx context.Context, f func(ctx context.Context, tx *RWTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := db.BeginWrite()
	if err != nil {
		return err
	}
	defer tx.Abort()
	if err := f(ctx, tx); err != nil {
		return err
	}
	_, err = tx.Commit()
	return err
}

func (db *DB) addTx(tx *Tx) {
	db.txnsLock.Lock()
	defer db.txnsLock.Unlock()
	db.txns = append(db.txns, tx)
}

func (db *DB) removeTx(tx *Tx) {
	if tx.wr {
		db.WriterCount.Add(-1)
	} else {
		db.ReaderCount.Add(-1)
	}

	db.txnsLock.Lock()
	defer db.txnsLock.Unlock()

	found := -1
	for i, t := range db.txns {
		if t == tx {
			found = i
			break
		}
	}
	if found < 0 {
		panic("tx not found in list")
	}

	n := len(db.txns)
	db.txns[found] = db.txns[n-1]
	db.txns[n-1] = nil // ensure it gets collected
	db.txns = db.txns[:n-1]
}

// watchReaders periodically logs read transactions that outlive the guard.
// A reader cannot safely be killed out from under its owner, so enforcement
// stops at loud logging; see Tx.DisableReadGuard for deliberate long scans.
func (db *DB) watchReaders() {
	interval := db.readGuard / 4
	if interval > time.Second {
		interval = time.Second
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-db.stopGuard:
			return
		case <-t.C:
			db.warnSlowReaders()
		}
	}
}

func (db *DB) warnSlowReaders() {
	now := time.Now()
	db.txnsLock.Lock()
	defer db.txnsLock.Unlock()
	for _, tx := range db.txns {
		if tx.wr || tx.readGuardOff.Load() || tx.warned.Load() {
			continue
		}
		age := now.Sub(tx.startTime)
		if age > db.readGuard {
			tx.warned.Store(true)
			db.logger.Warn("tablekv: long-lived read transaction prevents page reclamation",
				slog.Duration("age", age),
				slog.String("stack", tx.stack))
		}
	}
}

// DescribeOpenTxns formats the currently open transactions with their ages
// and, when tracking is enabled, the stacks that started them.
func (db *DB) DescribeOpenTxns() string {
	db.txnsLock.Lock()
	txns := slices.Clone(db.txns)
	db.txnsLock.Unlock()

	if len(txns) == 0 {
		return "NO OPEN TRANSACTIONS"
	}

	slices.SortFunc(txns, func(a, b *Tx) int {
		return a.startTime.Compare(b.startTime)
	})

	now := time.Now()

	var buf strings.Builder
	fmt.Fprintf(&buf, "%d OPEN TRANSACTIONS:\n", len(txns))
	for _, tx := range txns {
		ms := now.Sub(tx.startTime).Milliseconds()
		if !trackTxns || ms < 100 {
			fmt.Fprintf(&buf, "\n---\nopen for %d ms\n", ms)
		} else {
			fmt.Fprintf(&buf, "\n---\nopen for %d ms:\n%s", ms, tx.stack)
		}
	}
	return buf.String()
}
