package tablekv

// engine represents the underlying byte-oriented transactional store
// (Bolt in production, an in-memory store in tests). It must provide MVCC
// snapshot isolation with a single writer and any number of readers.
type engine interface {
	// beginTx starts a new transaction. A writable transaction blocks until
	// the engine's single writer slot is free.
	beginTx(writable bool) (engineTx, error)

	// close closes the engine. Outstanding transactions become invalid.
	close() error
}

// engineTx represents one engine-level transaction.
type engineTx interface {
	// writable returns true if this is a write transaction.
	writable() bool

	// openTable returns a handle for an existing named table.
	// Returns an error if the table has not been created.
	openTable(name string, dupSort bool) (engineTable, error)

	// createTable ensures the named table exists and returns its handle.
	// It reports whether the table was actually created (false if reused).
	// Only valid on writable transactions.
	createTable(name string, dupSort bool) (engineTable, bool, error)

	// commit makes the transaction's writes durable. For read transactions
	// it releases the snapshot. The transaction is unusable afterwards.
	commit() error

	// rollback discards the transaction. Safe to call after commit.
	rollback() error
}

// engineTable is a handle to one named table within a transaction.
// Handles are only valid for the lifetime of their transaction.
type engineTable interface {
	// get returns the stored value for key, or nil if absent.
	// For dup-sorted tables it returns the first value of the dup group.
	get(key []byte) []byte

	// put upserts a key/value pair. For dup-sorted tables it inserts the
	// value into the key's dup group (duplicate values are stored once).
	put(key, value []byte) error

	// del removes entries for key and reports whether anything was deleted.
	// With a non-nil value, only the exact key/value entry is removed
	// (the useful form for dup-sorted tables).
	del(key, value []byte) (bool, error)

	// clear removes every entry of the table.
	clear() error

	// cursor returns a cursor positioned before the first entry.
	cursor() engineCursor

	// entryCount returns the number of key/value entries using the engine's
	// statistics, not a scan.
	entryCount() int
}

// engineCursor iterates a table in key order; within a dup group, in value
// order. A nil key from any positioning call means exhaustion.
type engineCursor interface {
	// first moves to the first entry.
	first() (key, value []byte)

	// next moves to the next entry, descending into dup groups.
	next() (key, value []byte)

	// seek moves to the first entry with key >= seek.
	seek(seek []byte) (key, value []byte)

	// nextDup moves to the next value of the current key's dup group.
	// Returns nil at the end of the group without advancing past it.
	nextDup() (key, value []byte)

	// nextNoDup moves to the first value of the next distinct key.
	nextNoDup() (key, value []byte)
}
