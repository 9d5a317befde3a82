/*
Package tablekv implements a typed table layer on top of an embedded
transactional key-value engine (in this case, on top of Bolt).

We implement:

1. Tables, strongly-typed key/value collections declared as package-level
descriptors binding a key codec, a value codec and a duplicate-sort policy
to a named sub-database.

2. Table sets, the closed enumeration of tables composing one schema.
A set can be materialized inside a freshly opened database and drives the
per-transaction table handle cache.

3. Transactions, read-only (Tx) and read-write (RWTx), exposing typed
Get/Put/Delete/Clear/Entries plus ordered cursors. Write capability is a
compile-time property: mutating operations only accept an RWTx.

4. Codecs (package codec), converting typed keys and values to storage
bytes. Values use either a portable self-describing encoding (msgpack) or
a zero-copy fixed-layout archive; both compose with an orthogonal
compression wrapper. Keys use order-preserving encodings so that cursor
iteration follows the natural key order.

# Technical Details

**Engine boundary.**
The core talks to the engine through a small internal interface: begin
read/write transaction, open/create named table, get/put/delete by raw
bytes, cursor, stats. Bolt is the production engine; a transient
in-memory engine backs tests. The engine is expected to provide MVCC
snapshots with a single writer and unlimited readers, which both do.

**Duplicate-sorted tables.**
Bolt has no native dup-sort, so a dup-sorted table stores a nested bucket
per key whose entries are the values themselves. Dup groups come back in
value order, and iterating the parent bucket yields keys in key order.

**Value encoding.**
A table's value bytes are exactly what its codec produced; there is no
extra header. Compressed codecs frame their payload as: 1-byte algorithm
tag, 8-byte xxh3 checksum, compressed bytes.

**On-disk layout.**
A database is a directory holding the engine file (data.db) and a format
version marker. Opening a non-empty directory with a mismatched marker
fails rather than guessing.
*/
package tablekv
