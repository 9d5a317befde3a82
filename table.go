package tablekv

import (
	"fmt"

	"github.com/jnoorchashm37/tablekv/codec"
)

// TableDesc is the untyped view of a table descriptor, used by the registry
// and by operations that don't touch keys or values (Clear, Entries,
// CreateTables). Only Table[K, V] implements it; the enumeration is closed.
type TableDesc interface {
	// Name is the unique, stable identifier of the table's sub-database.
	Name() string

	// DupSort reports whether the table permits multiple values per key.
	DupSort() bool

	// Pos is the table's position within its set, or -1 before the
	// descriptor joins a set. It indexes the per-transaction handle cache.
	Pos() int

	setOf() *TableSet
	join(set *TableSet, pos int)
}

// Table binds a key type and a value type to a named sub-database.
// Descriptors are immutable after their set is built and are meant to be
// declared as package-level vars, one per table:
//
//	var Accounts = tablekv.NewTable[uint64, Account]("accounts")
type Table[K, V any] struct {
	name    string
	dupSort bool
	keyEnc  codec.Codec[K]
	valEnc  codec.Codec[V]
	pos     int
	set     *TableSet
}

// TableOption configures a table descriptor at declaration time.
type TableOption[K, V any] func(*Table[K, V])

// DupSort marks the table as duplicate-sorted: a key maps to an ordered
// group of values.
func DupSort[K, V any]() TableOption[K, V] {
	return func(tbl *Table[K, V]) {
		tbl.dupSort = true
	}
}

// WithKeyCodec overrides the default key codec. The codec must be
// order-preserving.
func WithKeyCodec[K, V any](c codec.Codec[K]) TableOption[K, V] {
	return func(tbl *Table[K, V]) {
		tbl.keyEnc = c
	}
}

// WithValueCodec overrides the default portable value codec, e.g. with
// codec.Archive or a codec.Compressed wrapper.
func WithValueCodec[K, V any](c codec.Codec[V]) TableOption[K, V] {
	return func(tbl *Table[K, V]) {
		tbl.valEnc = c
	}
}

// NewTable declares a table. Keys default to the order-preserving codec for
// K's kind (NewTable panics if there is none); values default to the
// portable codec.
func NewTable[K, V any](name string, opts ...TableOption[K, V]) *Table[K, V] {
	if name == "" {
		panic("tablekv: table name must not be empty")
	}
	tbl := &Table[K, V]{name: name, pos: -1}
	for _, opt := range opts {
		opt(tbl)
	}
	if tbl.keyEnc == nil {
		tbl.keyEnc = codec.KeyOf[K]()
	}
	if tbl.valEnc == nil {
		tbl.valEnc = codec.Portable[V]()
	}
	return tbl
}

func (tbl *Table[K, V]) Name() string {
	return tbl.name
}

func (tbl *Table[K, V]) DupSort() bool {
	return tbl.dupSort
}

func (tbl *Table[K, V]) Pos() int {
	return tbl.pos
}

func (tbl *Table[K, V]) String() string {
	return tbl.name
}

// EncodeKey returns the encoded form of key, mostly useful in diagnostics.
func (tbl *Table[K, V]) EncodeKey(key K) []byte {
	return tbl.keyEnc.Encode(nil, key)
}

func (tbl *Table[K, V]) setOf() *TableSet {
	return tbl.set
}

func (tbl *Table[K, V]) join(set *TableSet, pos int) {
	if tbl.set != nil {
		panic(fmt.Errorf("table %s already belongs to a set", tbl.name))
	}
	tbl.set = set
	tbl.pos = pos
}
