package tablekv

import (
	"fmt"
)

// TableSet is the closed, ordered enumeration of tables composing one
// schema. Building the set assigns each member its position, which sizes and
// indexes the per-transaction handle cache.
type TableSet struct {
	tables []TableDesc
	byName map[string]TableDesc
}

// NewTableSet builds a registry from the given descriptors. Names must be
// unique and a descriptor can belong to only one set; violations panic at
// construction, before any database is opened.
func NewTableSet(tables ...TableDesc) *TableSet {
	set := &TableSet{
		tables: make([]TableDesc, 0, len(tables)),
		byName: make(map[string]TableDesc, len(tables)),
	}
	for _, tbl := range tables {
		if set.byName[tbl.Name()] != nil {
			panic(fmt.Errorf("tablekv: duplicate table name %q", tbl.Name()))
		}
		tbl.join(set, len(set.tables))
		set.tables = append(set.tables, tbl)
		set.byName[tbl.Name()] = tbl
	}
	return set
}

// Len returns the number of tables in the set.
func (set *TableSet) Len() int {
	return len(set.tables)
}

// All returns the set's tables in declaration order.
func (set *TableSet) All() []TableDesc {
	return append([]TableDesc(nil), set.tables...)
}

// ByName maps a raw table name back to its descriptor.
func (set *TableSet) ByName(name string) (TableDesc, error) {
	tbl := set.byName[name]
	if tbl == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return tbl, nil
}

// CreateTables idempotently ensures every member's sub-database exists.
// It runs inside the given write transaction, so creation is atomic: either
// the commit makes all tables exist, or none of them take effect.
func (set *TableSet) CreateTables(tx *RWTx) error {
	for _, tbl := range set.tables {
		if err := CreateTable(tx, tbl); err != nil {
			return err
		}
	}
	return nil
}
