package tablekv

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTable is returned when a table name does not belong to the set
// the database was opened with.
var ErrUnknownTable = errors.New("unknown table")

// ErrTxDone is returned when a transaction is used after Commit or Abort.
var ErrTxDone = errors.New("transaction already committed or aborted")

// ErrReadOnlyTx is returned by the engine when a mutation is attempted
// through a read-only engine transaction. The typed layer makes this
// unrepresentable (mutations require an RWTx), so seeing it indicates a bug.
var ErrReadOnlyTx = errors.New("transaction is read-only")

// ErrDatabaseClosed is returned when starting a transaction on a closed DB.
var ErrDatabaseClosed = errors.New("database is closed")

// OpenError wraps a failure to open or create the database environment.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("tablekv: opening %s: %v", e.Path, e.Err)
}

// VersionMismatchError reports that the on-disk format marker does not match
// this build. It is fatal to Open; there is no automatic migration.
type VersionMismatchError struct {
	OnDisk  int
	Current int
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("tablekv: database format version %d on disk, this build requires %d", e.OnDisk, e.Current)
}

// TableError carries the table name and encoded key of a failed read-side
// operation (lookup, decode, handle resolution).
type TableError struct {
	Table string
	Key   []byte
	Msg   string
	Err   error
}

func tableErrf(table string, key []byte, err error, format string, args ...any) error {
	return &TableError{table, key, fmt.Sprintf(format, args...), err}
}

func (e *TableError) Unwrap() error {
	return e.Err
}

func (e *TableError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Table)
	if e.Key != nil {
		fmt.Fprintf(&buf, "/%x", e.Key)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// WriteError carries structured context for a failed write: the operation
// kind, the table and the encoded key. The value is deliberately omitted to
// keep error payloads bounded.
type WriteError struct {
	Op    string // "put", "delete" or "clear"
	Table string
	Key   []byte
	Err   error
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

func (e *WriteError) Error() string {
	if e.Key == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("%s %s/%x: %v", e.Op, e.Table, e.Key, e.Err)
}
