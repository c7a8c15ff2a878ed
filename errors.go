package illust

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is the error returned
	// when reading an identifier that is negative
	// or not less than the store's Count.
	ErrOutOfRange = errors.New("identifier out of range")

	// ErrOverflow is the error returned
	// when a blob's size or offset cannot be represented
	// in the 32-bit fields of an index record.
	// Nothing is written when this error is returned.
	ErrOverflow = errors.New("exceeds 32-bit index record limit")

	// ErrCorrupt is the error returned when the index
	// refers to bytes the data file does not have,
	// or when records overlap.
	ErrCorrupt = errors.New("corrupt store")

	// ErrNotFound is the error returned by lookups
	// (e.g. in a catalog)
	// for names that have no identifier.
	ErrNotFound = errors.New("not found")
)

// PathError reports that one of a store's files
// could not be opened or created,
// e.g. because of permissions or a missing parent directory.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("opening %s: %s", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// IOError reports that a read, write, sync, or stat
// of a store file failed partway through an operation.
// A write that fails with IOError did not produce an identifier,
// though some of its bytes may remain as an unreferenced tail of the data file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
