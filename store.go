package illust

import "context"

// Getter is a read-only Store (qv).
type Getter interface {
	// Read gets the blob with the given identifier.
	// It returns ErrOutOfRange if id is negative
	// or not less than the number of blobs in the store.
	Read(context.Context, ID) (Blob, error)

	// Count tells the number of blobs in the store,
	// which is also the identifier the next write will receive.
	// The result may be stale as soon as it is returned
	// if writes are happening concurrently.
	Count(context.Context) (int64, error)
}

// Store is a blob store.
// It stores byte sequences - "blobs" - of arbitrary length.
// Each blob can be retrieved using the identifier returned when it was written.
//
// Implementations must serialize writes,
// so that no two writers ever receive the same identifier,
// and must be safe for concurrent use by multiple goroutines.
type Store interface {
	Getter

	// Write appends b to the store and returns its identifier.
	// The identifier equals the store's Count immediately before the write.
	// When Write returns successfully,
	// the blob is readable with Read.
	Write(context.Context, Blob) (ID, error)
}

// Truncater is a Store that can be reset to empty.
// Truncating destroys every blob and resets the next identifier to 0.
// It is meant for test setup and for the explicit "truncate" CLI command,
// not for production code paths.
type Truncater interface {
	Truncate(context.Context) error
}
