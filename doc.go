// Package illust is an indexed blob store for image collections.
//
// A blob store stores arbitrarily sized sequences of bytes,
// or _blobs_,
// and hands back a small integer,
// the blob's _identifier_,
// for retrieving it later.
// Identifiers are dense and sequential:
// the first blob written to an empty store gets 0,
// the next gets 1,
// and so on.
// Nothing about a blob's content is inspected;
// an image file goes in as raw bytes and comes back out the same way.
//
// Blobs are never modified or deleted.
// The only mutation is append.
// (There is also a Truncate operation that empties a store completely,
// but it is meant for resetting test fixtures
// and is kept off the main Store interface.)
//
// The main implementation lives in the store/file subpackage.
// It keeps two files:
// an _index_ of fixed-width 8-byte records,
// each holding a blob's size and its offset in the data file;
// and the _data_ file itself,
// which is nothing but the concatenation of every blob in write order.
// Record i of the index describes blob i.
//
// Other subpackages supply an in-memory store,
// a caching layer,
// a logging layer,
// a SQL catalog mapping source filenames to identifiers,
// and a directory watcher that feeds newly created image files into a store.
package illust
