// Package file implements a blob store as a pair of files:
// an index of fixed-width records
// and an append-only data file.
//
// Index record i occupies bytes [8i, 8i+8) of the index file.
// It holds the size of blob i
// and the offset of its first byte in the data file,
// each as a little-endian uint32.
// The data file is the concatenation of all blobs in write order,
// with no header, delimiter, or padding.
// Neither file has a header,
// so the number of blobs is the index length divided by 8.
//
// Because sizes and offsets are 32 bits,
// a data file cannot grow past 4 GiB.
// A write that would cross that limit fails with illust.ErrOverflow
// before any bytes are written.
//
// Every write puts its blob bytes in the data file and syncs them
// before writing and syncing the index record that refers to them.
// A crash between the two steps leaves unreferenced bytes at the end of the data file,
// which are harmless:
// the next write simply lands after them.
// It never leaves an index record pointing at bytes that were not written.
//
// File handles are opened for the duration of a single operation.
// Writes and truncation are serialized by a mutex in the Store;
// reads take no lock.
// Coordination among multiple processes sharing the same files is not supported.
package file

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/illust"
	"github.com/bobg/illust/store"
)

var (
	_ illust.MultiWriter = &Store{}
	_ illust.MultiReader = &Store{}
	_ illust.Truncater   = &Store{}
)

// Store is a two-file implementation of a blob store.
type Store struct {
	index, data string

	mu sync.Mutex // serializes Write, WriteMulti, and Truncate
}

// New produces a new Store keeping its index at indexPath and its blobs at dataPath.
// Either file is created empty if it does not exist.
// Existing contents are preserved.
// The error is an *illust.PathError if either file cannot be opened or created.
func New(indexPath, dataPath string) (*Store, error) {
	for _, path := range []string{indexPath, dataPath} {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return nil, &illust.PathError{Path: path, Err: err}
		}
		if err = f.Close(); err != nil {
			return nil, &illust.PathError{Path: path, Err: err}
		}
	}
	return &Store{index: indexPath, data: dataPath}, nil
}

// IndexPath is the path of the index file.
func (s *Store) IndexPath() string { return s.index }

// DataPath is the path of the data file.
func (s *Store) DataPath() string { return s.data }

// IndexSize is the current length in bytes of the index file.
func (s *Store) IndexSize(_ context.Context) (int64, error) {
	return statSize(s.index)
}

// DataSize is the current length in bytes of the data file.
func (s *Store) DataSize(_ context.Context) (int64, error) {
	return statSize(s.data)
}

// Count is the number of complete records in the index,
// i.e. the number of blobs and the next identifier to assign.
func (s *Store) Count(ctx context.Context) (int64, error) {
	size, err := s.IndexSize(ctx)
	return size / RecordSize, err
}

// Write appends a blob to the store and returns its identifier.
func (s *Store) Write(_ context.Context, b illust.Blob) (illust.ID, error) {
	return s.append([]illust.Blob{b})
}

// WriteMulti appends multiple blobs to the store.
// The blobs' bytes are written as one contiguous region of the data file, in order,
// followed by all of their index records.
// The returned identifiers are contiguous.
// On error no identifiers are returned.
func (s *Store) WriteMulti(_ context.Context, blobs []illust.Blob) ([]illust.ID, error) {
	if len(blobs) == 0 {
		return []illust.ID{}, nil
	}
	first, err := s.append(blobs)
	if err != nil {
		return nil, err
	}
	ids := make([]illust.ID, len(blobs))
	for i := range blobs {
		ids[i] = first + illust.ID(i)
	}
	return ids, nil
}

// Must be called with len(blobs) > 0.
func (s *Store) append(blobs []illust.Blob) (illust.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dataf, err := os.OpenFile(s.data, os.O_WRONLY, 0)
	if err != nil {
		return 0, &illust.PathError{Path: s.data, Err: err}
	}
	defer dataf.Close()

	indexf, err := os.OpenFile(s.index, os.O_WRONLY, 0)
	if err != nil {
		return 0, &illust.PathError{Path: s.index, Err: err}
	}
	defer indexf.Close()

	offset, err := handleSize(dataf, s.data)
	if err != nil {
		return 0, err
	}
	indexSize, err := handleSize(indexf, s.index)
	if err != nil {
		return 0, err
	}

	// A partial record at the end of the index is the remains of an interrupted write.
	// It was never committed, so the new records overwrite it.
	next := indexSize / RecordSize

	var (
		records = make([]byte, len(blobs)*RecordSize)
		pos     = offset
	)
	for i, b := range blobs {
		rec, err := NewRecord(int64(len(b)), pos)
		if err != nil {
			return 0, errors.Wrapf(err, "blob %d of %d", i+1, len(blobs))
		}
		if rec.End() > MaxOffset {
			return 0, errors.Wrapf(illust.ErrOverflow, "blob %d of %d would end at %d", i+1, len(blobs), rec.End())
		}
		rec.Put(records[i*RecordSize:])
		pos = rec.End()
	}

	pos = offset
	for _, b := range blobs {
		if _, err = dataf.WriteAt(b, pos); err != nil {
			return 0, &illust.IOError{Op: "write", Path: s.data, Err: err}
		}
		pos += int64(len(b))
	}
	if err = dataf.Sync(); err != nil {
		return 0, &illust.IOError{Op: "sync", Path: s.data, Err: err}
	}

	if _, err = indexf.WriteAt(records, next*RecordSize); err != nil {
		return 0, s.rollback(indexf, next, &illust.IOError{Op: "write", Path: s.index, Err: err})
	}
	if err = indexf.Sync(); err != nil {
		return 0, s.rollback(indexf, next, &illust.IOError{Op: "sync", Path: s.index, Err: err})
	}

	return illust.ID(next), nil
}

// rollback cuts the index back to its first next records after a failed index write,
// so that no record of the failed call stays reachable.
// It returns cause, annotated if the rollback itself failed.
// Caller must obtain a lock.
func (s *Store) rollback(indexf *os.File, next int64, cause error) error {
	if err := indexf.Truncate(next * RecordSize); err != nil {
		return errors.Wrapf(cause, "also failed truncating %s back to %d records (%s)", s.index, next, err)
	}
	if err := indexf.Sync(); err != nil {
		return errors.Wrapf(cause, "also failed syncing %s after truncating (%s)", s.index, err)
	}
	return cause
}

// Read gets the blob with the given identifier.
func (s *Store) Read(_ context.Context, id illust.ID) (illust.Blob, error) {
	indexf, err := os.Open(s.index)
	if err != nil {
		return nil, &illust.PathError{Path: s.index, Err: err}
	}
	defer indexf.Close()

	indexSize, err := handleSize(indexf, s.index)
	if err != nil {
		return nil, err
	}
	count := indexSize / RecordSize
	if !id.InRange(count) {
		return nil, errors.Wrapf(illust.ErrOutOfRange, "reading blob %s (count %d)", id, count)
	}

	var buf [RecordSize]byte
	if _, err = indexf.ReadAt(buf[:], int64(id)*RecordSize); err != nil {
		return nil, &illust.IOError{Op: "read", Path: s.index, Err: err}
	}
	rec, err := DecodeRecord(buf[:])
	if err != nil {
		return nil, errors.Wrapf(err, "decoding record %s", id)
	}

	dataf, err := os.Open(s.data)
	if err != nil {
		return nil, &illust.PathError{Path: s.data, Err: err}
	}
	defer dataf.Close()

	blob, err := readBlob(dataf, s.data, rec)
	return blob, errors.Wrapf(err, "reading blob %s", id)
}

// ReadMulti gets the blobs with the given identifiers, in the same order.
// All index records are resolved first, in one pass;
// then the blobs are fetched concurrently.
// If any identifier is out of range, nothing is read.
func (s *Store) ReadMulti(_ context.Context, ids []illust.ID) ([]illust.Blob, error) {
	if len(ids) == 0 {
		return []illust.Blob{}, nil
	}

	records, err := s.resolve(ids)
	if err != nil {
		return nil, err
	}

	dataf, err := os.Open(s.data)
	if err != nil {
		return nil, &illust.PathError{Path: s.data, Err: err}
	}
	defer dataf.Close()

	var (
		res = make([]illust.Blob, len(ids))
		eg  errgroup.Group
	)
	eg.SetLimit(maxConcurrentReads)
	for i, rec := range records {
		i, rec := i, rec
		eg.Go(func() error {
			blob, err := readBlob(dataf, s.data, rec)
			if err != nil {
				return errors.Wrapf(err, "reading blob %s", ids[i])
			}
			res[i] = blob
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

const maxConcurrentReads = 16

// resolve maps the index read-only and decodes the record for each of ids.
func (s *Store) resolve(ids []illust.ID) ([]Record, error) {
	indexf, err := os.Open(s.index)
	if err != nil {
		return nil, &illust.PathError{Path: s.index, Err: err}
	}
	defer indexf.Close()

	indexSize, err := handleSize(indexf, s.index)
	if err != nil {
		return nil, err
	}
	if indexSize < RecordSize {
		// Nothing to map, and every id is out of range.
		return nil, errors.Wrapf(illust.ErrOutOfRange, "reading blob %s (count 0)", ids[0])
	}

	m, err := mmap.Map(indexf, mmap.RDONLY, 0)
	if err != nil {
		return nil, &illust.IOError{Op: "mmap", Path: s.index, Err: err}
	}
	defer m.Unmap()

	count := int64(len(m)) / RecordSize
	records := make([]Record, len(ids))
	for i, id := range ids {
		if !id.InRange(count) {
			return nil, errors.Wrapf(illust.ErrOutOfRange, "reading blob %s (count %d)", id, count)
		}
		pos := int64(id) * RecordSize
		records[i], err = DecodeRecord(m[pos : pos+RecordSize])
		if err != nil {
			return nil, errors.Wrapf(err, "decoding record %s", id)
		}
	}
	return records, nil
}

// Truncate empties both files, creating them if needed,
// destroying every blob and resetting the next identifier to 0.
// It is meant for resetting test fixtures.
func (s *Store) Truncate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Index first, so that no record ever refers to missing data.
	for _, path := range []string{s.index, s.data} {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return &illust.PathError{Path: path, Err: err}
		}
		err = f.Sync()
		f.Close()
		if err != nil {
			return &illust.IOError{Op: "sync", Path: path, Err: err}
		}
	}
	return nil
}

func readBlob(f io.ReaderAt, path string, rec Record) (illust.Blob, error) {
	blob := make(illust.Blob, rec.Size)
	_, err := f.ReadAt(blob, int64(rec.Offset))
	if errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(illust.ErrCorrupt, "record %s extends past the end of %s", rec, path)
	}
	if err != nil {
		return nil, &illust.IOError{Op: "read", Path: path, Err: err}
	}
	return blob, nil
}

func statSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, &illust.IOError{Op: "stat", Path: path, Err: err}
	}
	return info.Size(), nil
}

func handleSize(f *os.File, path string) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, &illust.IOError{Op: "stat", Path: path, Err: err}
	}
	return info.Size(), nil
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (illust.Store, error) {
		index, ok := conf["index"].(string)
		if !ok {
			return nil, errors.New(`missing "index" parameter`)
		}
		data, ok := conf["data"].(string)
		if !ok {
			return nil, errors.New(`missing "data" parameter`)
		}
		return New(index, data)
	})
}
