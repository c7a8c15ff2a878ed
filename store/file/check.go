package file

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/illust"
)

// Stats describes the state of a Store's files.
type Stats struct {
	Count     int64 // number of blobs
	IndexSize int64 // bytes in the index file
	DataSize  int64 // bytes in the data file

	// Tail is the number of data-file bytes after the end of the last blob.
	// It is nonzero only after an interrupted write.
	Tail int64
}

// Stat reports the sizes of the store's files
// and the length of any unreferenced tail of the data file.
func (s *Store) Stat(ctx context.Context) (Stats, error) {
	indexf, err := os.Open(s.index)
	if err != nil {
		return Stats{}, &illust.PathError{Path: s.index, Err: err}
	}
	defer indexf.Close()

	// The index is sized first,
	// so the data file is at least as long as every record it covers.
	indexSize, err := handleSize(indexf, s.index)
	if err != nil {
		return Stats{}, err
	}
	dataSize, err := s.DataSize(ctx)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		Count:     indexSize / RecordSize,
		IndexSize: indexSize,
		DataSize:  dataSize,
		Tail:      dataSize,
	}
	if st.Count == 0 {
		return st, nil
	}

	var buf [RecordSize]byte
	if _, err = indexf.ReadAt(buf[:], (st.Count-1)*RecordSize); err != nil {
		return Stats{}, &illust.IOError{Op: "read", Path: s.index, Err: err}
	}
	last, err := DecodeRecord(buf[:])
	if err != nil {
		return Stats{}, errors.Wrap(err, "decoding last record")
	}
	if last.End() > dataSize {
		return Stats{}, errors.Wrapf(illust.ErrCorrupt, "last record %s extends past the end of %s (%d bytes)", last, s.data, dataSize)
	}
	st.Tail = dataSize - last.End()
	return st, nil
}

// Check scans the whole index and verifies that every record lies within the data file
// and that records appear in increasing, non-overlapping order.
// Gaps between records are allowed:
// they are bytes left behind by interrupted writes.
// The first violation found is reported as an error wrapping illust.ErrCorrupt.
func (s *Store) Check(ctx context.Context) error {
	indexf, err := os.Open(s.index)
	if err != nil {
		return &illust.PathError{Path: s.index, Err: err}
	}
	defer indexf.Close()

	dataSize, err := s.DataSize(ctx)
	if err != nil {
		return err
	}

	var (
		r   = bufio.NewReader(indexf)
		buf [RecordSize]byte
		end int64
	)
	for id := illust.ID(0); ; id++ {
		_, err = io.ReadFull(r, buf[:])
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return &illust.IOError{Op: "read", Path: s.index, Err: err}
		}
		rec, err := DecodeRecord(buf[:])
		if err != nil {
			return errors.Wrapf(err, "decoding record %s", id)
		}
		if int64(rec.Offset) < end {
			return errors.Wrapf(illust.ErrCorrupt, "record %s %s overlaps its predecessor, which ends at %d", id, rec, end)
		}
		if rec.End() > dataSize {
			return errors.Wrapf(illust.ErrCorrupt, "record %s %s extends past the end of %s (%d bytes)", id, rec, s.data, dataSize)
		}
		end = rec.End()
	}
}
