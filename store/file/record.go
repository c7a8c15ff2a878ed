package file

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/bobg/illust"
)

// RecordSize is the size in bytes of one index record.
const RecordSize = 8

// MaxOffset is the largest data-file position an index record can express.
// No blob may end past it.
const MaxOffset = math.MaxUint32

// Record is one entry of the index file:
// the size of a blob and its starting offset in the data file.
// On disk it is Size then Offset, each a little-endian uint32.
type Record struct {
	Size   uint32
	Offset uint32
}

// NewRecord produces the Record for a blob of the given size at the given offset.
// It returns illust.ErrOverflow if either value does not fit in 32 bits.
func NewRecord(size, offset int64) (Record, error) {
	if size < 0 || size > math.MaxUint32 {
		return Record{}, errors.Wrapf(illust.ErrOverflow, "blob size %d", size)
	}
	if offset < 0 || offset > math.MaxUint32 {
		return Record{}, errors.Wrapf(illust.ErrOverflow, "data offset %d", offset)
	}
	return Record{Size: uint32(size), Offset: uint32(offset)}, nil
}

// End is the data-file position just past the blob.
func (r Record) End() int64 {
	return int64(r.Offset) + int64(r.Size)
}

// Put encodes r into the first RecordSize bytes of buf.
func (r Record) Put(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], r.Size)
	binary.LittleEndian.PutUint32(buf[4:8], r.Offset)
}

// Encode returns the RecordSize-byte encoding of r.
func (r Record) Encode() []byte {
	buf := make([]byte, RecordSize)
	r.Put(buf)
	return buf
}

// DecodeRecord is the inverse of Record.Encode.
// It reads the first RecordSize bytes of buf.
func DecodeRecord(buf []byte) (Record, error) {
	if len(buf) < RecordSize {
		return Record{}, errors.Errorf("short index record: %d bytes", len(buf))
	}
	return Record{
		Size:   binary.LittleEndian.Uint32(buf[0:4]),
		Offset: binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

func (r Record) String() string {
	return fmt.Sprintf("[%d,%d)", r.Offset, r.End())
}
