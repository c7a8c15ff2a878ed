package illust

import "strconv"

type (
	// Blob is the type of a blob.
	Blob []byte

	// ID is the identifier of a blob:
	// its zero-based position in write order.
	ID int64
)

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses the decimal string form of an ID.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	return ID(n), err
}

// InRange tells whether id names one of the first count blobs.
func (id ID) InRange(count int64) bool {
	return id >= 0 && int64(id) < count
}
