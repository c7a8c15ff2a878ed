package illust

import "context"

// MultiReader is a Getter that can read many blobs in one call.
type MultiReader interface {
	Getter

	// ReadMulti returns the blobs for ids, in the same order.
	// Duplicates are allowed.
	// If any id is out of range,
	// the whole call fails with ErrOutOfRange.
	ReadMulti(context.Context, []ID) ([]Blob, error)
}

// MultiWriter is a Store that can write many blobs in one call.
type MultiWriter interface {
	Store

	// WriteMulti appends blobs to the store in order
	// and returns their identifiers,
	// which are contiguous starting at the store's pre-call Count.
	// It is all-or-nothing:
	// on error no identifiers are returned,
	// and the caller must not assume any of the blobs was stored.
	WriteMulti(context.Context, []Blob) ([]ID, error)
}

// ReadMulti reads multiple blobs with a single call.
// If g implements MultiReader, its ReadMulti method is used.
// Otherwise this is a sequence of individual Read calls.
// The result has one blob per input id, in input order.
func ReadMulti(ctx context.Context, g Getter, ids []ID) ([]Blob, error) {
	if m, ok := g.(MultiReader); ok {
		return m.ReadMulti(ctx, ids)
	}

	res := make([]Blob, 0, len(ids))
	for _, id := range ids {
		blob, err := g.Read(ctx, id)
		if err != nil {
			return nil, err
		}
		res = append(res, blob)
	}
	return res, nil
}

// WriteMulti stores multiple blobs with a single call.
// If s implements MultiWriter, its WriteMulti method is used,
// giving all-or-nothing semantics and contiguous identifiers.
// Otherwise this is a sequence of individual Write calls,
// and a failure partway through leaves the earlier blobs stored;
// their identifiers are still not returned.
func WriteMulti(ctx context.Context, s Store, blobs []Blob) ([]ID, error) {
	if m, ok := s.(MultiWriter); ok {
		return m.WriteMulti(ctx, blobs)
	}

	res := make([]ID, 0, len(blobs))
	for _, blob := range blobs {
		id, err := s.Write(ctx, blob)
		if err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, nil
}
