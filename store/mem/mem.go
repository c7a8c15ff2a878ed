// Package mem implements an in-memory blob store.
package mem

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/bobg/illust"
	"github.com/bobg/illust/store"
)

var (
	_ illust.MultiWriter = &Store{}
	_ illust.MultiReader = &Store{}
	_ illust.Truncater   = &Store{}
)

// Store is a memory-based implementation of a blob store.
// Blobs are copied on the way in and on the way out,
// so callers cannot modify stored blobs.
type Store struct {
	mu    sync.Mutex
	blobs []illust.Blob
}

// New produces a new, empty Store.
func New() *Store {
	return &Store{}
}

// Read gets the blob with the given identifier.
func (s *Store) Read(_ context.Context, id illust.ID) (illust.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// Caller must obtain a lock.
func (s *Store) read(id illust.ID) (illust.Blob, error) {
	if !id.InRange(int64(len(s.blobs))) {
		return nil, errors.Wrapf(illust.ErrOutOfRange, "reading blob %s (count %d)", id, len(s.blobs))
	}
	return clone(s.blobs[id]), nil
}

// ReadMulti gets multiple blobs in one call.
func (s *Store) ReadMulti(_ context.Context, ids []illust.ID) ([]illust.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]illust.Blob, 0, len(ids))
	for _, id := range ids {
		blob, err := s.read(id)
		if err != nil {
			return nil, err
		}
		result = append(result, blob)
	}
	return result, nil
}

// Write appends a blob to the store.
func (s *Store) Write(_ context.Context, b illust.Blob) (illust.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(b), nil
}

// Caller must obtain a lock.
func (s *Store) write(b illust.Blob) illust.ID {
	id := illust.ID(len(s.blobs))
	s.blobs = append(s.blobs, clone(b))
	return id
}

// WriteMulti appends multiple blobs to the store in one call.
func (s *Store) WriteMulti(_ context.Context, blobs []illust.Blob) ([]illust.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]illust.ID, 0, len(blobs))
	for _, b := range blobs {
		result = append(result, s.write(b))
	}
	return result, nil
}

// Count tells the number of blobs in the store.
func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.blobs)), nil
}

// Truncate discards all blobs.
func (s *Store) Truncate(_ context.Context) error {
	s.mu.Lock()
	s.blobs = nil
	s.mu.Unlock()
	return nil
}

func clone(b illust.Blob) illust.Blob {
	return append(illust.Blob{}, b...)
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (illust.Store, error) {
		return New(), nil
	})
}
