// Package lru implements a blob store that acts as a least-recently-used cache for a nested blob store.
package lru

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/illust"
	"github.com/bobg/illust/store"
)

var (
	_ illust.MultiWriter = &Store{}
	_ illust.MultiReader = &Store{}
	_ illust.Truncater   = &Store{}
)

// Store implements a memory-based least-recently-used cache for a blob store.
// Writes pass through to the underlying blob store.
// Since blobs never change once written,
// a cached blob is never stale
// unless the nested store is truncated behind this one's back.
type Store struct {
	c *lru.Cache // ID->Blob
	s illust.Store
}

// New produces a new Store backed by `s` and caching up to `size` blobs.
func New(s illust.Store, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{s: s, c: c}, err
}

// Read gets the blob with identifier `id`.
func (s *Store) Read(ctx context.Context, id illust.ID) (illust.Blob, error) {
	if got, ok := s.c.Get(id); ok {
		return clone(got.(illust.Blob)), nil
	}
	blob, err := s.s.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	s.c.Add(id, clone(blob))
	return blob, nil
}

// ReadMulti gets multiple blobs,
// consulting the nested store only for those not in the cache.
func (s *Store) ReadMulti(ctx context.Context, ids []illust.ID) ([]illust.Blob, error) {
	var (
		result  = make([]illust.Blob, len(ids))
		missing []illust.ID
		where   []int // positions in result of the ids in missing
	)
	for i, id := range ids {
		if got, ok := s.c.Get(id); ok {
			result[i] = clone(got.(illust.Blob))
			continue
		}
		missing = append(missing, id)
		where = append(where, i)
	}
	if len(missing) == 0 {
		return result, nil
	}

	blobs, err := illust.ReadMulti(ctx, s.s, missing)
	if err != nil {
		return nil, err
	}
	for j, blob := range blobs {
		result[where[j]] = blob
		s.c.Add(missing[j], clone(blob))
	}
	return result, nil
}

// Write adds a blob to the nested store and to the cache.
func (s *Store) Write(ctx context.Context, b illust.Blob) (illust.ID, error) {
	id, err := s.s.Write(ctx, b)
	if err != nil {
		return 0, err
	}
	s.c.Add(id, clone(b))
	return id, nil
}

// WriteMulti adds multiple blobs to the nested store and to the cache.
func (s *Store) WriteMulti(ctx context.Context, blobs []illust.Blob) ([]illust.ID, error) {
	ids, err := illust.WriteMulti(ctx, s.s, blobs)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		s.c.Add(id, clone(blobs[i]))
	}
	return ids, nil
}

// Count tells the number of blobs in the nested store.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.s.Count(ctx)
}

// Truncate truncates the nested store and empties the cache.
// It is an error if the nested store is not an illust.Truncater.
func (s *Store) Truncate(ctx context.Context) error {
	t, ok := s.s.(illust.Truncater)
	if !ok {
		return errors.Errorf("nested store is a %T and cannot be truncated", s.s)
	}
	defer s.c.Purge()
	return t.Truncate(ctx)
}

// Cached blobs are private copies, so callers cannot modify them.
func clone(b illust.Blob) illust.Blob {
	return append(illust.Blob{}, b...)
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (illust.Store, error) {
		size, ok := conf["size"].(int)
		if !ok {
			return nil, errors.New(`missing "size" parameter`)
		}
		nestedStore, err := store.CreateNested(ctx, conf, "nested")
		if err != nil {
			return nil, err
		}
		return New(nestedStore, size)
	})
}
