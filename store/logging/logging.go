// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/bobg/illust"
	"github.com/bobg/illust/store"
)

var (
	_ illust.MultiWriter = &Store{}
	_ illust.MultiReader = &Store{}
	_ illust.Truncater   = &Store{}
)

type Store struct {
	s illust.Store
}

func New(s illust.Store) *Store {
	return &Store{s: s}
}

func (s *Store) Read(ctx context.Context, id illust.ID) (illust.Blob, error) {
	b, err := s.s.Read(ctx, id)
	if err != nil {
		log.Printf("ERROR Read %s: %s", id, err)
	} else {
		log.Printf("Read %s, %d bytes", id, len(b))
	}
	return b, err
}

func (s *Store) ReadMulti(ctx context.Context, ids []illust.ID) ([]illust.Blob, error) {
	blobs, err := illust.ReadMulti(ctx, s.s, ids)
	if err != nil {
		log.Printf("ERROR in ReadMulti %v: %s", ids, err)
	} else {
		log.Printf("ReadMulti %v", ids)
	}
	return blobs, err
}

func (s *Store) Write(ctx context.Context, b illust.Blob) (illust.ID, error) {
	id, err := s.s.Write(ctx, b)
	if err != nil {
		log.Printf("ERROR in Write (%d bytes): %s", len(b), err)
	} else {
		log.Printf("Write %s, %d bytes", id, len(b))
	}
	return id, err
}

func (s *Store) WriteMulti(ctx context.Context, blobs []illust.Blob) ([]illust.ID, error) {
	ids, err := illust.WriteMulti(ctx, s.s, blobs)
	if err != nil {
		log.Printf("ERROR in WriteMulti (%d blobs): %s", len(blobs), err)
	} else {
		log.Printf("WriteMulti %v", ids)
	}
	return ids, err
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.s.Count(ctx)
	if err != nil {
		log.Printf("ERROR in Count: %s", err)
	}
	return n, err
}

func (s *Store) Truncate(ctx context.Context) error {
	t, ok := s.s.(illust.Truncater)
	if !ok {
		err := errors.Errorf("nested store is a %T and cannot be truncated", s.s)
		log.Printf("ERROR in Truncate: %s", err)
		return err
	}
	err := t.Truncate(ctx)
	if err != nil {
		log.Printf("ERROR in Truncate: %s", err)
	} else {
		log.Print("Truncate")
	}
	return err
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (illust.Store, error) {
		nestedStore, err := store.CreateNested(ctx, conf, "nested")
		if err != nil {
			return nil, err
		}
		return New(nestedStore), nil
	})
}
