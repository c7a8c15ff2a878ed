package testutil

import (
	"context"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/bobg/illust"
)

// Sequential writes a random set of random blobs to an empty store, one at a time,
// and makes sure they receive identifiers 0, 1, 2, ... and read back intact.
func Sequential(ctx context.Context, t *testing.T, storeFactory func() illust.Store) {
	if err := quick.Check(sequentialHelper(ctx, t, storeFactory), nil); err != nil {
		t.Error(err)
	}
}

func sequentialHelper(ctx context.Context, t *testing.T, storeFactory func() illust.Store) func([][]byte) bool {
	return func(blobs [][]byte) bool {
		store := storeFactory()
		for i, blob := range blobs {
			id, err := store.Write(ctx, blob)
			if err != nil {
				t.Fatal(err)
			}
			if id != illust.ID(i) {
				t.Logf("blob %d got id %s", i, id)
				return false
			}
		}

		count, err := store.Count(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if count != int64(len(blobs)) {
			t.Logf("got count %d, want %d", count, len(blobs))
			return false
		}

		got, err := readAll(ctx, store)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(blobs, got, cmpopts.EquateEmpty()); diff != "" {
			t.Logf("mismatch (-want +got):\n%s", diff)
			return false
		}
		return true
	}
}

// Batch writes a random set of random blobs in two batches to one store,
// and one at a time to another,
// and makes sure both stores assign the same identifiers to the same blobs.
func Batch(ctx context.Context, t *testing.T, storeFactory func() illust.Store) {
	if err := quick.Check(batchHelper(ctx, t, storeFactory), nil); err != nil {
		t.Error(err)
	}
}

func batchHelper(ctx context.Context, t *testing.T, storeFactory func() illust.Store) func([][]byte, [][]byte) bool {
	return func(first, second [][]byte) bool {
		var (
			single = storeFactory()
			multi  = storeFactory()
			want   []illust.ID
			got    []illust.ID
		)

		for _, blobs := range [][][]byte{first, second} {
			for _, blob := range blobs {
				id, err := single.Write(ctx, blob)
				if err != nil {
					t.Fatal(err)
				}
				want = append(want, id)
			}

			ids, err := illust.WriteMulti(ctx, multi, toBlobs(blobs))
			if err != nil {
				t.Fatal(err)
			}
			if len(ids) != len(blobs) {
				t.Logf("WriteMulti returned %d ids for %d blobs", len(ids), len(blobs))
				return false
			}
			got = append(got, ids...)
		}

		if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Logf("id mismatch (-single +multi):\n%s", diff)
			return false
		}

		singleBlobs, err := readAll(ctx, single)
		if err != nil {
			t.Fatal(err)
		}
		multiBlobs, err := readAll(ctx, multi)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(singleBlobs, multiBlobs, cmpopts.EquateEmpty()); diff != "" {
			t.Logf("blob mismatch (-single +multi):\n%s", diff)
			return false
		}

		// Reading back in reverse order, with a duplicate, matches individual reads.
		if len(got) > 0 {
			ids := []illust.ID{got[0]}
			for i := len(got) - 1; i >= 0; i-- {
				ids = append(ids, got[i])
			}
			blobs, err := illust.ReadMulti(ctx, multi, ids)
			if err != nil {
				t.Fatal(err)
			}
			for i, id := range ids {
				b, err := multi.Read(ctx, id)
				if err != nil {
					t.Fatal(err)
				}
				if diff := cmp.Diff([]byte(b), []byte(blobs[i]), cmpopts.EquateEmpty()); diff != "" {
					t.Logf("ReadMulti mismatch at position %d (id %s) (-Read +ReadMulti):\n%s", i, id, diff)
					return false
				}
			}
		}

		return true
	}
}

// Truncate fills a store, truncates it,
// and makes sure it is empty and that identifiers start over at 0.
func Truncate(ctx context.Context, t *testing.T, store illust.Store) {
	tr, ok := store.(illust.Truncater)
	if !ok {
		t.Fatalf("store is a %T, which is not a Truncater", store)
	}

	for i := 0; i < 5; i++ {
		if _, err := store.Write(ctx, []byte("blob to be discarded")); err != nil {
			t.Fatal(err)
		}
	}

	if err := tr.Truncate(ctx); err != nil {
		t.Fatal(err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("after truncate got count %d, want 0", count)
	}

	id, err := store.Write(ctx, []byte("first again"))
	if err != nil {
		t.Fatal(err)
	}
	if id != 0 {
		t.Errorf("after truncate got id %s, want 0", id)
	}
	got, err := store.Read(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first again" {
		t.Errorf("after truncate read %q, want %q", got, "first again")
	}
}

func readAll(ctx context.Context, store illust.Store) ([][]byte, error) {
	count, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]illust.ID, count)
	for i := range ids {
		ids[i] = illust.ID(i)
	}
	blobs, err := illust.ReadMulti(ctx, store, ids)
	if err != nil {
		return nil, err
	}
	result := make([][]byte, len(blobs))
	for i, b := range blobs {
		result[i] = b
	}
	return result, nil
}

func toBlobs(bs [][]byte) []illust.Blob {
	result := make([]illust.Blob, len(bs))
	for i, b := range bs {
		result[i] = b
	}
	return result
}
