// Package testutil holds checks that any illust.Store implementation should pass.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobg/illust"
)

// ReadWrite permits testing a Store implementation
// by writing some data to it,
// then reading it back out to make sure it's the same.
// The store must be empty.
func ReadWrite(ctx context.Context, t *testing.T, store illust.Store, data []byte) {
	t1 := time.Now()
	id, err := store.Write(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("wrote %d bytes in %s", len(data), time.Since(t1))

	if id != 0 {
		t.Errorf("got id %s for the first write, want 0", id)
	}

	t2 := time.Now()
	got, err := store.Read(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("read %d bytes in %s", len(got), time.Since(t2))

	if len(got) != len(data) {
		t.Errorf("got length %d, want %d", len(got), len(data))
	} else {
		for i := 0; i < len(got); i++ {
			if got[i] != data[i] {
				t.Fatalf("mismatch at position %d (of %d)", i, len(got))
			}
		}
	}
}

// Scenario writes two small blobs to an empty store
// and reads them back singly and together.
func Scenario(ctx context.Context, t *testing.T, store illust.Store) {
	var (
		a = bytes.Repeat([]byte{0xaa}, 10)
		b = bytes.Repeat([]byte{0xbb}, 5)
	)

	idA, err := store.Write(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if idA != 0 {
		t.Errorf("got id %s for A, want 0", idA)
	}
	idB, err := store.Write(ctx, b)
	if err != nil {
		t.Fatal(err)
	}
	if idB != 1 {
		t.Errorf("got id %s for B, want 1", idB)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("got count %d, want 2", count)
	}

	got, err := store.Read(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, a) {
		t.Errorf("read(0) = %x, want %x", got, a)
	}
	got, err = store.Read(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, b) {
		t.Errorf("read(1) = %x, want %x", got, b)
	}

	both, err := illust.ReadMulti(ctx, store, []illust.ID{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(both) != 2 || !bytes.Equal(both[0], b) || !bytes.Equal(both[1], a) {
		t.Errorf("ReadMulti([1 0]) = %x, want [%x %x]", both, b, a)
	}
}

// OutOfRange checks that reads of nonexistent identifiers fail with illust.ErrOutOfRange,
// both on an empty store and on one with a few blobs.
func OutOfRange(ctx context.Context, t *testing.T, store illust.Store) {
	check := func(id illust.ID) {
		t.Helper()

		_, err := store.Read(ctx, id)
		if !errors.Is(err, illust.ErrOutOfRange) {
			t.Errorf("Read(%s): got error %v, want ErrOutOfRange", id, err)
		}
		_, err = illust.ReadMulti(ctx, store, []illust.ID{id})
		if !errors.Is(err, illust.ErrOutOfRange) {
			t.Errorf("ReadMulti([%s]): got error %v, want ErrOutOfRange", id, err)
		}
	}

	check(0)
	check(-1)

	for i := 0; i < 3; i++ {
		if _, err := store.Write(ctx, []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	check(-1)
	check(illust.ID(count))
	check(illust.ID(count) + 100)

	// One bad id spoils the batch.
	_, err = illust.ReadMulti(ctx, store, []illust.ID{0, 1, illust.ID(count)})
	if !errors.Is(err, illust.ErrOutOfRange) {
		t.Errorf("ReadMulti with one bad id: got error %v, want ErrOutOfRange", err)
	}
}
