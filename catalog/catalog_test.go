package catalog

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/illust"
)

func TestSqlite(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	testCatalog(ctx, t, c)
}

const connVar = "ILLUST_PG_TESTING_CONN"

func TestPostgres(t *testing.T) {
	connstr := os.Getenv(connVar)
	if connstr == "" {
		t.Skipf("to run %s, set %s to a valid Postgresql connection string", t.Name(), connVar)
	}

	db, err := sql.Open("postgres", connstr)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	c, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if err = c.Reset(ctx); err != nil {
		t.Fatal(err)
	}

	testCatalog(ctx, t, c)
}

func testCatalog(ctx context.Context, t *testing.T, c *Catalog) {
	if _, err := c.Lookup(ctx, "/pics/a.jpg"); !errors.Is(err, illust.ErrNotFound) {
		t.Fatalf("got error %v looking up in an empty catalog, want ErrNotFound", err)
	}

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	adds := []Entry{
		{Path: "/pics/c.png", ID: 2, Added: at.Add(2 * time.Second)},
		{Path: "/pics/a.jpg", ID: 0, Added: at},
		{Path: "/pics/b.jpeg", ID: 1, Added: at.Add(time.Second)},
	}
	for _, e := range adds {
		if err := c.Add(ctx, e.Path, e.ID, e.Added); err != nil {
			t.Fatal(err)
		}
	}

	id, err := c.Lookup(ctx, "/pics/b.jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Errorf("got id %s, want 1", id)
	}

	var got []Entry
	err = c.List(ctx, func(e Entry) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []Entry{adds[1], adds[2], adds[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	// Adding a path again replaces its identifier.
	if err = c.Add(ctx, "/pics/a.jpg", 3, at); err != nil {
		t.Fatal(err)
	}
	id, err = c.Lookup(ctx, "/pics/a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if id != 3 {
		t.Errorf("got id %s after re-adding, want 3", id)
	}

	if err = c.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	var n int
	err = c.List(ctx, func(Entry) error {
		n++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("got %d entries after reset, want 0", n)
	}
}
