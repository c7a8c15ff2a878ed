package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bobg/illust"
	"github.com/bobg/illust/catalog"
	"github.com/bobg/illust/store/mem"
)

func TestMatch(t *testing.T) {
	cases := map[string]bool{
		"a.jpg":          true,
		"a.JPG":          true,
		"dir/b.jpeg":     true,
		"c.png":          true,
		"d.large_jpg":    true,
		"e.Large_Jpeg":   true,
		"f.large_png":    true,
		"g.gif":          false,
		"h.jpg.txt":      false,
		"jpg":            false,
		"noext":          false,
		"/x/y.png/z.txt": false,
	}
	for path, want := range cases {
		require.Equal(t, want, Match(path), path)
	}
}

func newCatalog(t *testing.T) *catalog.Catalog {
	c, err := catalog.Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestHandle(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()
		s   = mem.New()
		cat = newCatalog(t)
		w   = New(s, WithCatalog(cat), WithBackoff(time.Second))
	)
	defer w.Close()

	img := filepath.Join(dir, "one.png")
	writeFile(t, img, "png bytes")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not an image")

	id, stored, err := w.Handle(ctx, img)
	require.NoError(t, err)
	require.True(t, stored)
	require.Equal(t, illust.ID(0), id)

	got, err := s.Read(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "png bytes", string(got))

	catID, err := cat.Lookup(ctx, img)
	require.NoError(t, err)
	require.Equal(t, id, catID)

	// Already catalogued.
	_, stored, err = w.Handle(ctx, img)
	require.NoError(t, err)
	require.False(t, stored)

	// Not an image.
	_, stored, err = w.Handle(ctx, filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	require.False(t, stored)

	// Gone.
	_, _, err = w.Handle(ctx, filepath.Join(dir, "missing.jpg"))
	require.ErrorIs(t, err, os.ErrNotExist)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestHandleEmptyFile(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()
		w   = New(mem.New(), WithBackoff(100*time.Millisecond))
	)
	defer w.Close()

	img := filepath.Join(dir, "empty.jpg")
	writeFile(t, img, "")

	_, stored, err := w.Handle(ctx, img)
	require.Error(t, err)
	require.False(t, stored)
}

func TestIngest(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()
		s   = mem.New()
		cat = newCatalog(t)
		w   = New(s, WithCatalog(cat))
	)
	defer w.Close()

	writeFile(t, filepath.Join(dir, "b.jpg"), "bee")
	writeFile(t, filepath.Join(dir, "a.png"), "ay")
	writeFile(t, filepath.Join(dir, "sub", "c.JPEG"), "see")
	writeFile(t, filepath.Join(dir, "sub", "skip.gif"), "nope")

	ids, err := w.Ingest(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, []illust.ID{0, 1, 2}, ids)

	blobs, err := illust.ReadMulti(ctx, s, ids)
	require.NoError(t, err)
	require.Equal(t, []string{"ay", "bee", "see"}, []string{string(blobs[0]), string(blobs[1]), string(blobs[2])})

	id, err := cat.Lookup(ctx, filepath.Join(dir, "sub", "c.JPEG"))
	require.NoError(t, err)
	require.Equal(t, illust.ID(2), id)

	// A second ingest stores only new files.
	writeFile(t, filepath.Join(dir, "d.large_png"), "dee")
	ids, err = w.Ingest(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, []illust.ID{3}, ids)

	ids, err = w.Ingest(ctx, dir)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestDirs(t *testing.T) {
	var (
		a = t.TempDir()
		b = t.TempDir()
		w = New(mem.New())
	)
	defer w.Close()

	require.NoError(t, w.AddDir(b))
	require.NoError(t, w.AddDir(a))
	require.NoError(t, w.AddDir(a))

	want := []string{a, b}
	if b < a {
		want = []string{b, a}
	}
	require.Equal(t, want, w.Dirs())

	require.NoError(t, w.RemoveDir(a))
	require.NoError(t, w.RemoveDir(a))
	require.Equal(t, []string{b}, w.Dirs())

	require.Error(t, w.AddDir(filepath.Join(a, "does-not-exist")))

	file := filepath.Join(b, "file.png")
	writeFile(t, file, "x")
	require.Error(t, w.AddDir(file))
}

func TestWatch(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()
		s   = mem.New()
		cat = newCatalog(t)
		w   = New(s, WithCatalog(cat), WithBackoff(5*time.Second))
	)

	require.NoError(t, w.AddDir(dir))

	img := filepath.Join(dir, "new.jpg")
	writeFile(t, img, "fresh jpeg")
	writeFile(t, filepath.Join(dir, "ignored.txt"), "text")

	require.Eventually(t, func() bool {
		_, err := cat.Lookup(ctx, img)
		return err == nil
	}, 10*time.Second, 50*time.Millisecond)

	require.NoError(t, w.Close())
	require.Empty(t, w.Dirs())

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	got, err := s.Read(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "fresh jpeg", string(got))
}

func TestIngestEmptyFile(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()
		s   = mem.New()
		cat = newCatalog(t)
		w   = New(s, WithCatalog(cat))
	)
	defer w.Close()

	writeFile(t, filepath.Join(dir, "a.png"), "ay")
	writeFile(t, filepath.Join(dir, "empty.jpg"), "")

	start := time.Now()
	ids, err := w.Ingest(ctx, dir)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
	require.Equal(t, []illust.ID{0}, ids)

	_, err = cat.Lookup(ctx, filepath.Join(dir, "empty.jpg"))
	require.ErrorIs(t, err, illust.ErrNotFound)

	// Once it has content, the next ingest picks it up.
	writeFile(t, filepath.Join(dir, "empty.jpg"), "jay")
	ids, err = w.Ingest(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, []illust.ID{1}, ids)
}

func TestIngestRacesHandle(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()
		s   = mem.New()
		cat = newCatalog(t)
		w   = New(s, WithCatalog(cat))
	)
	defer w.Close()

	var (
		a = filepath.Join(dir, "a.png")
		b = filepath.Join(dir, "b.png")
	)
	writeFile(t, a, "ay")
	writeFile(t, b, "bee")

	// Hold the write lock so the ingest stops before writing,
	// then store b the way Handle would.
	w.writeMu.Lock()

	type result struct {
		ids []illust.ID
		err error
	}
	ch := make(chan result, 1)
	go func() {
		ids, err := w.Ingest(ctx, dir)
		ch <- result{ids: ids, err: err}
	}()

	time.Sleep(200 * time.Millisecond)

	id, err := s.Write(ctx, illust.Blob("bee"))
	require.NoError(t, err)
	require.NoError(t, cat.Add(ctx, b, id, time.Now()))
	w.writeMu.Unlock()

	res := <-ch
	require.NoError(t, res.err)
	require.Equal(t, []illust.ID{1}, res.ids)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	got, err := s.Read(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "ay", string(got))
}
