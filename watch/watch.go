// Package watch adds image files to a blob store as they appear in watched directories.
package watch

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rjeczalik/notify"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/illust"
	"github.com/bobg/illust/catalog"
)

// Extensions are the file extensions (lowercase, with the dot) of the files a Watcher handles.
var Extensions = []string{".jpg", ".jpeg", ".png", ".large_jpg", ".large_jpeg", ".large_png"}

// Match tells whether path has one of the Extensions, ignoring case.
func Match(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

const (
	defaultMaxElapsed  = 30 * time.Second
	maxConcurrentReads = 8
)

// Watcher writes the contents of image files to a store.
// It can watch directory trees for new files,
// and it can ingest the files already present in a tree.
// If it has a catalog,
// each file's path is recorded with its identifier
// and files already recorded are skipped.
type Watcher struct {
	s          illust.Store
	cat        *catalog.Catalog
	maxElapsed time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex // protects dirs
	dirs map[string]*dirWatch

	writeMu sync.Mutex // serializes catalog check, store write, and catalog add

	wg sync.WaitGroup
}

type dirWatch struct {
	ch   chan notify.EventInfo
	done chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithCatalog makes the Watcher record each file it stores in c,
// and skip files c already has.
func WithCatalog(c *catalog.Catalog) Option {
	return func(w *Watcher) {
		w.cat = c
	}
}

// WithBackoff sets how long the Watcher keeps retrying a file that cannot be read yet,
// e.g. because another process is still writing it.
// Defaults to 30 seconds.
func WithBackoff(maxElapsed time.Duration) Option {
	return func(w *Watcher) {
		w.maxElapsed = maxElapsed
	}
}

// New produces a new Watcher writing to s.
func New(s illust.Store, opts ...Option) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		s:          s,
		maxElapsed: defaultMaxElapsed,
		ctx:        ctx,
		cancel:     cancel,
		dirs:       make(map[string]*dirWatch),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddDir starts watching the tree rooted at dir for new files.
// It is an error if dir is not an existing directory.
// Adding a directory that is already watched does nothing.
func (w *Watcher) AddDir(dir string) error {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrapf(err, "adding watch on %s", dir)
	}
	if !info.IsDir() {
		return errors.Errorf("adding watch on %s: not a directory", dir)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return errors.New("watcher is closed")
	}
	if _, ok := w.dirs[dir]; ok {
		return nil
	}

	dw := &dirWatch{
		ch:   make(chan notify.EventInfo, 100),
		done: make(chan struct{}),
	}
	if err = notify.Watch(dir+"/...", dw.ch, notify.Create, notify.Rename); err != nil {
		return errors.Wrapf(err, "watching %s/...", dir)
	}
	w.dirs[dir] = dw

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(dir, dw)
	}()

	log.Printf("watching %s", dir)
	return nil
}

func (w *Watcher) run(dir string, dw *dirWatch) {
	for {
		select {
		case <-dw.done:
			return

		case ev := <-dw.ch:
			path := ev.Path()
			id, stored, err := w.Handle(w.ctx, path)
			if err != nil {
				log.Printf("ERROR handling %s in %s: %s", path, dir, err)
				continue
			}
			if stored {
				log.Printf("stored %s as blob %s", path, id)
			}
		}
	}
}

// RemoveDir stops watching dir.
// Removing a directory that is not watched does nothing.
func (w *Watcher) RemoveDir(dir string) error {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", dir)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dw, ok := w.dirs[dir]
	if !ok {
		return nil
	}
	notify.Stop(dw.ch)
	close(dw.done)
	delete(w.dirs, dir)

	log.Printf("stopped watching %s", dir)
	return nil
}

// Dirs tells which directories are watched, in sorted order.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	result := make([]string, 0, len(w.dirs))
	for dir := range w.dirs {
		result = append(result, dir)
	}
	sort.Strings(result)
	return result
}

// Close stops all watches
// and waits for files already being handled.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.cancel()
	for dir, dw := range w.dirs {
		notify.Stop(dw.ch)
		close(dw.done)
		delete(w.dirs, dir)
	}
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}

// Handle writes the contents of the file at path to the store.
// The boolean result is false, with no error,
// when the file was skipped:
// because it is not an image file
// or because the catalog already has it.
func (w *Watcher) Handle(ctx context.Context, path string) (illust.ID, bool, error) {
	if !Match(path) {
		return 0, false, nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return 0, false, nil
	}
	if _, found, err := w.lookup(ctx, path); err != nil || found {
		return 0, false, err
	}

	data, err := w.readFile(ctx, path)
	if err != nil {
		return 0, false, err
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	// Another event may have stored this file during the read.
	if _, found, err := w.lookup(ctx, path); err != nil || found {
		return 0, false, err
	}

	id, err := w.s.Write(ctx, data)
	if err != nil {
		return 0, false, errors.Wrapf(err, "storing %s", path)
	}
	if w.cat != nil {
		if err = w.cat.Add(ctx, path, id, time.Now()); err != nil {
			return id, true, errors.Wrapf(err, "cataloging %s (blob %s)", path, id)
		}
	}
	return id, true, nil
}

// Ingest writes every image file in the tree rooted at dir to the store in one batch,
// skipping those the catalog already has.
// Empty files are skipped.
// Files are written in lexical path order,
// and the result holds one identifier per file written, in the same order.
func (w *Watcher) Ingest(ctx context.Context, dir string) ([]illust.ID, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !Match(path) {
			return nil
		}
		_, found, err := w.lookup(ctx, path)
		if err != nil || found {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", dir)
	}
	if len(paths) == 0 {
		return []illust.ID{}, nil
	}
	sort.Strings(paths)

	var (
		blobs = make([]illust.Blob, len(paths))
		eg    errgroup.Group
	)
	eg.SetLimit(maxConcurrentReads)
	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			// Files at rest are read once.
			// An empty one is skipped below, not waited on.
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "reading %s", path)
			}
			blobs[i] = data
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return nil, err
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	// Handle may have stored some of these files since the walk.
	var (
		keptPaths []string
		keptBlobs []illust.Blob
	)
	for i, path := range paths {
		if len(blobs[i]) == 0 {
			log.Printf("skipping empty file %s", path)
			continue
		}
		_, found, err := w.lookup(ctx, path)
		if err != nil {
			return nil, err
		}
		if found {
			continue
		}
		keptPaths = append(keptPaths, path)
		keptBlobs = append(keptBlobs, blobs[i])
	}
	if len(keptPaths) == 0 {
		return []illust.ID{}, nil
	}

	ids, err := illust.WriteMulti(ctx, w.s, keptBlobs)
	if err != nil {
		return nil, errors.Wrapf(err, "storing %d files from %s", len(keptPaths), dir)
	}
	if w.cat != nil {
		now := time.Now()
		for i, path := range keptPaths {
			if err = w.cat.Add(ctx, path, ids[i], now); err != nil {
				return ids, errors.Wrapf(err, "cataloging %s (blob %s)", path, ids[i])
			}
		}
	}

	log.Printf("ingested %d files from %s", len(ids), dir)
	return ids, nil
}

func (w *Watcher) lookup(ctx context.Context, path string) (illust.ID, bool, error) {
	if w.cat == nil {
		return 0, false, nil
	}
	id, err := w.cat.Lookup(ctx, path)
	if errors.Is(err, illust.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "looking up %s", path)
	}
	return id, true, nil
}

// readFile reads the whole file at path,
// retrying while it cannot be opened or is still empty,
// as when another process has just created it.
// A file that does not exist is not retried.
func (w *Watcher) readFile(ctx context.Context, path string) ([]byte, error) {
	bkoff := backoff.NewExponentialBackOff()
	bkoff.MaxElapsedTime = w.maxElapsed

	var data []byte
	err := backoff.Retry(
		func() error {
			var err error
			data, err = os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				return backoff.Permanent(err)
			}
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return errors.Errorf("%s is empty", path)
			}
			return nil
		},
		backoff.WithContext(bkoff, ctx),
	)
	return data, errors.Wrapf(err, "reading %s", path)
}
