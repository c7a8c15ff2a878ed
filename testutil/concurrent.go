package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bobg/illust"
)

// Concurrent writes blobs from many goroutines at once
// and makes sure every writer got a distinct identifier
// under which its own blob can be read back.
func Concurrent(ctx context.Context, t *testing.T, store illust.Store) {
	const (
		writers = 8
		each    = 20
	)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[illust.ID]string)
		errs []error
	)

	for w := 0; w < writers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				content := fmt.Sprintf("writer %d blob %d", w, i)
				var (
					id  illust.ID
					err error
				)
				if i%5 == 4 {
					var ids []illust.ID
					ids, err = illust.WriteMulti(ctx, store, []illust.Blob{illust.Blob(content)})
					if err == nil {
						id = ids[0]
					}
				} else {
					id, err = store.Write(ctx, illust.Blob(content))
				}

				mu.Lock()
				if err != nil {
					errs = append(errs, err)
				} else if prev, ok := seen[id]; ok {
					errs = append(errs, fmt.Errorf("id %s assigned to both %q and %q", id, prev, content))
				} else {
					seen[id] = content
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		t.Error(err)
	}

	const total = writers * each
	if len(seen) != total {
		t.Fatalf("got %d distinct ids, want %d", len(seen), total)
	}
	for id, content := range seen {
		if !id.InRange(total) {
			t.Errorf("id %s is outside [0, %d)", id, total)
			continue
		}
		got, err := store.Read(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != content {
			t.Errorf("id %s: read %q, want %q", id, got, content)
		}
	}
}
