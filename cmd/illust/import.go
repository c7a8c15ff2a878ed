package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/illust/watch"
)

func (c *maincmd) watcher() *watch.Watcher {
	var opts []watch.Option
	if c.cat != nil {
		opts = append(opts, watch.WithCatalog(c.cat))
	}
	return watch.New(c.s, opts...)
}

func (c *maincmd) importDir(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("missing directory")
	}

	w := c.watcher()
	defer w.Close()

	for _, dir := range args {
		ids, err := w.Ingest(ctx, dir)
		if err != nil {
			return errors.Wrapf(err, "importing %s", dir)
		}
		fmt.Printf("%s: %d files\n", dir, len(ids))
	}
	return nil
}
