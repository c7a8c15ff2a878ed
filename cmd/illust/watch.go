package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/pkg/errors"
)

func (c *maincmd) watch(ctx context.Context, ingest bool, args []string) error {
	dirs := append(append([]string{}, c.conf.Config.WatchDirs...), args...)
	if len(dirs) == 0 {
		return errors.New("no directories to watch")
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	w := c.watcher()
	defer w.Close()

	for _, dir := range dirs {
		if err := w.AddDir(dir); err != nil {
			return err
		}
	}

	// Watches go first, so no file created during the ingest is missed.
	if ingest {
		for _, dir := range dirs {
			if _, err := w.Ingest(ctx, dir); err != nil {
				log.Printf("ERROR ingesting %s: %s", dir, err)
			}
		}
	}

	<-ctx.Done()
	log.Print("interrupted, exiting")
	return nil
}
