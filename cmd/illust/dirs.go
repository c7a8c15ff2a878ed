package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// dirs lists, adds to, or removes from the watch directories in the config file.
func (c *maincmd) dirs(_ context.Context, add, remove string, _ []string) error {
	conf := &c.conf.Config
	changed := false

	if remove != "" {
		var kept []string
		for _, dir := range conf.WatchDirs {
			if dir == remove {
				changed = true
				continue
			}
			kept = append(kept, dir)
		}
		conf.WatchDirs = kept
	}
	if add != "" {
		found := false
		for _, dir := range conf.WatchDirs {
			if dir == add {
				found = true
				break
			}
		}
		if !found {
			conf.WatchDirs = append(conf.WatchDirs, add)
			changed = true
		}
	}

	if changed {
		if err := c.conf.Save(); err != nil {
			return errors.Wrap(err, "saving config")
		}
	}

	for _, dir := range conf.WatchDirs {
		fmt.Println(dir)
	}
	return nil
}

func (c *maincmd) moveConfig(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: move-config DEST")
	}
	from := c.conf.Path
	if err := c.conf.Move(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s -> %s\n", from, c.conf.Path)
	return nil
}
