package main

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/bobg/illust"
)

func (c *maincmd) truncate(ctx context.Context, force bool, _ []string) error {
	if !force {
		return errors.New("truncate discards every blob; rerun with -force")
	}

	t, ok := c.s.(illust.Truncater)
	if !ok {
		return errors.Errorf("store is a %T and cannot be truncated", c.s)
	}
	if err := t.Truncate(ctx); err != nil {
		return errors.Wrap(err, "truncating store")
	}
	if c.cat != nil {
		if err := c.cat.Reset(ctx); err != nil {
			return errors.Wrap(err, "resetting catalog")
		}
	}

	log.Print("store truncated")
	return nil
}
