package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/illust"
)

func (c *maincmd) put(ctx context.Context, args []string) error {
	if len(args) == 0 {
		blob, err := io.ReadAll(os.Stdin)
		if err != nil {
			return errors.Wrap(err, "reading stdin")
		}
		id, err := c.s.Write(ctx, blob)
		if err != nil {
			return errors.Wrap(err, "storing blob")
		}
		fmt.Println(id)
		return nil
	}

	blobs := make([]illust.Blob, 0, len(args))
	for _, filename := range args {
		blob, err := os.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "reading %s", filename)
		}
		blobs = append(blobs, blob)
	}

	ids, err := illust.WriteMulti(ctx, c.s, blobs)
	if err != nil {
		return errors.Wrapf(err, "storing %d blobs", len(blobs))
	}

	now := time.Now()
	for i, id := range ids {
		if c.cat != nil {
			if err = c.cat.Add(ctx, args[i], id, now); err != nil {
				return errors.Wrapf(err, "cataloging %s", args[i])
			}
		}
		fmt.Printf("%s %s\n", id, args[i])
	}
	return nil
}
