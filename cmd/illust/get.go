package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/illust"
)

func (c *maincmd) get(ctx context.Context, idstr, idsstr, out, dir string, _ []string) error {
	if (idstr == "") == (idsstr == "") {
		return errors.New("must supply one of -id or -ids")
	}

	if idstr != "" {
		id, err := illust.ParseID(idstr)
		if err != nil {
			return errors.Wrapf(err, "parsing id %s", idstr)
		}
		blob, err := c.s.Read(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "getting blob %s", id)
		}
		if out == "" {
			_, err = os.Stdout.Write(blob)
			return errors.Wrap(err, "writing blob to stdout")
		}
		return errors.Wrapf(os.WriteFile(out, blob, 0644), "writing blob to %s", out)
	}

	if dir == "" {
		return errors.New("-ids requires -dir")
	}

	var ids []illust.ID
	for _, s := range strings.Split(idsstr, ",") {
		id, err := illust.ParseID(strings.TrimSpace(s))
		if err != nil {
			return errors.Wrapf(err, "parsing id %s", s)
		}
		ids = append(ids, id)
	}

	blobs, err := illust.ReadMulti(ctx, c.s, ids)
	if err != nil {
		return errors.Wrapf(err, "getting %d blobs", len(ids))
	}

	if err = os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	for i, blob := range blobs {
		filename := filepath.Join(dir, ids[i].String())
		if err = os.WriteFile(filename, blob, 0644); err != nil {
			return errors.Wrapf(err, "writing blob %s to %s", ids[i], filename)
		}
	}
	return nil
}
