// Command illust stores image files in a two-file blob store
// described by an XML config file.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/bobg/subcmd"
	"github.com/pkg/errors"

	"github.com/bobg/illust"
	"github.com/bobg/illust/catalog"
	"github.com/bobg/illust/config"
	"github.com/bobg/illust/store"
	"github.com/bobg/illust/store/file"
	_ "github.com/bobg/illust/store/logging"
	_ "github.com/bobg/illust/store/lru"
)

type maincmd struct {
	conf  *config.File
	s     illust.Store
	files *file.Store      // the file store beneath any wrappers
	cat   *catalog.Catalog // nil if the config names no catalog
}

func main() {
	configPath := flag.String("config", "illust.xml", "path to config file")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("Config value not set")
	}

	ctx := context.Background()

	c, err := newMaincmd(ctx, *configPath)
	if err != nil {
		log.Fatal(err)
	}
	defer c.close()

	err = subcmd.Run(ctx, c, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
}

func newMaincmd(ctx context.Context, configPath string) (*maincmd, error) {
	f, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err = f.Config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "validating config file %s", configPath)
	}

	conf := f.Config.StoreConf()
	typ := conf["type"].(string)
	s, err := store.Create(ctx, typ, conf)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s-type store", typ)
	}

	files, err := file.New(f.Config.DatabasePath, f.Config.StoragePath)
	if err != nil {
		return nil, err
	}

	c := &maincmd{conf: f, s: s, files: files}

	if f.Config.SQLitePath != "" {
		c.cat, err = catalog.Open(ctx, f.Config.Driver(), f.Config.SQLitePath)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s catalog %s", f.Config.Driver(), f.Config.SQLitePath)
		}
	}

	return c, nil
}

func (c *maincmd) close() {
	if c.cat != nil {
		c.cat.Close()
	}
}

func (c *maincmd) Subcmds() subcmd.Map {
	return subcmd.Commands(
		"dirs", c.dirs, subcmd.Params(
			"add", subcmd.String, "", "directory to add to the watch list",
			"remove", subcmd.String, "", "directory to remove from the watch list",
		),
		"get", c.get, subcmd.Params(
			"id", subcmd.String, "", "identifier of the blob to get",
			"ids", subcmd.String, "", "comma-separated identifiers of blobs to get (with -dir)",
			"o", subcmd.String, "", "file to write the blob to (default: stdout)",
			"dir", subcmd.String, "", "directory to write blobs to, one file per identifier (with -ids)",
		),
		"import", c.importDir, nil,
		"move-config", c.moveConfig, nil,
		"put", c.put, nil,
		"shell", c.shell, nil,
		"stat", c.stat, subcmd.Params(
			"check", subcmd.Bool, true, "also verify every index record",
		),
		"truncate", c.truncate, subcmd.Params(
			"force", subcmd.Bool, false, "really discard every blob",
		),
		"watch", c.watch, subcmd.Params(
			"ingest", subcmd.Bool, true, "store files already present before watching",
		),
	)
}
