// Package config reads and writes the XML file describing where a store keeps its files.
package config

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"

	"github.com/bobg/flock"
	"github.com/pkg/errors"
)

// DefaultCatalogDriver is the database driver used when CatalogDriver is empty.
const DefaultCatalogDriver = "sqlite3"

// Config is the content of a config file.
type Config struct {
	XMLName xml.Name `xml:"Config"`

	DatabasePath string // index file of the blob store
	StoragePath  string // data file of the blob store
	SQLitePath   string // catalog connection string; no catalog if empty

	CatalogDriver string `xml:",omitempty"`
	CacheSize     int    `xml:",omitempty"` // blobs held in the read cache; no cache if 0
	Verbose       bool   `xml:",omitempty"` // log every store operation

	WatchDirs []string `xml:"WatchDir"`
}

// Validate reports whether c names both store files.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("missing DatabasePath")
	}
	if c.StoragePath == "" {
		return errors.New("missing StoragePath")
	}
	if c.CacheSize < 0 {
		return errors.Errorf("negative CacheSize %d", c.CacheSize)
	}
	return nil
}

// Driver is CatalogDriver, or DefaultCatalogDriver if that is empty.
func (c *Config) Driver() string {
	if c.CatalogDriver == "" {
		return DefaultCatalogDriver
	}
	return c.CatalogDriver
}

// StoreConf produces the configuration map for store.Create describing c's store:
// a "file" store,
// wrapped in an "lru" store when CacheSize is positive,
// wrapped in a "logging" store when Verbose is set.
func (c *Config) StoreConf() map[string]interface{} {
	conf := map[string]interface{}{
		"type":  "file",
		"index": c.DatabasePath,
		"data":  c.StoragePath,
	}
	if c.CacheSize > 0 {
		conf = map[string]interface{}{
			"type":   "lru",
			"size":   c.CacheSize,
			"nested": conf,
		}
	}
	if c.Verbose {
		conf = map[string]interface{}{
			"type":   "logging",
			"nested": conf,
		}
	}
	return conf
}

// File is a Config together with the path it is kept at.
type File struct {
	Path   string
	Config Config

	flocker flock.Locker
}

// New produces a File for path holding conf.
// Nothing is written until Save.
func New(path string, conf Config) *File {
	return &File{Path: path, Config: conf}
}

// Load reads the config file at path.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}

	// Config files written by other tools may start with a UTF-8 byte-order mark.
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))

	f := &File{Path: path}
	if err = xml.Unmarshal(b, &f.Config); err != nil {
		return nil, errors.Wrapf(err, "decoding config file %s", path)
	}
	return f, nil
}

// Save writes f.Config to f.Path.
func (f *File) Save() error {
	b, err := xml.MarshalIndent(f.Config, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	b = append([]byte(xml.Header), b...)
	b = append(b, '\n')

	if err = f.flocker.Lock(f.Path); err != nil {
		return errors.Wrapf(err, "locking %s", f.Path)
	}
	defer f.flocker.Unlock(f.Path)

	// Write to a temporary file and rename it into place,
	// so a reader never sees a partial config.
	tmp := f.Path + ".tmp"
	if err = os.WriteFile(tmp, b, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", tmp)
	}
	if err = os.Rename(tmp, f.Path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "renaming %s to %s", tmp, f.Path)
	}
	return nil
}

// Move moves the config file to the path `to`.
// If it cannot be renamed
// (e.g. because `to` is on another filesystem),
// it is copied instead, leaving the original in place.
// F.Path changes to `to` only on success.
func (f *File) Move(to string) error {
	from := f.Path

	if err := f.flocker.Lock(from); err != nil {
		return errors.Wrapf(err, "locking %s", from)
	}
	defer f.flocker.Unlock(from)

	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", to)
	}

	renameErr := os.Rename(from, to)
	if renameErr == nil {
		f.Path = to
		return nil
	}

	if err := copyFile(from, to); err != nil {
		return errors.Wrapf(err, "copying %s to %s (after rename failed: %s)", from, to, renameErr)
	}
	f.Path = to
	return nil
}

func copyFile(from, to string) (err error) {
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(to)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
