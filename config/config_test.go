package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = "\xef\xbb\xbf" + `<?xml version="1.0" encoding="utf-8"?>
<Config xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <ConfigPath>C:\old\config.xml</ConfigPath>
  <DatabasePath>index.bin</DatabasePath>
  <StoragePath>data.bin</StoragePath>
  <SQLitePath>catalog.db</SQLitePath>
</Config>
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "illust.xml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	f, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, f.Path)
	require.Equal(t, "index.bin", f.Config.DatabasePath)
	require.Equal(t, "data.bin", f.Config.StoragePath)
	require.Equal(t, "catalog.db", f.Config.SQLitePath)
	require.Equal(t, DefaultCatalogDriver, f.Config.Driver())
	require.Zero(t, f.Config.CacheSize)
	require.False(t, f.Config.Verbose)
	require.Empty(t, f.Config.WatchDirs)
	require.NoError(t, f.Config.Validate())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.xml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte("<Config><DatabasePath>"), 0644))
	_, err = Load(bad)
	require.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "illust.xml")

	conf := Config{
		DatabasePath:  "/var/illust/index.bin",
		StoragePath:   "/var/illust/data.bin",
		SQLitePath:    "/var/illust/catalog.db",
		CatalogDriver: "postgres",
		CacheSize:     64,
		Verbose:       true,
		WatchDirs:     []string{"/home/pics", "/home/more pics"},
	}
	require.NoError(t, New(path, conf).Save())

	f, err := Load(path)
	require.NoError(t, err)
	f.Config.XMLName = conf.XMLName
	require.Equal(t, conf, f.Config)

	// Saving again overwrites.
	f.Config.CacheSize = 0
	require.NoError(t, f.Save())
	f2, err := Load(path)
	require.NoError(t, err)
	require.Zero(t, f2.Config.CacheSize)

	_, err = os.Stat(path + ".tmp")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMove(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "illust.xml")
	to := filepath.Join(dir, "sub", "moved.xml")

	f := New(from, Config{DatabasePath: "i", StoragePath: "d"})
	require.NoError(t, f.Save())
	require.NoError(t, f.Move(to))
	require.Equal(t, to, f.Path)

	_, err := os.Stat(from)
	require.ErrorIs(t, err, os.ErrNotExist)

	g, err := Load(to)
	require.NoError(t, err)
	require.Equal(t, "i", g.Config.DatabasePath)
}

func TestMoveFailure(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "missing.xml")

	f := New(from, Config{})
	require.Error(t, f.Move(filepath.Join(dir, "to.xml")))
	require.Equal(t, from, f.Path)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "a")
	to := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(from, []byte("contents"), 0644))

	require.NoError(t, copyFile(from, to))
	b, err := os.ReadFile(to)
	require.NoError(t, err)
	require.Equal(t, "contents", string(b))

	// The destination must not already exist.
	require.Error(t, copyFile(from, to))
}

func TestValidate(t *testing.T) {
	require.Error(t, (&Config{StoragePath: "d"}).Validate())
	require.Error(t, (&Config{DatabasePath: "i"}).Validate())
	require.Error(t, (&Config{DatabasePath: "i", StoragePath: "d", CacheSize: -1}).Validate())
	require.NoError(t, (&Config{DatabasePath: "i", StoragePath: "d"}).Validate())
}

func TestStoreConf(t *testing.T) {
	c := Config{DatabasePath: "i", StoragePath: "d"}
	require.Equal(t, map[string]interface{}{"type": "file", "index": "i", "data": "d"}, c.StoreConf())

	c.CacheSize = 10
	c.Verbose = true
	require.Equal(t, map[string]interface{}{
		"type": "logging",
		"nested": map[string]interface{}{
			"type": "lru",
			"size": 10,
			"nested": map[string]interface{}{
				"type":  "file",
				"index": "i",
				"data":  "d",
			},
		},
	}, c.StoreConf())
}
