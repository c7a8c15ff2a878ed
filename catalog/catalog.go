// Package catalog records which source file each stored blob came from,
// so that files already in the store are not written again.
package catalog

import (
	"context"
	"database/sql"
	stderrs "errors"
	"time"

	"github.com/bobg/sqlutil"
	_ "github.com/lib/pq"           // register the postgres type for sql.Open
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/illust"
)

// Catalog maps source file paths to blob identifiers.
type Catalog struct {
	db *sql.DB
}

// Entry is one row of the catalog.
type Entry struct {
	Path  string
	ID    illust.ID
	Added time.Time
}

// Schema is the SQL that New executes.
// It creates the `images` table if it does not exist.
// (If it does exist, it must have the columns, constraints, and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS images (
  path TEXT PRIMARY KEY NOT NULL,
  id BIGINT NOT NULL,
  added TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS images_id_idx ON images (id);
`

// Open opens the database named by driver ("sqlite3" or "postgres") and conn
// and produces a Catalog using it.
// The Catalog owns the database and closes it in Close.
func Open(ctx context.Context, driver, conn string) (*Catalog, error) {
	db, err := sql.Open(driver, conn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}
	c, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// New produces a new Catalog using `db` for storage.
// It expects to create table `images`,
// or for that table already to exist with the correct schema.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Catalog, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, errors.Wrap(err, "creating schema")
	}
	return &Catalog{db: db}, nil
}

// Add records that the file at path was stored as blob id at the given time.
// A path added again is updated to the new identifier.
func (c *Catalog) Add(ctx context.Context, path string, id illust.ID, at time.Time) error {
	const q = `INSERT INTO images (path, id, added) VALUES ($1, $2, $3)
               ON CONFLICT (path) DO UPDATE SET id = excluded.id, added = excluded.added`

	_, err := c.db.ExecContext(ctx, q, path, int64(id), at.UTC().Format(time.RFC3339Nano))
	return errors.Wrapf(err, "adding %s", path)
}

// Lookup gets the identifier recorded for path.
// It returns illust.ErrNotFound if there is none.
func (c *Catalog) Lookup(ctx context.Context, path string) (illust.ID, error) {
	const q = `SELECT id FROM images WHERE path = $1`

	var id int64
	err := c.db.QueryRowContext(ctx, q, path).Scan(&id)
	if stderrs.Is(err, sql.ErrNoRows) {
		return 0, errors.Wrap(illust.ErrNotFound, path)
	}
	return illust.ID(id), errors.Wrapf(err, "looking up %s", path)
}

// List calls f on every entry in the catalog, in identifier order.
func (c *Catalog) List(ctx context.Context, f func(Entry) error) error {
	const q = `SELECT path, id, added FROM images ORDER BY id, path`
	return sqlutil.ForQueryRows(ctx, c.db, q, func(path string, id int64, addedstr string) error {
		added, err := time.Parse(time.RFC3339Nano, addedstr)
		if err != nil {
			return errors.Wrapf(err, "parsing time %s", addedstr)
		}
		return f(Entry{Path: path, ID: illust.ID(id), Added: added})
	})
}

// Reset deletes every entry.
// It goes with truncating the store the identifiers refer to.
func (c *Catalog) Reset(ctx context.Context) error {
	const q = `DELETE FROM images`
	_, err := c.db.ExecContext(ctx, q)
	return errors.Wrap(err, "resetting catalog")
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
