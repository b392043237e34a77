// Package store persists songs and playlists in SQLite.
package store

import (
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps the sqlx handle. One DB serves both the song and the playlist
// tables; SQLite in WAL mode handles the daemon's concurrency fine.
type DB struct {
	*sqlx.DB
}

// Open opens (and creates if needed) the SQLite database at dsn and applies
// the schema.
func Open(dsn string) (*DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}

	// Pragmas for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, errors.Wrap(err, "failed to set WAL mode")
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "failed to apply schema")
	}

	return &DB{db}, nil
}

// Close closes the underlying database handle.
func (db *DB) Close() error {
	return db.DB.Close()
}
