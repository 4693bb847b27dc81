package commands

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/nmemsh/nmem/internal/app"
	"github.com/nmemsh/nmem/internal/store"
)

// DB is an alias so command code doesn't need to import database/sql.
type DB = sql.DB

// printedError marks an error whose details have already been written to
// stdout as a JSON error envelope — cobra's own "Error: ..." stderr print
// would otherwise duplicate it.
type printedError struct {
	err error
}

func (e printedError) Error() string {
	return "error already printed"
}

func (e printedError) Unwrap() error { return e.err }

// openDB opens the ingest-side connection: migrations run automatically,
// matching the teacher's single-writer openDB.
func openDB() (*DB, func(), error) {
	dbPath, err := app.GetDBPath()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.InitDBWithPath(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = store.CloseDB(db) }, nil
}

// openReadOnlyDB opens a connection without running migrations, per spec
// §4.S0's "read-only connections open without migrations". Used by query
// commands (search/context) that must never race the ingest writer's
// migration lock.
func openReadOnlyDB() (*DB, func(), error) {
	dbPath, err := app.GetDBPath()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.OpenDB(dbPath)
	if err != nil {
		return nil, nil, err
	}
	if err := store.CheckSchemaVersion(db); err != nil {
		_ = store.CloseDB(db)
		return nil, nil, err
	}
	return db, func() { _ = store.CloseDB(db) }, nil
}

func withDB(fn func(db *DB) error) error {
	db, closeDB, err := openDB()
	if err != nil {
		return cmdErr(err)
	}
	defer closeDB()

	if err := fn(db); err != nil {
		return cmdErr(err)
	}
	return nil
}

func withReadOnlyDB(fn func(db *DB) error) error {
	db, closeDB, err := openReadOnlyDB()
	if err != nil {
		return cmdErr(err)
	}
	defer closeDB()

	if err := fn(db); err != nil {
		return cmdErr(err)
	}
	return nil
}

func cmdErr(err error) error {
	if err == nil {
		return nil
	}
	attrs := []any{"error", err.Error()}
	var re interface{ ErrorCode() string }
	if errors.As(err, &re) {
		attrs = append(attrs, "error_code", re.ErrorCode())
	}
	slog.Error("command error", attrs...)
	return printedError{err: err}
}
