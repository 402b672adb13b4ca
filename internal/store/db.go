// Package store is the sole owner of persistent state: projects, agents,
// sessions, messages, broadcasts, and tasks. Every other component holds
// only read-only snapshots taken at dispatch time; mutations always go
// back through this package.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// BusyTimeoutMS bounds how long a writer waits on SQLITE_BUSY before the
// call surfaces as a store_error. Short contention between the CLI's own
// goroutines (one-shot runner, broadcast coordinator, session resolver)
// should never need this long; it exists for the rare overlap between an
// interactive REPL write and a concurrent one-shot.
const BusyTimeoutMS = 3000

// Open opens a SQLite database at the given path and configures it for
// concurrent use (WAL mode, foreign keys enabled, bounded busy-wait).
// Use ":memory:" for an in-memory database (useful for testing).
func Open(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_busy_timeout=%d", path, BusyTimeoutMS)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", BusyTimeoutMS)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// SQLite only supports a single writer at a time; serializing at the
	// connection-pool level avoids SQLITE_BUSY surfacing as spurious
	// store_error results under our own concurrency (gate cap 3 + REPL
	// writes), relying on busy_timeout instead to absorb contention.
	db.SetMaxOpenConns(1)

	return db, nil
}
