// Package sqlite owns the single exclusive connection to a playtime
// database file. All storage access goes through [Database.WithConn] or
// [Database.Transaction]; the mutex makes the Database the one
// serialization point for the file within the process.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Database is a mutex-guarded handle to one SQLite file.
type Database struct {
	path    string
	lenient bool

	mu sync.Mutex
	db *sql.DB
}

// Open creates (if needed) and opens the database at c.Path and applies
// the durability settings: WAL journaling with NORMAL synchronous mode,
// foreign keys enabled.
func Open(c Config) (*Database, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sqlite config: %w", err)
	}

	if c.Path != ":memory:" {
		if dir := filepath.Dir(c.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite3", c.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite3 at %s: %w", c.Path, err)
	}

	// One connection: the pool must never hand out a second writer,
	// and :memory: databases are per-connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to activate foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA cache_size = -20000;"); err != nil {
		return nil, fmt.Errorf("failed to set cache size: %w", err)
	}

	return &Database{path: c.Path, lenient: c.LenientTimestamps, db: db}, nil
}

// Path returns the file path the database was opened with.
func (d *Database) Path() string {
	return d.path
}

// LenientTimestamps reports whether readers should substitute "now" for
// unparseable stored timestamps instead of failing.
func (d *Database) LenientTimestamps() bool {
	return d.lenient
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Close()
}

// WithConn runs f with exclusive access to the database connection.
// Calls are totally ordered; f must not retain the connection.
func (d *Database) WithConn(ctx context.Context, f func(*sql.Conn) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn, err := d.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	return f(conn)
}

// Transaction runs f inside a transaction with exclusive access.
// The transaction commits if f returns nil and is rolled back otherwise,
// leaving no partial effects.
func (d *Database) Transaction(ctx context.Context, f func(*sql.Tx) error) error {
	return d.WithConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if err := f(tx); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}
