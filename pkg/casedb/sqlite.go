package casedb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCase is the embedded CaseDB for hosts without their own case
// database, and the backend every test runs against. It keeps a single
// writer connection and a pooled read-only connection, both in WAL mode so
// readers are not blocked by the writer.
type SQLiteCase struct {
	path    string
	writeDB *sql.DB
	readDB  *sql.DB
	lock    sync.RWMutex
}

// OpenSQLite opens (creating if needed) a case database at path.
func OpenSQLite(path string) (*SQLiteCase, error) {
	// Write connection: single writer with WAL mode
	writeDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("casedb: failed to open database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)

	// Touch the file so the read-only pool has something to open.
	if err := writeDB.Ping(); err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("casedb: failed to create database: %w", err)
	}

	readDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("casedb: failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(4)
	readDB.SetConnMaxLifetime(5 * time.Minute)

	return &SQLiteCase{
		path:    path,
		writeDB: writeDB,
		readDB:  readDB,
	}, nil
}

// AcquireReadLock blocks until the shared lock is held.
func (c *SQLiteCase) AcquireReadLock() { c.lock.RLock() }

// ReleaseReadLock releases the shared lock.
func (c *SQLiteCase) ReleaseReadLock() { c.lock.RUnlock() }

// AcquireWriteLock blocks until the exclusive lock is held.
func (c *SQLiteCase) AcquireWriteLock() { c.lock.Lock() }

// ReleaseWriteLock releases the exclusive lock.
func (c *SQLiteCase) ReleaseWriteLock() { c.lock.Unlock() }

// Reader returns the read-only connection pool.
func (c *SQLiteCase) Reader() *sql.DB { return c.readDB }

// Writer returns the single-connection writer.
func (c *SQLiteCase) Writer() *sql.DB { return c.writeDB }

// BeginTx opens a transaction on the writer connection.
func (c *SQLiteCase) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return c.writeDB.BeginTx(ctx, nil)
}

// Dialect returns the SQLite dialect.
func (c *SQLiteCase) Dialect() Dialect { return SQLiteDialect{} }

// Path returns the database file path.
func (c *SQLiteCase) Path() string { return c.path }

// Close closes both connections.
func (c *SQLiteCase) Close() error {
	var firstErr error
	if err := c.readDB.Close(); err != nil {
		firstErr = err
	}
	if err := c.writeDB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return fmt.Errorf("casedb: failed to close database: %w", firstErr)
	}
	return nil
}
