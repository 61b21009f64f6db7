// Package casedb defines the contract between the timeline engine and the
// host case database it stores events in. The engine never owns the physical
// store: a host hands it a CaseDB and the engine brackets every statement
// with the host's read or write lock.
package casedb

import (
	"context"
	"database/sql"
)

// CaseDB is the host-provided case database the engine runs against.
//
// The lock methods expose the host's shared/exclusive lock pair. Lock
// acquisition is not reentrant: an operation takes one lock, runs its
// statements, and releases it before doing in-memory work. The engine never
// releases a lock it did not acquire.
type CaseDB interface {
	// AcquireReadLock blocks until the shared lock is held.
	AcquireReadLock()
	// ReleaseReadLock releases the shared lock.
	ReleaseReadLock()
	// AcquireWriteLock blocks until the exclusive lock is held.
	AcquireWriteLock()
	// ReleaseWriteLock releases the exclusive lock.
	ReleaseWriteLock()

	// Reader returns the connection pool for statements run under the
	// shared lock.
	Reader() *sql.DB
	// Writer returns the connection for statements run under the
	// exclusive lock.
	Writer() *sql.DB
	// BeginTx opens a transaction on the writer connection.
	BeginTx(ctx context.Context) (*sql.Tx, error)

	// Dialect describes the SQL flavor the connections speak.
	Dialect() Dialect
}
