// Package storage provides the indexed table store the service layer runs on.
//
// Rows are JSON documents keyed by id. Every table declares its secondary
// indexes up front (see Schema); queries must go through one of them. The
// concrete backends live in the memory and sqlite sub-packages.
package storage

import (
	"context"
	"errors"

	"github.com/steveyegge/boards/internal/types"
)

// ErrNotFound is returned by Get when no row has the requested id. It is the
// same sentinel every types.NotFoundError matches.
var ErrNotFound = types.ErrNotFound

// ErrUnknownTable is returned for a table that is not part of the schema.
var ErrUnknownTable = errors.New("unknown table")

// ErrUnknownIndex is returned when a query does not match a declared index.
var ErrUnknownIndex = errors.New("no index matches query")

// ErrTableNotInScope is returned when a transaction touches a table it did
// not declare when it was opened.
var ErrTableNotInScope = errors.New("table not in transaction scope")

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("store is closed")

// Reader is the read half of the store.
type Reader interface {
	// Get returns the document stored under id, or ErrNotFound.
	Get(ctx context.Context, table Table, id string) ([]byte, error)
	// Query returns the documents matching where, in insertion order.
	// No match yields an empty result, not an error.
	Query(ctx context.Context, table Table, where Where) ([][]byte, error)
	// All returns every document of the table in insertion order.
	All(ctx context.Context, table Table) ([][]byte, error)
}

// Writer is the write half of the store.
type Writer interface {
	// Put inserts or replaces the document stored under id. A replaced row
	// keeps its insertion position.
	Put(ctx context.Context, table Table, id string, doc []byte) error
	// Delete removes the row. Deleting a missing id is a no-op.
	Delete(ctx context.Context, table Table, id string) error
	// Clear removes every row of the table.
	Clear(ctx context.Context, table Table) error
}

// Transaction provides atomic multi-table access.
//
// # Transaction Semantics
//
//   - Reads see the transaction's own writes
//   - Nothing is visible to other readers until commit
//   - If the callback returns an error, every write is discarded
//   - If the callback panics, every write is discarded and the panic is re-raised
//   - Only the tables named when the transaction was opened may be touched
//
// # Example Usage
//
//	err := store.RunInTransaction(ctx, []storage.Table{storage.TableProjects, storage.TableBoards},
//	    func(tx storage.Transaction) error {
//	        if err := storage.Put(ctx, tx, storage.TableProjects, project); err != nil {
//	            return err // Triggers rollback
//	        }
//	        return storage.Put(ctx, tx, storage.TableBoards, board)
//	    })
type Transaction interface {
	Reader
	Writer
}

// Store is implemented by every backend. The embedded Reader and Writer
// operate outside any transaction, each call committing on its own.
type Store interface {
	Reader
	Writer

	// RunInTransaction executes fn atomically over the given tables.
	RunInTransaction(ctx context.Context, tables []Table, fn func(tx Transaction) error) error

	// View executes fn against a consistent snapshot of the given tables.
	View(ctx context.Context, tables []Table, fn func(r Reader) error) error

	Close() error
}
