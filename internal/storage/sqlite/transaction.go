package sqlite

import (
	"context"
	"fmt"

	"github.com/steveyegge/boards/internal/storage"
)

// Verify sqliteTx implements storage.Transaction at compile time
var _ storage.Transaction = (*sqliteTx)(nil)

// sqliteTx wraps a dedicated database connection with an active transaction.
// It only admits the tables it was opened for.
type sqliteTx struct {
	conn  dbExecutor
	scope map[storage.Table]bool
}

func newScope(tables []storage.Table) (map[storage.Table]bool, error) {
	scope := make(map[storage.Table]bool, len(tables))
	for _, t := range tables {
		if _, err := storage.LookupTable(t); err != nil {
			return nil, err
		}
		scope[t] = true
	}
	return scope, nil
}

func (t *sqliteTx) inScope(table storage.Table) error {
	if !t.scope[table] {
		if _, err := storage.LookupTable(table); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", storage.ErrTableNotInScope, table)
	}
	return nil
}

// RunInTransaction executes a function within a database transaction.
//
// The transaction uses BEGIN IMMEDIATE to acquire the write lock early,
// so two writers never deadlock upgrading from a read lock.
//
// Transaction lifecycle:
//  1. Acquire dedicated connection from pool
//  2. Begin IMMEDIATE transaction with retry on SQLITE_BUSY
//  3. Execute user function with Transaction interface
//  4. On success: COMMIT
//  5. On error or panic: ROLLBACK
//
// Panic safety: If the callback panics, the transaction is rolled back
// and the panic is re-raised to the caller.
func (s *SQLiteStore) RunInTransaction(ctx context.Context, tables []storage.Table, fn func(tx storage.Transaction) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	scope, err := newScope(tables)
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for transaction: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := beginWithRetry(ctx, conn, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Background context so rollback completes even if ctx is cancelled
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	// Rollback happens via the committed=false check above
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		}
	}()

	if err := fn(&sqliteTx{conn: conn, scope: scope}); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// View runs fn inside a read transaction. In WAL mode the reader sees one
// consistent snapshot for the whole callback.
func (s *SQLiteStore) View(ctx context.Context, tables []storage.Table, fn func(r storage.Reader) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	scope, err := newScope(tables)
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for view: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN"); err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() { _, _ = conn.ExecContext(context.Background(), "ROLLBACK") }()

	return fn(&sqliteTx{conn: conn, scope: scope})
}

func (t *sqliteTx) Get(ctx context.Context, table storage.Table, id string) ([]byte, error) {
	if err := t.inScope(table); err != nil {
		return nil, err
	}
	return getDoc(ctx, t.conn, table, id)
}

func (t *sqliteTx) Query(ctx context.Context, table storage.Table, where storage.Where) ([][]byte, error) {
	if err := t.inScope(table); err != nil {
		return nil, err
	}
	return queryDocs(ctx, t.conn, table, where)
}

func (t *sqliteTx) All(ctx context.Context, table storage.Table) ([][]byte, error) {
	if err := t.inScope(table); err != nil {
		return nil, err
	}
	return allDocs(ctx, t.conn, table)
}

func (t *sqliteTx) Put(ctx context.Context, table storage.Table, id string, doc []byte) error {
	if err := t.inScope(table); err != nil {
		return err
	}
	return putDoc(ctx, t.conn, table, id, doc)
}

func (t *sqliteTx) Delete(ctx context.Context, table storage.Table, id string) error {
	if err := t.inScope(table); err != nil {
		return err
	}
	return deleteDoc(ctx, t.conn, table, id)
}

func (t *sqliteTx) Clear(ctx context.Context, table storage.Table) error {
	if err := t.inScope(table); err != nil {
		return err
	}
	return clearTable(ctx, t.conn, table)
}
