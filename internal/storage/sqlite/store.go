// Package sqlite implements storage.Store on an embedded SQLite database.
//
// Every entity table is a two-column table (id, data) holding the JSON
// document, with one expression index per declared secondary index. The
// driver is modernc.org/sqlite, so no CGO is required.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	// Import SQLite driver
	_ "modernc.org/sqlite"

	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/storage"
)

// Verify SQLiteStore implements storage.Store at compile time
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	closed atomic.Bool // Tracks whether Close() has been called
}

// New opens (creating if needed) the database at path and ensures the schema.
// Pass ":memory:" for a private in-memory database.
func New(ctx context.Context, path string) (*SQLiteStore, error) {
	isInMemory := path == ":memory:"

	var connStr string
	if isInMemory {
		connStr = "file::memory:?_pragma=busy_timeout(30000)"
	} else if strings.HasPrefix(path, "file:") {
		connStr = path
	} else {
		// Ensure directory exists for file-based databases
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		connStr = "file:" + path + "?_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// In-memory databases are private to a connection, so pin the pool to one.
	if isInMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(runtime.NumCPU() + 1) // 1 writer + N readers
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(0)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	absPath := path
	if !isInMemory && !strings.HasPrefix(path, "file:") {
		if absPath, err = filepath.Abs(path); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
	}
	debug.Logf("sqlite: opened %s\n", absPath)

	return &SQLiteStore{db: db, dbPath: absPath}, nil
}

// Close closes the database connection.
// It checkpoints the WAL so writes are flushed to the main database file.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	debug.Logf("sqlite: closed %s\n", s.dbPath)
	return s.db.Close()
}

func (s *SQLiteStore) checkOpen() error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	return nil
}

// Get reads one row outside any transaction.
func (s *SQLiteStore) Get(ctx context.Context, t storage.Table, id string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return getDoc(ctx, s.db, t, id)
}

// Query reads the rows matching where outside any transaction.
func (s *SQLiteStore) Query(ctx context.Context, t storage.Table, where storage.Where) ([][]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return queryDocs(ctx, s.db, t, where)
}

// All reads every row of a table outside any transaction.
func (s *SQLiteStore) All(ctx context.Context, t storage.Table) ([][]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return allDocs(ctx, s.db, t)
}

// Put upserts one row with autocommit.
func (s *SQLiteStore) Put(ctx context.Context, t storage.Table, id string, doc []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return putDoc(ctx, s.db, t, id, doc)
}

// Delete removes one row with autocommit.
func (s *SQLiteStore) Delete(ctx context.Context, t storage.Table, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return deleteDoc(ctx, s.db, t, id)
}

// Clear empties a table with autocommit.
func (s *SQLiteStore) Clear(ctx context.Context, t storage.Table) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return clearTable(ctx, s.db, t)
}
