// Package memory implements storage.Store in process memory.
//
// Tables are immutable once published. A transaction clones the tables it
// writes and swaps them all in under one lock at commit, so readers holding
// an older snapshot never see a partially applied write.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/steveyegge/boards/internal/storage"
)

// Verify Store implements storage.Store at compile time
var _ storage.Store = (*Store)(nil)

type row struct {
	doc  []byte
	seq  int64
	keys map[string]string // index name -> encoded key
}

type table struct {
	schema  *storage.TableSchema
	rows    map[string]*row
	nextSeq int64
}

func (t *table) clone() *table {
	rows := make(map[string]*row, len(t.rows))
	for id, r := range t.rows {
		rows[id] = r
	}
	return &table{schema: t.schema, rows: rows, nextSeq: t.nextSeq}
}

func (t *table) sorted(match func(*row) bool) [][]byte {
	var hits []*row
	for _, r := range t.rows {
		if match == nil || match(r) {
			hits = append(hits, r)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].seq < hits[j].seq })
	out := make([][]byte, len(hits))
	for i, r := range hits {
		out[i] = append([]byte(nil), r.doc...)
	}
	return out
}

func encodeKey(values []string) string {
	return strings.Join(values, "\x00")
}

// Store is an in-memory storage.Store.
type Store struct {
	mu     sync.RWMutex // guards tables
	wmu    sync.Mutex   // serializes writers
	tables map[storage.Table]*table
	closed atomic.Bool
}

// New returns an empty store with every schema table created.
func New() *Store {
	s := &Store{tables: make(map[storage.Table]*table, len(storage.Schema))}
	for i := range storage.Schema {
		ts := &storage.Schema[i]
		s.tables[ts.Name] = &table{schema: ts, rows: map[string]*row{}}
	}
	return s
}

// Close releases the store. Later calls fail with storage.ErrClosed.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Store) snapshot(tables []storage.Table) (*snapshot, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}
	snap := &snapshot{tables: make(map[storage.Table]*table, len(tables))}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range tables {
		t, ok := s.tables[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", storage.ErrUnknownTable, name)
		}
		snap.tables[name] = t
	}
	return snap, nil
}

// View runs fn against the tables as they were when View was called.
func (s *Store) View(ctx context.Context, tables []storage.Table, fn func(r storage.Reader) error) error {
	snap, err := s.snapshot(tables)
	if err != nil {
		return err
	}
	return fn(snap)
}

// RunInTransaction executes fn atomically over tables.
// If fn returns an error or panics, nothing is published.
func (s *Store) RunInTransaction(ctx context.Context, tables []storage.Table, fn func(tx storage.Transaction) error) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	snap, err := s.snapshot(tables)
	if err != nil {
		return err
	}
	tx := &transaction{snapshot: snap, dirty: make(map[storage.Table]bool)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	for name := range tx.dirty {
		s.tables[name] = tx.tables[name]
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) autocommit(ctx context.Context, t storage.Table, fn func(tx storage.Transaction) error) error {
	return s.RunInTransaction(ctx, []storage.Table{t}, fn)
}

// Get reads one row outside any transaction.
func (s *Store) Get(ctx context.Context, t storage.Table, id string) ([]byte, error) {
	snap, err := s.snapshot([]storage.Table{t})
	if err != nil {
		return nil, err
	}
	return snap.Get(ctx, t, id)
}

// Query reads matching rows outside any transaction.
func (s *Store) Query(ctx context.Context, t storage.Table, where storage.Where) ([][]byte, error) {
	snap, err := s.snapshot([]storage.Table{t})
	if err != nil {
		return nil, err
	}
	return snap.Query(ctx, t, where)
}

// All reads every row of a table outside any transaction.
func (s *Store) All(ctx context.Context, t storage.Table) ([][]byte, error) {
	snap, err := s.snapshot([]storage.Table{t})
	if err != nil {
		return nil, err
	}
	return snap.All(ctx, t)
}

// Put writes one row in its own transaction.
func (s *Store) Put(ctx context.Context, t storage.Table, id string, doc []byte) error {
	return s.autocommit(ctx, t, func(tx storage.Transaction) error {
		return tx.Put(ctx, t, id, doc)
	})
}

// Delete removes one row in its own transaction.
func (s *Store) Delete(ctx context.Context, t storage.Table, id string) error {
	return s.autocommit(ctx, t, func(tx storage.Transaction) error {
		return tx.Delete(ctx, t, id)
	})
}

// Clear empties a table in its own transaction.
func (s *Store) Clear(ctx context.Context, t storage.Table) error {
	return s.autocommit(ctx, t, func(tx storage.Transaction) error {
		return tx.Clear(ctx, t)
	})
}

// snapshot is a read-only view of a fixed set of tables.
type snapshot struct {
	tables map[storage.Table]*table
}

func (s *snapshot) table(name storage.Table) (*table, error) {
	t, ok := s.tables[name]
	if !ok {
		if _, err := storage.LookupTable(name); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", storage.ErrTableNotInScope, name)
	}
	return t, nil
}

func (s *snapshot) Get(_ context.Context, name storage.Table, id string) ([]byte, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	r, ok := t.rows[id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", name, id, storage.ErrNotFound)
	}
	return append([]byte(nil), r.doc...), nil
}

func (s *snapshot) Query(_ context.Context, name storage.Table, where storage.Where) ([][]byte, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	ix, err := t.schema.MatchIndex(where)
	if err != nil {
		return nil, err
	}
	ixName, want := ix.Name(), encodeKey(where.Values(ix))
	return t.sorted(func(r *row) bool { return r.keys[ixName] == want }), nil
}

func (s *snapshot) All(_ context.Context, name storage.Table) ([][]byte, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	return t.sorted(nil), nil
}

// transaction layers copy-on-write tables over a snapshot.
type transaction struct {
	*snapshot
	dirty map[storage.Table]bool
}

func (tx *transaction) writable(name storage.Table) (*table, error) {
	t, err := tx.table(name)
	if err != nil {
		return nil, err
	}
	if !tx.dirty[name] {
		t = t.clone()
		tx.tables[name] = t
		tx.dirty[name] = true
	}
	return t, nil
}

func (tx *transaction) Put(_ context.Context, name storage.Table, id string, doc []byte) error {
	if id == "" {
		return fmt.Errorf("put %s: empty id", name)
	}
	t, err := tx.writable(name)
	if err != nil {
		return err
	}
	keys := make(map[string]string, len(t.schema.Indexes))
	for _, ix := range t.schema.Indexes {
		values, err := storage.IndexFields(doc, ix)
		if err != nil {
			return fmt.Errorf("put %s %s: %w", name, id, err)
		}
		keys[ix.Name()] = encodeKey(values)
	}
	r := &row{doc: append([]byte(nil), doc...), keys: keys}
	if old, ok := t.rows[id]; ok {
		r.seq = old.seq
	} else {
		t.nextSeq++
		r.seq = t.nextSeq
	}
	t.rows[id] = r
	return nil
}

func (tx *transaction) Delete(_ context.Context, name storage.Table, id string) error {
	t, err := tx.writable(name)
	if err != nil {
		return err
	}
	delete(t.rows, id)
	return nil
}

func (tx *transaction) Clear(_ context.Context, name storage.Table) error {
	t, err := tx.writable(name)
	if err != nil {
		return err
	}
	t.rows = map[string]*row{}
	return nil
}
