// Package service implements the domain rules of the tracker on top of a
// storage.Store.
//
// Every public method that writes runs in exactly one storage transaction.
// Cross-table invariants (sequential issue keys, cascading deletes, the
// single active sprint, resolvedAt bookkeeping, the audit trail) are
// maintained here because the store enforces none of them.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/steveyegge/boards/internal/eventbus"
	"github.com/steveyegge/boards/internal/idgen"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

// Service is the entry point for collaborators.
type Service struct {
	store storage.Store
	now   func() time.Time
	newID idgen.Generator
	bus   *eventbus.Bus
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the UUIDv7 id generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Service) { s.newID = g }
}

// WithEventBus dispatches a change notification after every committed write.
func WithEventBus(bus *eventbus.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// New returns a Service over store.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, newID: idgen.New}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() storage.Store {
	return s.store
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// notify dispatches ev after a commit. Notification failures never fail the
// write that caused them.
func (s *Service) notify(ctx context.Context, ev eventbus.Event, tables []storage.Table) {
	if s.bus == nil {
		return
	}
	ev.Timestamp = s.clock()
	for _, t := range tables {
		if t != storage.TableMeta {
			ev.Tables = append(ev.Tables, string(t))
		}
	}
	_, _ = s.bus.Dispatch(ctx, &ev)
}

// load reads one row and maps a missing row to a typed NotFoundError.
func load[T any](ctx context.Context, r storage.Reader, table storage.Table, entity, id string) (*T, error) {
	v, err := storage.Get[T](ctx, r, table, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NotFound(entity, id)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// view runs fn in a read snapshot over tables.
func (s *Service) view(ctx context.Context, tables []storage.Table, fn func(r storage.Reader) error) error {
	return s.store.View(ctx, tables, fn)
}

// rowID is the minimal shape every document shares.
type rowID struct {
	ID string `json:"id"`
}

// queryIDs returns the ids of the rows matching where.
func queryIDs(ctx context.Context, r storage.Reader, table storage.Table, where storage.Where) ([]string, error) {
	rows, err := storage.Query[rowID](ctx, r, table, where)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.ID
	}
	return out, nil
}

// deleteWhere removes every row matching where and returns the number removed.
func deleteWhere(ctx context.Context, tx storage.Transaction, table storage.Table, where storage.Where) (int, error) {
	ids, err := queryIDs(ctx, tx, table, where)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := tx.Delete(ctx, table, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

const seqKey = "seq"

type counter struct {
	ID    string `json:"id"`
	Value int64  `json:"value"`
}

func (c *counter) EntityID() string { return c.ID }

// nextSeq allocates the next feed sequence number. The caller's transaction
// must include storage.TableMeta.
func nextSeq(ctx context.Context, tx storage.Transaction) (int64, error) {
	c, err := storage.Get[counter](ctx, tx, storage.TableMeta, seqKey)
	if errors.Is(err, storage.ErrNotFound) {
		c = &counter{ID: seqKey}
	} else if err != nil {
		return 0, fmt.Errorf("read sequence: %w", err)
	}
	c.Value++
	if err := storage.Put(ctx, tx, storage.TableMeta, c); err != nil {
		return 0, fmt.Errorf("write sequence: %w", err)
	}
	return c.Value, nil
}

type seqRow struct {
	Seq int64 `json:"seq"`
}

// ResetSequence sets the feed sequence past every seq already stored in
// comments and activity rows. Import calls it after loading rows verbatim.
func ResetSequence(ctx context.Context, tx storage.Transaction) error {
	var highest int64
	for _, table := range []storage.Table{storage.TableComments, storage.TableActivityLog} {
		rows, err := storage.All[seqRow](ctx, tx, table)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if r.Seq > highest {
				highest = r.Seq
			}
		}
	}
	return storage.Put(ctx, tx, storage.TableMeta, &counter{ID: seqKey, Value: highest})
}
