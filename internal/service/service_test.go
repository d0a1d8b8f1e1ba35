package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/boards/internal/eventbus"
	"github.com/steveyegge/boards/internal/idgen"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/storage/memory"
	"github.com/steveyegge/boards/internal/types"
)

const actor = "tester"

// fakeClock is a manually advanced clock.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc   *Service
	clock *fakeClock
	ctx   context.Context
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { _ = store.Close() })
	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.now), WithIDGenerator(idgen.Sequential("id"))}, opts...)
	return &fixture{svc: New(store, opts...), clock: clock, ctx: context.Background()}
}

func (f *fixture) project(t *testing.T, key string) *types.Project {
	t.Helper()
	p, err := f.svc.CreateProject(f.ctx, ProjectInput{Key: key, Name: key + " project"}, actor)
	require.NoError(t, err)
	return p
}

func (f *fixture) issue(t *testing.T, in IssueInput) *types.Issue {
	t.Helper()
	if in.Title == "" {
		in.Title = "an issue"
	}
	issue, err := f.svc.CreateIssue(f.ctx, in, actor)
	require.NoError(t, err)
	return issue
}

func points(v float64) *float64 { return &v }
func str(v string) *string       { return &v }

func TestNewDefaults(t *testing.T) {
	s := New(memory.New())
	require.NotNil(t, s.Store())
	require.NotEmpty(t, s.newID())
	require.Equal(t, time.UTC, s.clock().Location())
}

func TestNotifyDispatchesAfterCommit(t *testing.T) {
	bus := eventbus.New()
	var got []*eventbus.Event
	bus.Register(eventbus.HandlerFunc("record", 0, func(_ context.Context, ev *eventbus.Event) error {
		got = append(got, ev)
		return nil
	}, eventbus.AllEventTypes...))

	f := newFixture(t, WithEventBus(bus))
	p := f.project(t, "TP")
	f.issue(t, IssueInput{ProjectID: p.ID})

	require.Len(t, got, 2)
	require.Equal(t, eventbus.EventProjectCreated, got[0].Type)
	require.Equal(t, eventbus.EventIssueCreated, got[1].Type)
	require.Equal(t, "TP-1", got[1].Summary)
	require.Contains(t, got[1].Tables, "issues")
	require.NotContains(t, got[1].Tables, "meta")
}

func TestFailedWriteDoesNotNotify(t *testing.T) {
	bus := eventbus.New()
	calls := 0
	bus.Register(eventbus.HandlerFunc("count", 0, func(context.Context, *eventbus.Event) error {
		calls++
		return nil
	}, eventbus.AllEventTypes...))

	f := newFixture(t, WithEventBus(bus))
	_, err := f.svc.CreateIssue(f.ctx, IssueInput{ProjectID: "missing", Title: "x"}, actor)
	require.ErrorIs(t, err, types.ErrProjectNotFound)
	require.Zero(t, calls)
}

func TestSequenceIsMonotonicAndResettable(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "TP")
	a := f.issue(t, IssueInput{ProjectID: p.ID})
	_, err := f.svc.AddComment(f.ctx, a.ID, "hello", actor)
	require.NoError(t, err)

	rows, err := f.svc.ListActivity(f.ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Less(t, rows[0].Seq, rows[1].Seq)

	// Drop the counter row, as an import of older data would, and check the
	// next allocation continues past the highest stored seq.
	store := f.svc.Store()
	require.NoError(t, store.Delete(f.ctx, storage.TableMeta, seqKey))
	err = store.RunInTransaction(f.ctx, []storage.Table{storage.TableComments, storage.TableActivityLog, storage.TableMeta},
		func(tx storage.Transaction) error { return ResetSequence(f.ctx, tx) })
	require.NoError(t, err)

	_, err = f.svc.AddComment(f.ctx, a.ID, "again", actor)
	require.NoError(t, err)
	rows, err = f.svc.ListActivity(f.ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Greater(t, rows[2].Seq, rows[1].Seq)
}
