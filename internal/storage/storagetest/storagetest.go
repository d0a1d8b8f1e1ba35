// Package storagetest holds the behaviour every storage.Store backend must
// share. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/boards/internal/storage"
)

// Factory returns a fresh, empty store. The caller closes it.
type Factory func(t *testing.T) storage.Store

type doc struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"projectId,omitempty"`
	Status    string  `json:"status,omitempty"`
	SprintID  *string `json:"sprintId,omitempty"`
	Title     string  `json:"title"`
}

func (d *doc) EntityID() string { return d.ID }

func put(t *testing.T, ctx context.Context, w storage.Writer, d *doc) {
	t.Helper()
	require.NoError(t, storage.Put(ctx, w, storage.TableIssues, d))
}

func ids(docs []*doc) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

// Run executes the contract suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Get(ctx, storage.TableIssues, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		put(t, ctx, s, &doc{ID: "a", ProjectID: "p1", Status: "todo", Title: "first"})

		got, err := storage.Get[doc](ctx, s, storage.TableIssues, "a")
		require.NoError(t, err)
		assert.Equal(t, "first", got.Title)
		assert.Equal(t, "p1", got.ProjectID)
	})

	t.Run("PutReplacesAndKeepsPosition", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		put(t, ctx, s, &doc{ID: "a", ProjectID: "p1", Title: "one"})
		put(t, ctx, s, &doc{ID: "b", ProjectID: "p1", Title: "two"})
		put(t, ctx, s, &doc{ID: "a", ProjectID: "p1", Title: "one-edited"})

		all, err := storage.All[doc](ctx, s, storage.TableIssues)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids(all))
		assert.Equal(t, "one-edited", all[0].Title)
	})

	t.Run("QuerySingleAndCompositeIndex", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		put(t, ctx, s, &doc{ID: "a", ProjectID: "p1", Status: "todo"})
		put(t, ctx, s, &doc{ID: "b", ProjectID: "p2", Status: "todo"})
		put(t, ctx, s, &doc{ID: "c", ProjectID: "p1", Status: "done"})
		put(t, ctx, s, &doc{ID: "d", ProjectID: "p1", Status: "todo"})

		byProject, err := storage.Query[doc](ctx, s, storage.TableIssues, storage.By("projectId", "p1"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c", "d"}, ids(byProject))

		// Field order in the query does not matter.
		partition, err := storage.Query[doc](ctx, s, storage.TableIssues,
			storage.By("status", "todo").And("projectId", "p1"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "d"}, ids(partition))
	})

	t.Run("QueryNoMatchIsEmpty", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		docs, err := s.Query(ctx, storage.TableIssues, storage.By("projectId", "ghost"))
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("QueryAbsentFieldMatchesEmpty", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		sprint := "s1"
		put(t, ctx, s, &doc{ID: "a", ProjectID: "p1"})
		put(t, ctx, s, &doc{ID: "b", ProjectID: "p1", SprintID: &sprint})

		backlog, err := storage.Query[doc](ctx, s, storage.TableIssues, storage.By("sprintId", ""))
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids(backlog))

		inSprint, err := storage.Query[doc](ctx, s, storage.TableIssues, storage.By("sprintId", "s1"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids(inSprint))
	})

	t.Run("QueryUndeclaredIndex", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Query(ctx, storage.TableIssues, storage.By("title", "x"))
		assert.ErrorIs(t, err, storage.ErrUnknownIndex)

		_, err = s.Query(ctx, storage.TableIssues, storage.By("projectId", "p").And("title", "x"))
		assert.ErrorIs(t, err, storage.ErrUnknownIndex)
	})

	t.Run("UnknownTable", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.All(ctx, storage.Table("nosuch"))
		assert.ErrorIs(t, err, storage.ErrUnknownTable)
	})

	t.Run("DeleteMissingIsNoop", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		assert.NoError(t, s.Delete(ctx, storage.TableIssues, "nope"))
	})

	t.Run("DeleteAndClear", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		put(t, ctx, s, &doc{ID: "a", ProjectID: "p1"})
		put(t, ctx, s, &doc{ID: "b", ProjectID: "p1"})

		require.NoError(t, s.Delete(ctx, storage.TableIssues, "a"))
		docs, err := s.Query(ctx, storage.TableIssues, storage.By("projectId", "p1"))
		require.NoError(t, err)
		assert.Len(t, docs, 1)

		require.NoError(t, s.Clear(ctx, storage.TableIssues))
		docs, err = s.All(ctx, storage.TableIssues)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("TransactionCommits", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		err := s.RunInTransaction(ctx, []storage.Table{storage.TableIssues, storage.TableProjects},
			func(tx storage.Transaction) error {
				put(t, ctx, tx, &doc{ID: "a", ProjectID: "p1"})
				// Read-your-writes inside the transaction.
				got, err := storage.Get[doc](ctx, tx, storage.TableIssues, "a")
				if err != nil {
					return err
				}
				assert.Equal(t, "p1", got.ProjectID)
				return tx.Put(ctx, storage.TableProjects, "p1", []byte(`{"id":"p1","key":"TP"}`))
			})
		require.NoError(t, err)

		_, err = s.Get(ctx, storage.TableIssues, "a")
		assert.NoError(t, err)
		_, err = s.Get(ctx, storage.TableProjects, "p1")
		assert.NoError(t, err)
	})

	t.Run("TransactionRollsBackOnError", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		put(t, ctx, s, &doc{ID: "keep", ProjectID: "p1"})

		boom := errors.New("boom")
		err := s.RunInTransaction(ctx, []storage.Table{storage.TableIssues, storage.TableProjects},
			func(tx storage.Transaction) error {
				put(t, ctx, tx, &doc{ID: "a", ProjectID: "p1"})
				require.NoError(t, tx.Delete(ctx, storage.TableIssues, "keep"))
				require.NoError(t, tx.Put(ctx, storage.TableProjects, "p1", []byte(`{"id":"p1"}`)))
				return boom
			})
		assert.ErrorIs(t, err, boom)

		_, err = s.Get(ctx, storage.TableIssues, "a")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.Get(ctx, storage.TableIssues, "keep")
		assert.NoError(t, err)
		_, err = s.Get(ctx, storage.TableProjects, "p1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("TransactionRollsBackOnPanic", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		assert.PanicsWithValue(t, "kaboom", func() {
			_ = s.RunInTransaction(ctx, []storage.Table{storage.TableIssues}, func(tx storage.Transaction) error {
				put(t, ctx, tx, &doc{ID: "a"})
				panic("kaboom")
			})
		})

		_, err := s.Get(ctx, storage.TableIssues, "a")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// The store stays usable after a panicking transaction.
		put(t, ctx, s, &doc{ID: "b"})
	})

	t.Run("TransactionScope", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		err := s.RunInTransaction(ctx, []storage.Table{storage.TableIssues}, func(tx storage.Transaction) error {
			_, err := tx.All(ctx, storage.TableSprints)
			return err
		})
		assert.ErrorIs(t, err, storage.ErrTableNotInScope)
	})

	t.Run("ViewIsConsistent", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		put(t, ctx, s, &doc{ID: "a", ProjectID: "p1"})

		err := s.View(ctx, []storage.Table{storage.TableIssues}, func(r storage.Reader) error {
			docs, err := r.Query(ctx, storage.TableIssues, storage.By("projectId", "p1"))
			if err != nil {
				return err
			}
			assert.Len(t, docs, 1)
			_, err = r.All(ctx, storage.TableSprints)
			assert.ErrorIs(t, err, storage.ErrTableNotInScope)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("ConcurrentTransactionsSerialize", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Put(ctx, storage.TableMeta, "counter", []byte(`{"id":"counter","n":0}`)))

		type counter struct {
			ID string `json:"id"`
			N  int    `json:"n"`
		}
		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.RunInTransaction(ctx, []storage.Table{storage.TableMeta}, func(tx storage.Transaction) error {
					c, err := storage.Get[counter](ctx, tx, storage.TableMeta, "counter")
					if err != nil {
						return err
					}
					c.N++
					b, _ := json.Marshal(c)
					return tx.Put(ctx, storage.TableMeta, "counter", b)
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		c, err := storage.Get[counter](ctx, s, storage.TableMeta, "counter")
		require.NoError(t, err)
		assert.Equal(t, workers, c.N, fmt.Sprintf("lost update: %+v", c))
	})

	t.Run("ClosedStore", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Close())
		_, err := s.All(ctx, storage.TableIssues)
		assert.ErrorIs(t, err, storage.ErrClosed)
	})
}
