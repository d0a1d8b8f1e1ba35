package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s := New()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

// A view taken before a commit keeps seeing the old tables.
func TestViewSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Put(ctx, storage.TableProjects, "p1", []byte(`{"id":"p1","key":"A"}`)))

	err := s.View(ctx, []storage.Table{storage.TableProjects, storage.TableBoards}, func(r storage.Reader) error {
		require.NoError(t, s.RunInTransaction(ctx, []storage.Table{storage.TableProjects, storage.TableBoards},
			func(tx storage.Transaction) error {
				if err := tx.Delete(ctx, storage.TableProjects, "p1"); err != nil {
					return err
				}
				return tx.Put(ctx, storage.TableBoards, "b1", []byte(`{"id":"b1","projectId":"p1"}`))
			}))

		_, err := r.Get(ctx, storage.TableProjects, "p1")
		assert.NoError(t, err)
		boards, err := r.All(ctx, storage.TableBoards)
		assert.NoError(t, err)
		assert.Empty(t, boards)
		return nil
	})
	require.NoError(t, err)

	_, err = s.Get(ctx, storage.TableProjects, "p1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReturnedDocsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Put(ctx, storage.TableUsers, "u1", []byte(`{"id":"u1"}`)))

	doc, err := s.Get(ctx, storage.TableUsers, "u1")
	require.NoError(t, err)
	doc[0] = 'X'

	again, err := s.Get(ctx, storage.TableUsers, "u1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1"}`, string(again))
}
