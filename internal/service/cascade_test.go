package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

func TestUnitOfWorkStopsAtFirstError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	var ran []string
	u := &unitOfWork{
		name:   "test-unit",
		tables: []storage.Table{storage.TableSettings},
		steps: []step{
			{name: "write", run: func(ctx context.Context, tx storage.Transaction) error {
				ran = append(ran, "write")
				return storage.Put(ctx, tx, storage.TableSettings, &types.Setting{Key: "k", Value: "v"})
			}},
			{name: "fail", run: func(context.Context, storage.Transaction) error {
				ran = append(ran, "fail")
				return boom
			}},
			{name: "never", run: func(context.Context, storage.Transaction) error {
				ran = append(ran, "never")
				return nil
			}},
		},
	}

	err := f.svc.execute(f.ctx, u)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "test-unit: fail")
	assert.Equal(t, []string{"write", "fail"}, ran)

	_, ok, err := f.svc.GetSetting(f.ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "earlier steps roll back")
}

func TestDeleteIssueUnitInIsolation(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "TP")
	parent := f.issue(t, IssueInput{ProjectID: p.ID, Type: types.TypeEpic})
	sub := f.issue(t, IssueInput{ProjectID: p.ID, Type: types.TypeSubtask, ParentID: parent.ID})
	child := f.issue(t, IssueInput{ProjectID: p.ID, EpicID: parent.ID})

	u := deleteIssueUnit(parent.ID, f.clock.now)
	assert.Equal(t, "delete-issue", u.name)
	require.NoError(t, f.svc.execute(f.ctx, u))

	_, err := f.svc.GetIssue(f.ctx, sub.ID)
	require.ErrorIs(t, err, types.ErrIssueNotFound)
	got, err := f.svc.GetIssue(f.ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, got.EpicID)

	activity, err := storage.Query[types.ActivityLog](f.ctx, f.svc.Store(), storage.TableActivityLog, storage.By("issueId", sub.ID))
	require.NoError(t, err)
	assert.Empty(t, activity)
}

func TestSubtaskTree(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "TP")
	root := f.issue(t, IssueInput{ProjectID: p.ID})
	a := f.issue(t, IssueInput{ProjectID: p.ID, Type: types.TypeSubtask, ParentID: root.ID})
	b := f.issue(t, IssueInput{ProjectID: p.ID, Type: types.TypeSubtask, ParentID: root.ID})

	ids, err := subtaskTree(f.ctx, f.svc.Store(), root.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{root.ID, a.ID, b.ID}, ids)
}

func TestDeleteProjectUnitTables(t *testing.T) {
	u := deleteProjectUnit("p")
	assert.Equal(t, "delete-project", u.name)
	for _, table := range projectChildTables {
		assert.Contains(t, u.tables, table)
	}
	assert.Contains(t, u.tables, storage.TableSettings)
	assert.Equal(t, "clear default project", u.steps[len(u.steps)-2].name)
	assert.Equal(t, "delete project", u.steps[len(u.steps)-1].name)
}
