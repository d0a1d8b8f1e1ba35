package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

func TestCreateProject(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.CreateProject(f.ctx, ProjectInput{Key: " tp ", Name: "Test Project"}, actor)
	require.NoError(t, err)
	assert.Equal(t, "TP", p.Key)
	assert.Zero(t, p.IssueCounter)
	assert.Equal(t, f.clock.now(), p.CreatedAt)

	board, err := f.svc.GetBoard(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, board.ProjectID)
	assert.Equal(t, types.DefaultColumns(), board.Columns)

	byKey, err := f.svc.GetProjectByKey(f.ctx, "tp")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byKey.ID)
}

func TestCreateProjectValidation(t *testing.T) {
	f := newFixture(t)
	f.project(t, "TP")

	tests := []struct {
		name string
		in   ProjectInput
	}{
		{"bad key", ProjectInput{Key: "1X", Name: "x"}},
		{"short key", ProjectInput{Key: "T", Name: "x"}},
		{"duplicate key", ProjectInput{Key: "tp", Name: "x"}},
		{"missing name", ProjectInput{Key: "OK", Name: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateProject(f.ctx, tt.in, actor)
			require.ErrorIs(t, err, types.ErrValidation)
		})
	}

	_, err := f.svc.CreateProject(f.ctx, ProjectInput{Key: "WF", Name: "x", WorkflowID: "nope"}, actor)
	require.ErrorIs(t, err, types.ErrWorkflowNotFound)
	_, err = f.svc.GetProjectByKey(f.ctx, "WF")
	require.ErrorIs(t, err, types.ErrProjectNotFound)
}

func TestCreateProjectFromWorkflow(t *testing.T) {
	f := newFixture(t)
	wf, err := f.svc.CreateWorkflow(f.ctx, WorkflowInput{
		Name: "Kanban",
		Statuses: []types.WorkflowStatus{
			{ID: "open", Name: "Open", Category: types.CategoryTodo},
			{ID: "closed", Category: types.CategoryDone},
		},
	}, actor)
	require.NoError(t, err)

	p, err := f.svc.CreateProject(f.ctx, ProjectInput{Key: "KB", Name: "Kanban", WorkflowID: wf.ID}, actor)
	require.NoError(t, err)
	board, err := f.svc.GetBoard(f.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, board.Columns, 2)
	assert.Equal(t, "closed", board.Columns[1].ID)
	assert.Equal(t, "closed", board.Columns[1].Name)

	issue := f.issue(t, IssueInput{ProjectID: p.ID})
	assert.Equal(t, "open", issue.Status)
}

func TestUpdateProject(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "TP")
	f.clock.advance(time.Minute)

	archived := true
	got, err := f.svc.UpdateProject(f.ctx, p.ID, ProjectPatch{Name: str("Renamed"), IsArchived: &archived}, actor)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "TP", got.Key)
	assert.True(t, got.UpdatedAt.After(p.UpdatedAt))

	active, err := f.svc.ListProjects(f.ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := f.svc.ListProjects(f.ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.svc.UpdateProject(f.ctx, "missing", ProjectPatch{}, actor)
	require.ErrorIs(t, err, types.ErrProjectNotFound)
	_, err = f.svc.UpdateProject(f.ctx, p.ID, ProjectPatch{Name: str("")}, actor)
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestUpdateProjectSwitchesWorkflow(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "TP")
	wf, err := f.svc.CreateWorkflow(f.ctx, WorkflowInput{
		Name: "Simple",
		Statuses: []types.WorkflowStatus{
			{ID: "todo", Category: types.CategoryTodo},
			{ID: "done", Category: types.CategoryDone},
		},
	}, actor)
	require.NoError(t, err)

	stuck := f.issue(t, IssueInput{ProjectID: p.ID, Status: "in_review"})
	_, err = f.svc.UpdateProject(f.ctx, p.ID, ProjectPatch{WorkflowID: &wf.ID}, actor)
	require.ErrorIs(t, err, types.ErrValidation, "in_review still holds an issue")

	_, err = f.svc.UpdateIssue(f.ctx, stuck.ID, IssuePatch{Status: str("todo")}, actor)
	require.NoError(t, err)
	_, err = f.svc.UpdateProject(f.ctx, p.ID, ProjectPatch{WorkflowID: &wf.ID}, actor)
	require.NoError(t, err)
	board, err := f.svc.GetBoard(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, board.Columns, 2)

	require.NoError(t, f.svc.DeleteWorkflow(f.ctx, wf.ID, actor))
	got, err := f.svc.GetProject(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.WorkflowID)
}

func TestDeleteProjectRemovesEveryChildRow(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "TP")
	other := f.project(t, "OT")

	sprint, err := f.svc.CreateSprint(f.ctx, SprintInput{ProjectID: p.ID}, actor)
	require.NoError(t, err)
	epic := f.issue(t, IssueInput{ProjectID: p.ID, Type: types.TypeEpic})
	story := f.issue(t, IssueInput{ProjectID: p.ID, EpicID: epic.ID, SprintID: sprint.ID})
	f.issue(t, IssueInput{ProjectID: p.ID, Type: types.TypeSubtask, ParentID: story.ID})
	_, err = f.svc.AddComment(f.ctx, story.ID, "note", actor)
	require.NoError(t, err)
	_, err = f.svc.CreateLabel(f.ctx, p.ID, "ui", "", actor)
	require.NoError(t, err)
	_, err = f.svc.CreateComponent(f.ctx, ComponentInput{ProjectID: p.ID, Name: "api"}, actor)
	require.NoError(t, err)
	_, err = f.svc.SaveFilter(f.ctx, p.ID, "mine", map[string]string{"assigneeId": actor}, actor)
	require.NoError(t, err)
	_, err = f.svc.CreateCustomField(f.ctx, CustomFieldInput{ProjectID: p.ID, Name: "Env", FieldType: types.FieldText}, actor)
	require.NoError(t, err)
	survivor := f.issue(t, IssueInput{ProjectID: other.ID})

	require.NoError(t, f.svc.DeleteProject(f.ctx, p.ID, actor))

	_, err = f.svc.GetProject(f.ctx, p.ID)
	require.ErrorIs(t, err, types.ErrProjectNotFound)

	store := f.svc.Store()
	for _, table := range []storage.Table{
		storage.TableIssues, storage.TableSprints, storage.TableBoards, storage.TableLabels,
		storage.TableComponents, storage.TableFilters, storage.TableCustomFields,
	} {
		ids, err := queryIDs(f.ctx, store, table, storage.By("projectId", p.ID))
		require.NoError(t, err)
		assert.Empty(t, ids, "table %s", table)
	}
	for _, table := range []storage.Table{storage.TableComments, storage.TableActivityLog} {
		rows, err := storage.All[struct {
			IssueID string `json:"issueId"`
		}](f.ctx, store, table)
		require.NoError(t, err)
		for _, r := range rows {
			assert.Equal(t, survivor.ID, r.IssueID, "table %s", table)
		}
	}

	_, err = f.svc.GetIssue(f.ctx, survivor.ID)
	require.NoError(t, err)
	require.ErrorIs(t, f.svc.DeleteProject(f.ctx, p.ID, actor), types.ErrProjectNotFound)
}

func TestDeleteProjectClearsDefaultProject(t *testing.T) {
	tests := []struct {
		name    string
		value   func(p, other *types.Project) string
		cleared bool
	}{
		{"default by key", func(p, _ *types.Project) string { return p.Key }, true},
		{"default by id", func(p, _ *types.Project) string { return p.ID }, true},
		{"other project kept", func(_, other *types.Project) string { return other.Key }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.project(t, "TP")
			other := f.project(t, "OT")
			want := tt.value(p, other)
			require.NoError(t, f.svc.SetSetting(f.ctx, DefaultProjectSetting, want))

			require.NoError(t, f.svc.DeleteProject(f.ctx, p.ID, actor))

			got, ok, err := f.svc.GetSetting(f.ctx, DefaultProjectSetting)
			require.NoError(t, err)
			assert.Equal(t, !tt.cleared, ok)
			if !tt.cleared {
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestUpdateBoardColumns(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "TP")
	review := f.issue(t, IssueInput{ProjectID: p.ID, Status: "in_review"})

	columns := []types.Column{
		{ID: "todo", Name: "To Do", StatusCategory: types.CategoryTodo},
		{ID: "done", Name: "Done", StatusCategory: types.CategoryDone},
		{ID: "in_review", Name: "Review", StatusCategory: types.CategoryDone, SortOrder: 99},
	}
	_, err := f.svc.UpdateBoardColumns(f.ctx, p.ID, columns[:2], actor)
	require.ErrorIs(t, err, types.ErrValidation)

	board, err := f.svc.UpdateBoardColumns(f.ctx, p.ID, columns, actor)
	require.NoError(t, err)
	assert.Equal(t, 2, board.Columns[2].SortOrder)

	got, err := f.svc.GetIssue(f.ctx, review.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.ResolvedAt, "column moved into done")

	_, err = f.svc.UpdateBoardColumns(f.ctx, p.ID, nil, actor)
	require.ErrorIs(t, err, types.ErrValidation)
	_, err = f.svc.UpdateBoardColumns(f.ctx, "missing", columns, actor)
	require.ErrorIs(t, err, types.ErrProjectNotFound)
}

func TestCreateWorkflowValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateWorkflow(f.ctx, WorkflowInput{
		Name:     "One",
		Statuses: []types.WorkflowStatus{{ID: "done", Category: types.CategoryDone}},
	}, actor)
	require.ErrorIs(t, err, types.ErrValidation)

	_, err = f.svc.GetWorkflow(f.ctx, "missing")
	require.ErrorIs(t, err, types.ErrWorkflowNotFound)
	require.ErrorIs(t, f.svc.DeleteWorkflow(f.ctx, "missing", actor), types.ErrWorkflowNotFound)

	list, err := f.svc.ListWorkflows(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
