package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/boards/internal/types"
)

func TestLabels(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "TP")
	ui, err := f.svc.CreateLabel(f.ctx, p.ID, "ui", "#f00", actor)
	require.NoError(t, err)
	_, err = f.svc.CreateLabel(f.ctx, p.ID, "backend", "", actor)
	require.NoError(t, err)
	_, err = f.svc.CreateLabel(f.ctx, p.ID, "UI", "", actor)
	require.ErrorIs(t, err, types.ErrValidation, "names are unique per project")

	issue := f.issue(t, IssueInput{ProjectID: p.ID, Labels: []string{"ui", "backend"}})

	_, err = f.svc.UpdateLabel(f.ctx, ui.ID, str("frontend"), nil, actor)
	require.NoError(t, err)
	got, err := f.svc.GetIssue(f.ctx, issue.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"frontend", "backend"}, got.Labels)

	require.NoError(t, f.svc.DeleteLabel(f.ctx, ui.ID, actor))
	got, err = f.svc.GetIssue(f.ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"backend"}, got.Labels)

	labels, err := f.svc.ListLabels(f.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "backend", labels[0].Name)

	_, err = f.svc.CreateLabel(f.ctx, "missing", "x", "", actor)
	require.ErrorIs(t, err, types.ErrProjectNotFound)
}

func TestComponents(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "TP")
	api, err := f.svc.CreateComponent(f.ctx, ComponentInput{ProjectID: p.ID, Name: "api"}, actor)
	require.NoError(t, err)
	issue := f.issue(t, IssueInput{ProjectID: p.ID, Components: []string{"api"}})

	_, err = f.svc.UpdateComponent(f.ctx, api.ID, ComponentInput{Name: "gateway", Description: "edge"}, actor)
	require.NoError(t, err)
	got, err := f.svc.GetIssue(f.ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"gateway"}, got.Components)

	require.NoError(t, f.svc.DeleteComponent(f.ctx, api.ID, actor))
	got, err = f.svc.GetIssue(f.ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Components)

	list, err := f.svc.ListComponents(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSavedFilters(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "TP")
	sprint, err := f.svc.CreateSprint(f.ctx, SprintInput{ProjectID: p.ID}, actor)
	require.NoError(t, err)
	bug := f.issue(t, IssueInput{ProjectID: p.ID, Type: types.TypeBug})
	f.issue(t, IssueInput{ProjectID: p.ID, Type: types.TypeBug, SprintID: sprint.ID})
	f.issue(t, IssueInput{ProjectID: p.ID})

	filter, err := f.svc.SaveFilter(f.ctx, p.ID, "backlog bugs", map[string]string{
		"type":     "bug",
		"sprintId": Backlog,
	}, actor)
	require.NoError(t, err)

	issues, err := f.svc.ApplyFilter(f.ctx, filter.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, bug.ID, issues[0].ID)

	_, err = f.svc.SaveFilter(f.ctx, p.ID, "bad", map[string]string{"colour": "red"}, actor)
	require.ErrorIs(t, err, types.ErrValidation)
	_, err = f.svc.SaveFilter(f.ctx, p.ID, "bad", map[string]string{"priority": "urgent"}, actor)
	require.ErrorIs(t, err, types.ErrValidation)

	renamed := "all bugs"
	filter, err = f.svc.UpdateFilter(f.ctx, filter.ID, &renamed, map[string]string{"type": "bug"}, actor)
	require.NoError(t, err)
	assert.Equal(t, "all bugs", filter.Name)
	issues, err = f.svc.ApplyFilter(f.ctx, filter.ID)
	require.NoError(t, err)
	assert.Len(t, issues, 2)
	_, err = f.svc.UpdateFilter(f.ctx, filter.ID, nil, map[string]string{"colour": "red"}, actor)
	require.ErrorIs(t, err, types.ErrValidation)

	filters, err := f.svc.ListFilters(f.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "bug", filters[0].Criteria["type"])
	assert.NotContains(t, filters[0].Criteria, "sprintId")
	require.NoError(t, f.svc.DeleteFilter(f.ctx, filter.ID, actor))
	_, err = f.svc.ApplyFilter(f.ctx, filter.ID)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestCustomFields(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "TP")

	tests := []struct {
		name string
		in   CustomFieldInput
		ok   bool
	}{
		{"text", CustomFieldInput{Name: "Env", FieldType: types.FieldText}, true},
		{"select", CustomFieldInput{Name: "Tier", FieldType: types.FieldSelect, Options: []string{"a", "b", "a"}}, true},
		{"select without options", CustomFieldInput{Name: "Empty", FieldType: types.FieldSelect}, false},
		{"options on text", CustomFieldInput{Name: "Odd", FieldType: types.FieldText, Options: []string{"x"}}, false},
		{"bad type", CustomFieldInput{Name: "Bad", FieldType: "color"}, false},
		{"duplicate", CustomFieldInput{Name: "env", FieldType: types.FieldNumber}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.ProjectID = p.ID
			field, err := f.svc.CreateCustomField(f.ctx, tt.in, actor)
			if !tt.ok {
				require.ErrorIs(t, err, types.ErrValidation)
				return
			}
			require.NoError(t, err)
			if tt.in.FieldType == types.FieldSelect {
				assert.Equal(t, []string{"a", "b"}, field.Options)
			}
		})
	}

	fields, err := f.svc.ListCustomFields(f.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, fields, 2)

	updated, err := f.svc.UpdateCustomField(f.ctx, fields[0].ID, CustomFieldInput{Name: "Env", FieldType: types.FieldDate, Required: true}, actor)
	require.NoError(t, err)
	assert.Equal(t, types.FieldDate, updated.FieldType)
	assert.Equal(t, p.ID, updated.ProjectID)

	require.NoError(t, f.svc.DeleteCustomField(f.ctx, fields[0].ID, actor))
	fields, err = f.svc.ListCustomFields(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, fields, 1)
}

func TestUsers(t *testing.T) {
	f := newFixture(t)
	ada, err := f.svc.CreateUser(f.ctx, UserInput{Name: "Ada", Email: "Ada@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", ada.Email)

	_, err = f.svc.CreateUser(f.ctx, UserInput{Name: "Other", Email: "ada@example.com"})
	require.ErrorIs(t, err, types.ErrValidation)
	_, err = f.svc.CreateUser(f.ctx, UserInput{Name: "Bad", Email: "not-an-email"})
	require.ErrorIs(t, err, types.ErrValidation)
	_, err = f.svc.CreateUser(f.ctx, UserInput{Name: " "})
	require.ErrorIs(t, err, types.ErrValidation)

	_, err = f.svc.UpdateUser(f.ctx, ada.ID, UserInput{Name: "Ada L.", Email: "ada@example.com"})
	require.NoError(t, err)
	got, err := f.svc.GetUserByEmail(f.ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.Name)

	_, err = f.svc.GetUser(f.ctx, "missing")
	require.ErrorIs(t, err, types.ErrUserNotFound)
	users, err := f.svc.ListUsers(f.ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSettings(t *testing.T) {
	f := newFixture(t)
	_, ok, err := f.svc.GetSetting(f.ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.svc.SetSetting(f.ctx, "theme", "dark"))
	require.NoError(t, f.svc.SetSetting(f.ctx, "theme", "light"))
	v, ok, err := f.svc.GetSetting(f.ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", v)

	all, err := f.svc.ListSettings(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"theme": "light"}, all)

	require.NoError(t, f.svc.DeleteSetting(f.ctx, "theme"))
	require.NoError(t, f.svc.DeleteSetting(f.ctx, "theme"))
	require.ErrorIs(t, f.svc.SetSetting(f.ctx, " ", "x"), types.ErrValidation)
}
