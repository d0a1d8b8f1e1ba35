package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/boards/internal/types"
)

func TestEntityNotFoundMatchesStoreNotFound(t *testing.T) {
	err := fmt.Errorf("load: %w", types.NotFound("issue", "i-1"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, types.ErrIssueNotFound)
	assert.NotErrorIs(t, err, types.ErrSprintNotFound)

	wrapped := fmt.Errorf("get issues i-1: %w", ErrNotFound)
	assert.ErrorIs(t, wrapped, types.ErrNotFound)
}

func TestMatchIndex(t *testing.T) {
	issues, err := LookupTable(TableIssues)
	require.NoError(t, err)

	tests := []struct {
		name    string
		where   Where
		want    string
		wantErr bool
	}{
		{name: "single field", where: By("projectId", "p"), want: "projectId"},
		{name: "composite", where: By("projectId", "p").And("status", "todo"), want: "[projectId+status]"},
		{name: "composite reversed", where: By("status", "todo").And("projectId", "p"), want: "[projectId+status]"},
		{name: "project key", where: By("projectId", "p").And("key", "TP-1"), want: "[projectId+key]"},
		{name: "undeclared field", where: By("title", "x"), wantErr: true},
		{name: "undeclared pair", where: By("status", "todo").And("priority", "high"), wantErr: true},
		{name: "empty", where: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := issues.MatchIndex(tt.where)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownIndex)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ix.Name())
		})
	}
}

func TestWhereValuesFollowIndexOrder(t *testing.T) {
	w := By("status", "done").And("projectId", "p1")
	assert.Equal(t, []string{"p1", "done"}, w.Values(Index{"projectId", "status"}))
	assert.Equal(t, `status="done" AND projectId="p1"`, w.String())
}

func TestAndDoesNotAlias(t *testing.T) {
	base := make(Where, 0, 4)
	base = append(base, Cond{Field: "projectId", Value: "p"})
	a := base.And("status", "todo")
	b := base.And("key", "TP-1")
	assert.Equal(t, "todo", a[1].Value)
	assert.Equal(t, "TP-1", b[1].Value)
}

func TestLookupTable(t *testing.T) {
	_, err := LookupTable("nosuch")
	assert.ErrorIs(t, err, ErrUnknownTable)

	assert.Len(t, Tables(), len(Schema))
	assert.Equal(t, TableProjects, Tables()[0])
}

func TestIndexFields(t *testing.T) {
	doc := []byte(`{"id":"i1","projectId":"p1","sprintId":null,"storyPoints":3,"labels":["a"]}`)
	got, err := IndexFields(doc, []string{"projectId", "sprintId", "epicId", "storyPoints"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "", "", "3"}, got)

	_, err = IndexFields([]byte(`not json`), []string{"id"})
	assert.Error(t, err)
}
