package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/types"
)

func TestDecodeWorkflow(t *testing.T) {
	src := `
name = "Kanban"
description = "Three-stage flow"

[[statuses]]
id = "todo"
name = "To Do"
category = "todo"

[[statuses]]
id = "doing"
name = "Doing"
category = "in_progress"

[[statuses]]
id = "done"
name = "Done"
category = "done"
`
	in, err := decodeWorkflow(strings.NewReader(src))
	if err != nil {
		t.Fatalf("decodeWorkflow() error = %v", err)
	}
	if in.Name != "Kanban" || len(in.Statuses) != 3 {
		t.Fatalf("decodeWorkflow() = %+v", in)
	}
	if in.Statuses[1].Category != types.CategoryInProgress {
		t.Errorf("status 1 category = %q, want in_progress", in.Statuses[1].Category)
	}

	setupTestService(t)
	wf, err := svc.CreateWorkflow(rootCtx, in, "tester")
	if err != nil {
		t.Fatalf("CreateWorkflow() error = %v", err)
	}
	var buf strings.Builder
	if err := encodeWorkflow(&buf, wf); err != nil {
		t.Fatalf("encodeWorkflow() error = %v", err)
	}
	again, err := decodeWorkflow(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("decodeWorkflow(encoded) error = %v\n%s", err, buf.String())
	}
	if again.Name != wf.Name || len(again.Statuses) != len(wf.Statuses) {
		t.Errorf("encoded workflow decoded to %+v", again)
	}
}

func TestDecodeWorkflowRejectsUnknownKeys(t *testing.T) {
	_, err := decodeWorkflow(strings.NewReader("name = \"x\"\ncolour = \"red\"\n"))
	if err == nil || !strings.Contains(err.Error(), "colour") {
		t.Errorf("decodeWorkflow() error = %v, want unknown key colour", err)
	}
	if _, err := decodeWorkflow(strings.NewReader("name = ")); err == nil {
		t.Error("decodeWorkflow(invalid toml) should fail")
	}
}

func TestParseColumnSpecs(t *testing.T) {
	cols, err := parseColumnSpecs([]string{"todo:Backlog:todo", "doing::in_progress", "done:Done:done", "later"})
	if err != nil {
		t.Fatalf("parseColumnSpecs() error = %v", err)
	}
	want := []types.Column{
		{ID: "todo", Name: "Backlog", StatusCategory: types.CategoryTodo, SortOrder: 0},
		{ID: "doing", Name: "doing", StatusCategory: types.CategoryInProgress, SortOrder: 1},
		{ID: "done", Name: "Done", StatusCategory: types.CategoryDone, SortOrder: 2},
		{ID: "later", Name: "later", StatusCategory: types.CategoryTodo, SortOrder: 3},
	}
	if len(cols) != len(want) {
		t.Fatalf("got %d columns, want %d", len(cols), len(want))
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("column %d = %+v, want %+v", i, cols[i], want[i])
		}
	}

	for _, bad := range []string{":Name:todo", "x:X:finished"} {
		if _, err := parseColumnSpecs([]string{bad}); err == nil {
			t.Errorf("parseColumnSpecs(%q) should fail", bad)
		}
	}
}

func TestHideColumns(t *testing.T) {
	board := &types.Board{Columns: types.DefaultColumns()}
	issues := []*types.Issue{{Key: "TP-1", Status: "todo"}, {Key: "TP-2", Status: "in_review"}}

	view, kept := hideColumns(board, issues, []string{"in_review"})
	if len(view.Columns) != 3 {
		t.Errorf("visible columns = %d, want 3", len(view.Columns))
	}
	if len(kept) != 1 || kept[0].Key != "TP-1" {
		t.Errorf("visible issues = %v, want TP-1 only", kept)
	}
	if len(board.Columns) != 4 {
		t.Error("hideColumns modified the stored board")
	}

	if v, k := hideColumns(board, issues, nil); v != board || len(k) != 2 {
		t.Error("hideColumns(nil) should return its inputs")
	}
}

func TestIsStoreFile(t *testing.T) {
	tests := map[string]bool{
		"/x/.boards/boards.db":     true,
		"/x/.boards/boards.db-wal": true,
		"boards.db-journal":        true,
		"/x/.boards/events.log":    false,
		"/x/.boards/config.yaml":   false,
	}
	for name, want := range tests {
		if got := isStoreFile(name); got != want {
			t.Errorf("isStoreFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDescribeActivity(t *testing.T) {
	tests := []struct {
		row  types.ActivityLog
		want string
	}{
		{types.ActivityLog{Action: types.ActionCreated}, "created the issue"},
		{types.ActivityLog{Action: types.ActionCommentAdded}, "added a comment"},
		{types.ActivityLog{Action: types.ActionStatusChanged, Field: "status", FromValue: "todo", ToValue: "done"},
			"changed status from todo to done"},
		{types.ActivityLog{Action: types.ActionAssigneeChanged, ToValue: "alice"},
			"changed assignee from none to alice"},
	}
	for _, tt := range tests {
		if got := describeActivity(&tt.row); got != tt.want {
			t.Errorf("describeActivity(%s) = %q, want %q", tt.row.Action, got, tt.want)
		}
	}
}

func TestCommentBody(t *testing.T) {
	got, err := commentBody([]string{"looks", "good"}, strings.NewReader("ignored"))
	if err != nil || got != "looks good" {
		t.Errorf("commentBody(args) = %q, %v", got, err)
	}
	got, err = commentBody([]string{"-"}, strings.NewReader("from stdin\n"))
	if err != nil || got != "from stdin\n" {
		t.Errorf("commentBody(-) = %q, %v", got, err)
	}
}

func TestExportPath(t *testing.T) {
	now := time.Date(2026, 3, 16, 9, 30, 0, 0, time.UTC)
	if got := exportPath("out.json", "exports", now); got != "out.json" {
		t.Errorf("explicit output = %q", got)
	}
	if got := exportPath("", "", now); got != "" {
		t.Errorf("no output or dir = %q, want stdout", got)
	}
	want := "exports/boards-20260316-093000.json"
	if got := exportPath("", "exports", now); got != want {
		t.Errorf("export dir = %q, want %q", got, want)
	}
}

func TestFormatCriteria(t *testing.T) {
	got := formatCriteria(map[string]string{"type": "bug", "label": "ui"})
	if got != "label=ui type=bug" {
		t.Errorf("formatCriteria() = %q", got)
	}
}

func TestFindNamed(t *testing.T) {
	setupTestService(t)
	p := createTestProject(t, "TP")
	label, err := svc.CreateLabel(rootCtx, p.ID, "ui", "#ff0000", "tester")
	if err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}
	labels, err := svc.ListLabels(rootCtx, p.ID)
	if err != nil {
		t.Fatalf("ListLabels() error = %v", err)
	}
	name := func(l *types.Label) string { return l.Name }

	for _, ref := range []string{label.ID, "UI"} {
		got, err := findNamed(labels, ref, name, "label")
		if err != nil || got.ID != label.ID {
			t.Errorf("findNamed(%q) = %v, %v", ref, got, err)
		}
	}
	if _, err := findNamed(labels, "backend", name, "label"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("findNamed(missing) error = %v, want not found", err)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("start: %w", types.ErrInvalidTransition), "invalid_transition"},
		{types.NotFound("issue", "x"), "not_found"},
		{types.NewValidationError("title", "required"), "validation"},
		{&types.ImportFormatError{Reason: "bad"}, "import_format"},
		{errors.New("boom"), ""},
	}
	for _, tt := range tests {
		if got := errorCode(tt.err); got != tt.want {
			t.Errorf("errorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestFormatVelocity(t *testing.T) {
	history := []service.SprintVelocity{
		{Name: "Sprint 1", CompletedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Velocity: 8},
		{Name: "Sprint 2", CompletedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), Velocity: 12},
	}
	out := formatVelocity(history, 80)
	for _, want := range []string{"Sprint 1", "2026-03-15", "average 10.0 over 2 sprints"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatVelocity() missing %q:\n%s", want, out)
		}
	}
}
