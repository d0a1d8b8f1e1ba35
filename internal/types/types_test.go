package types

import (
	"strings"
	"testing"
)

func TestIssueValidation(t *testing.T) {
	pts := func(v float64) *float64 { return &v }
	tests := []struct {
		name    string
		issue   Issue
		wantErr bool
		errMsg  string
	}{
		{
			name:  "valid issue",
			issue: Issue{ID: "i1", Title: "Valid issue", Type: TypeStory, Priority: PriorityMedium},
		},
		{
			name:    "missing title",
			issue:   Issue{ID: "i1", Title: "  ", Type: TypeStory, Priority: PriorityMedium},
			wantErr: true,
			errMsg:  "title is required",
		},
		{
			name:    "title too long",
			issue:   Issue{ID: "i1", Title: strings.Repeat("x", 501), Type: TypeStory, Priority: PriorityMedium},
			wantErr: true,
			errMsg:  "title must be 500 characters or less",
		},
		{
			name:    "invalid type",
			issue:   Issue{ID: "i1", Title: "t", Type: "feature", Priority: PriorityMedium},
			wantErr: true,
			errMsg:  "invalid issue type",
		},
		{
			name:    "invalid priority",
			issue:   Issue{ID: "i1", Title: "t", Type: TypeBug, Priority: "p0"},
			wantErr: true,
			errMsg:  "invalid priority",
		},
		{
			name:    "negative points",
			issue:   Issue{ID: "i1", Title: "t", Type: TypeBug, Priority: PriorityLow, StoryPoints: pts(-2)},
			wantErr: true,
			errMsg:  "story points cannot be negative",
		},
		{
			name:    "subtask without parent",
			issue:   Issue{ID: "i1", Title: "t", Type: TypeSubtask, Priority: PriorityLow},
			wantErr: true,
			errMsg:  "sub-tasks require a parent issue",
		},
		{
			name:    "own parent",
			issue:   Issue{ID: "i1", Title: "t", Type: TypeSubtask, Priority: PriorityLow, ParentID: "i1"},
			wantErr: true,
			errMsg:  "cannot be its own parent",
		},
		{
			name:    "own epic",
			issue:   Issue{ID: "i1", Title: "t", Type: TypeTask, Priority: PriorityLow, EpicID: "i1"},
			wantErr: true,
			errMsg:  "cannot be its own epic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.issue.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestIssuePoints(t *testing.T) {
	var i Issue
	if got := i.Points(); got != 0 {
		t.Errorf("Points() of unestimated issue = %v, want 0", got)
	}
	v := 2.5
	i.StoryPoints = &v
	if got := i.Points(); got != 2.5 {
		t.Errorf("Points() = %v, want 2.5", got)
	}
}

func TestValidProjectKey(t *testing.T) {
	for key, want := range map[string]bool{
		"TP":          true,
		"CORE2":       true,
		"ABCDEFGHIJ":  true,
		"T":           false,
		"tp":          false,
		"2TP":         false,
		"T-P":         false,
		"ABCDEFGHIJK": false,
		"":            false,
	} {
		if got := ValidProjectKey(key); got != want {
			t.Errorf("ValidProjectKey(%q) = %v, want %v", key, got, want)
		}
	}
	if got := IssueKey("TP", 12); got != "TP-12" {
		t.Errorf("IssueKey = %q, want TP-12", got)
	}
}

func TestEnumValidity(t *testing.T) {
	for _, it := range []IssueType{TypeStory, TypeBug, TypeTask, TypeEpic, TypeSubtask} {
		if !it.IsValid() {
			t.Errorf("%s should be a valid issue type", it)
		}
	}
	for _, p := range []Priority{PriorityHighest, PriorityHigh, PriorityMedium, PriorityLow, PriorityLowest} {
		if !p.IsValid() {
			t.Errorf("%s should be a valid priority", p)
		}
	}
	for _, c := range []StatusCategory{CategoryTodo, CategoryInProgress, CategoryDone} {
		if !c.IsValid() {
			t.Errorf("%s should be a valid category", c)
		}
	}
	for _, ft := range []CustomFieldType{FieldText, FieldNumber, FieldSelect, FieldDate} {
		if !ft.IsValid() {
			t.Errorf("%s should be a valid field type", ft)
		}
	}
	if IssueType("feature").IsValid() || Priority("urgent").IsValid() ||
		StatusCategory("blocked").IsValid() || CustomFieldType("color").IsValid() {
		t.Error("unknown enum values must be invalid")
	}
}

func TestSprintTransitions(t *testing.T) {
	tests := []struct {
		from, to SprintStatus
		want     bool
	}{
		{SprintFuture, SprintActive, true},
		{SprintFuture, SprintCompleted, false},
		{SprintActive, SprintCompleted, true},
		{SprintActive, SprintFuture, false},
		{SprintCompleted, SprintActive, false},
		{SprintCompleted, SprintFuture, false},
		{SprintActive, SprintActive, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestBoardColumns(t *testing.T) {
	b := &Board{Columns: DefaultColumns()}
	if got := b.FirstColumn(); got != "todo" {
		t.Errorf("FirstColumn() = %q, want todo", got)
	}
	if !b.IsDone("done") || b.IsDone("in_review") || b.IsDone("missing") {
		t.Error("IsDone should only hold for the done column")
	}
	if _, ok := b.Column("in_progress"); !ok {
		t.Error("Column(in_progress) not found")
	}

	reordered := &Board{Columns: []Column{
		{ID: "late", SortOrder: 5},
		{ID: "early", SortOrder: 1},
	}}
	if got := reordered.FirstColumn(); got != "early" {
		t.Errorf("FirstColumn() = %q, want early", got)
	}
	if got := (&Board{}).FirstColumn(); got != "" {
		t.Errorf("FirstColumn() of empty board = %q", got)
	}
}

func TestValidateColumns(t *testing.T) {
	if err := ValidateColumns(DefaultColumns()); err != nil {
		t.Fatalf("default columns: %v", err)
	}
	bad := map[string][]Column{
		"empty":     nil,
		"no id":     {{Name: "x", StatusCategory: CategoryTodo}},
		"duplicate": {{ID: "a", StatusCategory: CategoryTodo}, {ID: "a", StatusCategory: CategoryDone}},
		"category":  {{ID: "a", StatusCategory: "blocked"}},
	}
	for name, cols := range bad {
		if err := ValidateColumns(cols); !isValidation(err) {
			t.Errorf("%s: got %v, want a validation error", name, err)
		}
	}
}

func TestWorkflowValidate(t *testing.T) {
	good := Workflow{Name: "Flow", Statuses: []WorkflowStatus{
		{ID: "open", Name: "Open", Category: CategoryTodo},
		{ID: "shipped", Category: CategoryDone},
	}}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	cols := good.Columns()
	if len(cols) != 2 || cols[1].Name != "shipped" || cols[1].SortOrder != 1 {
		t.Errorf("Columns() = %+v", cols)
	}

	tests := map[string]Workflow{
		"no name":      {Statuses: good.Statuses},
		"one status":   {Name: "x", Statuses: good.Statuses[:1]},
		"no done":      {Name: "x", Statuses: []WorkflowStatus{{ID: "a", Category: CategoryTodo}, {ID: "b", Category: CategoryInProgress}}},
		"duplicate id": {Name: "x", Statuses: []WorkflowStatus{{ID: "a", Category: CategoryTodo}, {ID: "a", Category: CategoryDone}}},
		"bad category": {Name: "x", Statuses: []WorkflowStatus{{ID: "a", Category: "later"}, {ID: "b", Category: CategoryDone}}},
		"missing id":   {Name: "x", Statuses: []WorkflowStatus{{Category: CategoryTodo}, {ID: "b", Category: CategoryDone}}},
	}
	for name, wf := range tests {
		if err := wf.Validate(); !isValidation(err) {
			t.Errorf("%s: got %v, want a validation error", name, err)
		}
	}
}

func TestEntityIDs(t *testing.T) {
	for want, got := range map[string]string{
		"p": (&Project{ID: "p"}).EntityID(),
		"i": (&Issue{ID: "i"}).EntityID(),
		"s": (&Sprint{ID: "s"}).EntityID(),
		"k": (&Setting{Key: "k"}).EntityID(),
	} {
		if got != want {
			t.Errorf("EntityID() = %q, want %q", got, want)
		}
	}
}
