// Package types defines core data structures for the boards project tracker.
package types

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Project is the top-level container for issues, sprints and the board.
type Project struct {
	ID           string    `json:"id"`
	Key          string    `json:"key"` // Immutable human prefix, e.g. "TP"
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	IssueCounter int       `json:"issueCounter"` // Last allocated issue number; never decreases
	Color        string    `json:"color,omitempty"`
	IsArchived   bool      `json:"isArchived"`
	WorkflowID   string    `json:"workflowId,omitempty"`
	LeadID       string    `json:"leadId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (p *Project) EntityID() string { return p.ID }

// projectKeyRe matches an uppercase project key such as "TP" or "CORE2".
var projectKeyRe = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)

// ValidProjectKey reports whether key can be used as a project key.
func ValidProjectKey(key string) bool {
	return projectKeyRe.MatchString(key)
}

// IssueKey formats the key for the n-th issue of a project.
func IssueKey(projectKey string, n int) string {
	return fmt.Sprintf("%s-%d", projectKey, n)
}

// Issue represents a trackable work item.
type Issue struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        IssueType  `json:"type"`
	Status      string     `json:"status"` // Board column id
	Priority    Priority   `json:"priority"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	ReporterID  string     `json:"reporterId,omitempty"`
	EpicID      string     `json:"epicId,omitempty"`
	ParentID    string     `json:"parentId,omitempty"`
	SprintID    string     `json:"sprintId,omitempty"` // Empty means backlog
	StoryPoints *float64   `json:"storyPoints,omitempty"`
	Labels      []string   `json:"labels"`
	Components  []string   `json:"components"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	SortOrder   float64    `json:"sortOrder"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

func (i *Issue) EntityID() string { return i.ID }

// Points returns the story points, treating unestimated issues as zero.
func (i *Issue) Points() float64 {
	if i.StoryPoints == nil {
		return 0
	}
	return *i.StoryPoints
}

// Validate checks field values that do not depend on other rows.
func (i *Issue) Validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return NewValidationError("title", "title is required")
	}
	if len(i.Title) > 500 {
		return NewValidationError("title", fmt.Sprintf("title must be 500 characters or less (got %d)", len(i.Title)))
	}
	if !i.Type.IsValid() {
		return NewValidationError("type", fmt.Sprintf("invalid issue type: %s", i.Type))
	}
	if !i.Priority.IsValid() {
		return NewValidationError("priority", fmt.Sprintf("invalid priority: %s", i.Priority))
	}
	if i.StoryPoints != nil && *i.StoryPoints < 0 {
		return NewValidationError("storyPoints", "story points cannot be negative")
	}
	if i.Type == TypeSubtask && i.ParentID == "" {
		return NewValidationError("parentId", "sub-tasks require a parent issue")
	}
	if i.ParentID != "" && i.ParentID == i.ID {
		return NewValidationError("parentId", "an issue cannot be its own parent")
	}
	if i.EpicID != "" && i.EpicID == i.ID {
		return NewValidationError("epicId", "an issue cannot be its own epic")
	}
	return nil
}

// IssueType categorizes the kind of work
type IssueType string

// Issue type constants
const (
	TypeStory   IssueType = "story"
	TypeBug     IssueType = "bug"
	TypeTask    IssueType = "task"
	TypeEpic    IssueType = "epic"
	TypeSubtask IssueType = "subtask"
)

// IsValid checks if the issue type value is valid
func (t IssueType) IsValid() bool {
	switch t {
	case TypeStory, TypeBug, TypeTask, TypeEpic, TypeSubtask:
		return true
	}
	return false
}

// Priority ranks issues from highest to lowest.
type Priority string

const (
	PriorityHighest Priority = "highest"
	PriorityHigh    Priority = "high"
	PriorityMedium  Priority = "medium"
	PriorityLow     Priority = "low"
	PriorityLowest  Priority = "lowest"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHighest, PriorityHigh, PriorityMedium, PriorityLow, PriorityLowest:
		return true
	}
	return false
}

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

const (
	SprintFuture    SprintStatus = "future"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

// CanTransitionTo reports whether the state machine allows moving to next.
// Sprints only move forward: future -> active -> completed.
func (s SprintStatus) CanTransitionTo(next SprintStatus) bool {
	switch s {
	case SprintFuture:
		return next == SprintActive
	case SprintActive:
		return next == SprintCompleted
	}
	return false
}

// Sprint is a time-boxed bucket of issues.
type Sprint struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"projectId"`
	Name        string       `json:"name"`
	Goal        string       `json:"goal,omitempty"`
	Status      SprintStatus `json:"status"`
	StartDate   *time.Time   `json:"startDate,omitempty"`
	EndDate     *time.Time   `json:"endDate,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	Velocity    *float64     `json:"velocity,omitempty"` // Set only on completion
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (s *Sprint) EntityID() string { return s.ID }

// StatusCategory groups board columns into todo / in progress / done.
type StatusCategory string

const (
	CategoryTodo       StatusCategory = "todo"
	CategoryInProgress StatusCategory = "in_progress"
	CategoryDone       StatusCategory = "done"
)

func (c StatusCategory) IsValid() bool {
	switch c {
	case CategoryTodo, CategoryInProgress, CategoryDone:
		return true
	}
	return false
}

// Column is one workflow stage on a board. Issue.Status holds a Column.ID.
type Column struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	StatusCategory StatusCategory `json:"statusCategory"`
	SortOrder      int            `json:"sortOrder"`
}

// Board is the ordered set of workflow columns for a project.
type Board struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	Columns   []Column  `json:"columns"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Board) EntityID() string { return b.ID }

// Column returns the column with the given id.
func (b *Board) Column(id string) (Column, bool) {
	for _, c := range b.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// IsDone reports whether status resolves to a done-category column.
// Unknown statuses are never done.
func (b *Board) IsDone(status string) bool {
	c, ok := b.Column(status)
	return ok && c.StatusCategory == CategoryDone
}

// FirstColumn returns the lowest-ordered column id, or "" for an empty board.
func (b *Board) FirstColumn() string {
	first := ""
	best := 0
	for i, c := range b.Columns {
		if i == 0 || c.SortOrder < best {
			first, best = c.ID, c.SortOrder
		}
	}
	return first
}

// DefaultColumns returns the columns every new project board starts with.
func DefaultColumns() []Column {
	return []Column{
		{ID: "todo", Name: "To Do", StatusCategory: CategoryTodo, SortOrder: 0},
		{ID: "in_progress", Name: "In Progress", StatusCategory: CategoryInProgress, SortOrder: 1},
		{ID: "in_review", Name: "In Review", StatusCategory: CategoryInProgress, SortOrder: 2},
		{ID: "done", Name: "Done", StatusCategory: CategoryDone, SortOrder: 3},
	}
}

// ValidateColumns checks a column set for a board.
func ValidateColumns(columns []Column) error {
	if len(columns) == 0 {
		return NewValidationError("columns", "a board needs at least one column")
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c.ID == "" {
			return NewValidationError("columns", "column id is required")
		}
		if seen[c.ID] {
			return NewValidationError("columns", fmt.Sprintf("duplicate column id: %s", c.ID))
		}
		seen[c.ID] = true
		if !c.StatusCategory.IsValid() {
			return NewValidationError("columns", fmt.Sprintf("invalid status category %q for column %s", c.StatusCategory, c.ID))
		}
	}
	return nil
}

// Comment is a user comment on an issue.
type Comment struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issueId"`
	AuthorID  string    `json:"authorId,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Seq       int64     `json:"seq"` // Feed tie-breaker, allocated at insert
}

func (c *Comment) EntityID() string { return c.ID }

// ActivityLog is an append-only audit trail entry for an issue.
type ActivityLog struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issueId"`
	UserID    string    `json:"userId,omitempty"`
	Action    Action    `json:"action"`
	Field     string    `json:"field,omitempty"`
	FromValue string    `json:"fromValue,omitempty"`
	ToValue   string    `json:"toValue,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int64     `json:"seq"`
}

func (a *ActivityLog) EntityID() string { return a.ID }

// Action categorizes activity log entries
type Action string

// Action constants for the audit trail
const (
	ActionCreated         Action = "created"
	ActionStatusChanged   Action = "status_changed"
	ActionAssigneeChanged Action = "assignee_changed"
	ActionPriorityChanged Action = "priority_changed"
	ActionSprintChanged   Action = "sprint_changed"
	ActionEpicChanged     Action = "epic_changed"
	ActionCommentAdded    Action = "comment_added"
	ActionCommentEdited   Action = "comment_edited"
	ActionCommentDeleted  Action = "comment_deleted"
)

// Label is a named, coloured tag scoped to a project. Issues carry label names.
type Label struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
}

func (l *Label) EntityID() string { return l.ID }

// Component is a functional area of a project. Issues carry component names.
type Component struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	LeadID      string `json:"leadId,omitempty"`
}

func (c *Component) EntityID() string { return c.ID }

// Filter is a saved issue query.
type Filter struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"projectId"`
	Name      string            `json:"name"`
	OwnerID   string            `json:"ownerId,omitempty"`
	Criteria  map[string]string `json:"criteria"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (f *Filter) EntityID() string { return f.ID }

// CustomFieldType is the value type of a custom field.
type CustomFieldType string

const (
	FieldText   CustomFieldType = "text"
	FieldNumber CustomFieldType = "number"
	FieldSelect CustomFieldType = "select"
	FieldDate   CustomFieldType = "date"
)

func (t CustomFieldType) IsValid() bool {
	switch t {
	case FieldText, FieldNumber, FieldSelect, FieldDate:
		return true
	}
	return false
}

// CustomField is a project-defined extra issue attribute.
type CustomField struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"projectId"`
	Name      string          `json:"name"`
	FieldType CustomFieldType `json:"fieldType"`
	Options   []string        `json:"options,omitempty"` // For select fields
	Required  bool            `json:"required"`
}

func (c *CustomField) EntityID() string { return c.ID }

// WorkflowStatus is a status declared by a workflow; it becomes a board column.
type WorkflowStatus struct {
	ID       string         `json:"id" toml:"id"`
	Name     string         `json:"name" toml:"name"`
	Category StatusCategory `json:"category" toml:"category"`
}

// Workflow is a reusable set of statuses a project board can be built from.
type Workflow struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Statuses    []WorkflowStatus `json:"statuses"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func (w *Workflow) EntityID() string { return w.ID }

// Validate requires at least two statuses with unique ids, valid categories,
// and at least one done status.
func (w *Workflow) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return NewValidationError("name", "workflow name is required")
	}
	if len(w.Statuses) < 2 {
		return NewValidationError("statuses", fmt.Sprintf("a workflow must declare at least two statuses (got %d)", len(w.Statuses)))
	}
	seen := make(map[string]bool, len(w.Statuses))
	hasDone := false
	for _, st := range w.Statuses {
		if st.ID == "" {
			return NewValidationError("statuses", "status id is required")
		}
		if seen[st.ID] {
			return NewValidationError("statuses", fmt.Sprintf("duplicate status id: %s", st.ID))
		}
		seen[st.ID] = true
		if !st.Category.IsValid() {
			return NewValidationError("statuses", fmt.Sprintf("invalid category %q for status %s", st.Category, st.ID))
		}
		if st.Category == CategoryDone {
			hasDone = true
		}
	}
	if !hasDone {
		return NewValidationError("statuses", "a workflow needs at least one done status")
	}
	return nil
}

// Columns converts the workflow statuses into board columns, preserving order.
func (w *Workflow) Columns() []Column {
	cols := make([]Column, 0, len(w.Statuses))
	for i, st := range w.Statuses {
		name := st.Name
		if name == "" {
			name = st.ID
		}
		cols = append(cols, Column{ID: st.ID, Name: name, StatusCategory: st.Category, SortOrder: i})
	}
	return cols
}

// User is a person that issues can be assigned to.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) EntityID() string { return u.ID }

// Setting is an application-level key/value pair. The key is the row id.
type Setting struct {
	Key   string `json:"id"`
	Value string `json:"value"`
}

func (s *Setting) EntityID() string { return s.Key }
