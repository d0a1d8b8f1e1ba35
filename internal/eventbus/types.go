package eventbus

import (
	"strings"
	"time"
)

// EventType identifies a committed mutation flowing through the bus.
type EventType string

const (
	EventProjectCreated EventType = "project.created"
	EventProjectUpdated EventType = "project.updated"
	EventProjectDeleted EventType = "project.deleted"

	EventIssueCreated EventType = "issue.created"
	EventIssueUpdated EventType = "issue.updated"
	EventIssueDeleted EventType = "issue.deleted"

	EventSprintCreated   EventType = "sprint.created"
	EventSprintUpdated   EventType = "sprint.updated"
	EventSprintStarted   EventType = "sprint.started"
	EventSprintCompleted EventType = "sprint.completed"
	EventSprintDeleted   EventType = "sprint.deleted"

	EventCommentAdded   EventType = "comment.added"
	EventCommentEdited  EventType = "comment.edited"
	EventCommentDeleted EventType = "comment.deleted"

	EventBoardUpdated EventType = "board.updated"

	// Project metadata: labels, components, filters, custom fields.
	EventMetadataChanged EventType = "metadata.changed"

	EventWorkflowChanged EventType = "workflow.changed"
	EventUserChanged     EventType = "user.changed"
	EventSettingChanged  EventType = "setting.changed"

	EventDataImported EventType = "data.imported"
)

// AllEventTypes lists every event type, for handlers that want everything.
var AllEventTypes = []EventType{
	EventProjectCreated, EventProjectUpdated, EventProjectDeleted,
	EventIssueCreated, EventIssueUpdated, EventIssueDeleted,
	EventSprintCreated, EventSprintUpdated, EventSprintStarted, EventSprintCompleted, EventSprintDeleted,
	EventCommentAdded, EventCommentEdited, EventCommentDeleted,
	EventBoardUpdated, EventMetadataChanged,
	EventWorkflowChanged, EventUserChanged, EventSettingChanged,
	EventDataImported,
}

// Entity returns the entity kind prefix of the event type, e.g. "issue".
func (t EventType) Entity() string {
	kind, _, _ := strings.Cut(string(t), ".")
	return kind
}

// Event describes one committed mutation. Tables lists the tables the
// transaction wrote, so collaborators can re-run the queries they watch.
type Event struct {
	Type      EventType `json:"type"`
	EntityID  string    `json:"entity_id"`
	ProjectID string    `json:"project_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Tables    []string  `json:"tables,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Result aggregates handler output for one dispatch.
type Result struct {
	Handled  int      `json:"handled"`
	Warnings []string `json:"warnings,omitempty"`
}
