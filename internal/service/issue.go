package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/eventbus"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

// IssueInput holds the fields of a new issue. Empty Type, Priority and
// Status fall back to task, medium and the first board column.
type IssueInput struct {
	ProjectID   string          `json:"projectId"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Type        types.IssueType `json:"type,omitempty"`
	Status      string          `json:"status,omitempty"`
	Priority    types.Priority  `json:"priority,omitempty"`
	AssigneeID  string          `json:"assigneeId,omitempty"`
	ReporterID  string          `json:"reporterId,omitempty"`
	EpicID      string          `json:"epicId,omitempty"`
	ParentID    string          `json:"parentId,omitempty"`
	SprintID    string          `json:"sprintId,omitempty"`
	StoryPoints *float64        `json:"storyPoints,omitempty"`
	Labels      []string        `json:"labels,omitempty"`
	Components  []string        `json:"components,omitempty"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
}

// IssuePatch lists the issue fields to change. Nil fields are left alone; a
// pointer to "" clears an optional reference. Labels and components are
// either replaced (Set*) or edited (Add*/Remove*).
type IssuePatch struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Type        *types.IssueType `json:"type,omitempty"`
	Status      *string          `json:"status,omitempty"`
	Priority    *types.Priority  `json:"priority,omitempty"`
	AssigneeID  *string          `json:"assigneeId,omitempty"`
	ReporterID  *string          `json:"reporterId,omitempty"`
	EpicID      *string          `json:"epicId,omitempty"`
	ParentID    *string          `json:"parentId,omitempty"`
	SprintID    *string          `json:"sprintId,omitempty"`

	StoryPoints      *float64 `json:"storyPoints,omitempty"`
	ClearStoryPoints bool     `json:"clearStoryPoints,omitempty"`

	DueDate      *time.Time `json:"dueDate,omitempty"`
	ClearDueDate bool       `json:"clearDueDate,omitempty"`

	SetLabels    []string `json:"setLabels,omitempty"`
	AddLabels    []string `json:"addLabels,omitempty"`
	RemoveLabels []string `json:"removeLabels,omitempty"`

	SetComponents    []string `json:"setComponents,omitempty"`
	AddComponents    []string `json:"addComponents,omitempty"`
	RemoveComponents []string `json:"removeComponents,omitempty"`
}

// MoveInput positions an issue for drag-and-drop. Status is the target
// column (empty keeps the current one). PrevID and NextID name the issues
// that should end up directly above and below; with neither the issue goes
// to the bottom of the column.
type MoveInput struct {
	Status string `json:"status,omitempty"`
	PrevID string `json:"prevId,omitempty"`
	NextID string `json:"nextId,omitempty"`
}

// IssueFilter selects issues. Empty fields match everything; SprintID
// pointing at "" selects the backlog.
type IssueFilter struct {
	ProjectID  string          `json:"projectId,omitempty"`
	Status     string          `json:"status,omitempty"`
	SprintID   *string         `json:"sprintId,omitempty"`
	EpicID     string          `json:"epicId,omitempty"`
	ParentID   string          `json:"parentId,omitempty"`
	AssigneeID string          `json:"assigneeId,omitempty"`
	Type       types.IssueType `json:"type,omitempty"`
	Priority   types.Priority  `json:"priority,omitempty"`
	Label      string          `json:"label,omitempty"`
	Component  string          `json:"component,omitempty"`
}

// issueTables is the scope of every issue write.
var issueTables = append([]storage.Table{storage.TableProjects, storage.TableBoards}, auditTables...)

// CreateIssue allocates the next key of the project, places the issue at
// the bottom of its status column and records a "created" activity row, all
// in one transaction.
func (s *Service) CreateIssue(ctx context.Context, in IssueInput, actorID string) (*types.Issue, error) {
	var issue *types.Issue
	err := s.store.RunInTransaction(ctx, issueTables, func(tx storage.Transaction) error {
		project, err := load[types.Project](ctx, tx, storage.TableProjects, "project", in.ProjectID)
		if err != nil {
			return err
		}
		board, err := boardFor(ctx, tx, project.ID)
		if err != nil {
			return err
		}

		now := s.clock()
		issue = &types.Issue{
			ID:          s.newID(),
			ProjectID:   project.ID,
			Title:       strings.TrimSpace(in.Title),
			Description: in.Description,
			Type:        in.Type,
			Status:      in.Status,
			Priority:    in.Priority,
			AssigneeID:  in.AssigneeID,
			ReporterID:  in.ReporterID,
			EpicID:      in.EpicID,
			ParentID:    in.ParentID,
			SprintID:    in.SprintID,
			StoryPoints: in.StoryPoints,
			Labels:      normalizeSet(in.Labels),
			Components:  normalizeSet(in.Components),
			DueDate:     in.DueDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if issue.Type == "" {
			issue.Type = types.TypeTask
		}
		if issue.Priority == "" {
			issue.Priority = types.PriorityMedium
		}
		if issue.ReporterID == "" {
			issue.ReporterID = actorID
		}
		if issue.Status == "" {
			issue.Status = board.FirstColumn()
		}
		if _, ok := board.Column(issue.Status); !ok {
			return types.NewValidationError("status", fmt.Sprintf("unknown status %q for project %s", issue.Status, project.Key))
		}
		if board.IsDone(issue.Status) {
			resolved := now
			issue.ResolvedAt = &resolved
		}
		if err := issue.Validate(); err != nil {
			return err
		}
		if err := validateLinks(ctx, tx, nil, issue); err != nil {
			return err
		}

		project.IssueCounter++
		issue.Key = types.IssueKey(project.Key, project.IssueCounter)
		if issue.SortOrder, err = nextSortOrder(ctx, tx, project.ID, issue.Status, ""); err != nil {
			return err
		}

		if err := storage.Put(ctx, tx, storage.TableProjects, project); err != nil {
			return err
		}
		if err := storage.Put(ctx, tx, storage.TableIssues, issue); err != nil {
			return err
		}
		return s.appendActivity(ctx, tx, &types.ActivityLog{
			IssueID:   issue.ID,
			UserID:    actorID,
			Action:    types.ActionCreated,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	debug.Logf("service: created issue %s (%s)\n", issue.Key, issue.ID)
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventIssueCreated, EntityID: issue.ID, ProjectID: issue.ProjectID,
		Actor: actorID, Summary: issue.Key,
	}, issueTables)
	return issue, nil
}

// UpdateIssue merges patch into the issue. A status change re-evaluates
// resolvedAt against the board and moves the issue to the bottom of its new
// column. Every tracked field that actually changed gets one activity row.
func (s *Service) UpdateIssue(ctx context.Context, id string, patch IssuePatch, actorID string) (*types.Issue, error) {
	var after *types.Issue
	err := s.store.RunInTransaction(ctx, issueTables, func(tx storage.Transaction) error {
		before, err := load[types.Issue](ctx, tx, storage.TableIssues, "issue", id)
		if err != nil {
			return err
		}
		after = copyIssue(before)
		applyPatch(after, patch)

		board, err := boardFor(ctx, tx, after.ProjectID)
		if err != nil {
			return err
		}
		now := s.clock()
		if patch.Status != nil && after.Status != before.Status {
			if _, ok := board.Column(after.Status); !ok {
				return types.NewValidationError("status", fmt.Sprintf("unknown status %q", after.Status))
			}
			applyResolution(before, after, board, now)
			if after.SortOrder, err = nextSortOrder(ctx, tx, after.ProjectID, after.Status, after.ID); err != nil {
				return err
			}
		}
		if err := after.Validate(); err != nil {
			return err
		}
		if err := validateLinks(ctx, tx, before, after); err != nil {
			return err
		}
		if before.Type == types.TypeEpic && after.Type != types.TypeEpic {
			children, err := queryIDs(ctx, tx, storage.TableIssues, storage.By("epicId", after.ID))
			if err != nil {
				return err
			}
			if len(children) > 0 {
				return types.NewValidationError("type", fmt.Sprintf("epic %s still has %d child issue(s)", after.Key, len(children)))
			}
		}

		after.UpdatedAt = now
		if err := storage.Put(ctx, tx, storage.TableIssues, after); err != nil {
			return err
		}
		_, err = s.diffIssue(ctx, tx, before, after, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventIssueUpdated, EntityID: after.ID, ProjectID: after.ProjectID,
		Actor: actorID, Summary: after.Key,
	}, issueTables)
	return after, nil
}

// MoveIssue repositions an issue within or across board columns. The new
// sort order is the midpoint of its neighbours; when that gap has collapsed
// the whole column is renumbered to integers.
func (s *Service) MoveIssue(ctx context.Context, id string, in MoveInput, actorID string) (*types.Issue, error) {
	var after *types.Issue
	err := s.store.RunInTransaction(ctx, issueTables, func(tx storage.Transaction) error {
		before, err := load[types.Issue](ctx, tx, storage.TableIssues, "issue", id)
		if err != nil {
			return err
		}
		after = copyIssue(before)
		if in.Status != "" {
			after.Status = in.Status
		}

		board, err := boardFor(ctx, tx, after.ProjectID)
		if err != nil {
			return err
		}
		if _, ok := board.Column(after.Status); !ok {
			return types.NewValidationError("status", fmt.Sprintf("unknown status %q", after.Status))
		}

		column, err := partition(ctx, tx, after.ProjectID, after.Status, after.ID)
		if err != nil {
			return err
		}
		at, err := insertionIndex(column, in.PrevID, in.NextID)
		if err != nil {
			return err
		}

		now := s.clock()
		var prev, next *float64
		if at > 0 {
			prev = &column[at-1].SortOrder
		}
		if at < len(column) {
			next = &column[at].SortOrder
		}
		pos, ok := types.SortOrderBetween(prev, next)
		if !ok {
			debug.Logf("service: renumbering column %s of project %s\n", after.Status, after.ProjectID)
			ordered := make([]*types.Issue, 0, len(column)+1)
			ordered = append(ordered, column[:at]...)
			ordered = append(ordered, after)
			ordered = append(ordered, column[at:]...)
			for i, order := range types.Renumber(len(ordered)) {
				if ordered[i] == after {
					pos = order
					continue
				}
				if ordered[i].SortOrder == order {
					continue
				}
				ordered[i].SortOrder = order
				if err := storage.Put(ctx, tx, storage.TableIssues, ordered[i]); err != nil {
					return err
				}
			}
		}
		after.SortOrder = pos

		if after.Status != before.Status {
			applyResolution(before, after, board, now)
		}
		after.UpdatedAt = now
		if err := storage.Put(ctx, tx, storage.TableIssues, after); err != nil {
			return err
		}
		_, err = s.diffIssue(ctx, tx, before, after, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventIssueUpdated, EntityID: after.ID, ProjectID: after.ProjectID,
		Actor: actorID, Summary: after.Key + " moved",
	}, issueTables)
	return after, nil
}

// DeleteIssue removes the issue, its sub-tasks and their comments and
// activity, and unlinks issues that used it as their epic.
func (s *Service) DeleteIssue(ctx context.Context, id string, actorID string) error {
	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	u := deleteIssueUnit(id, s.now)
	if err := s.execute(ctx, u); err != nil {
		return err
	}
	debug.Logf("service: deleted issue %s (%s)\n", issue.Key, id)
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventIssueDeleted, EntityID: id, ProjectID: issue.ProjectID,
		Actor: actorID, Summary: issue.Key,
	}, u.tables)
	return nil
}

// GetIssue returns an issue by id.
func (s *Service) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	return load[types.Issue](ctx, s.store, storage.TableIssues, "issue", id)
}

// GetIssueByKey returns the issue of a project with the given key, e.g. "TP-3".
func (s *Service) GetIssueByKey(ctx context.Context, projectID, key string) (*types.Issue, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	issues, err := storage.Query[types.Issue](ctx, s.store, storage.TableIssues,
		storage.By("projectId", projectID).And("key", key))
	if err != nil {
		return nil, err
	}
	if len(issues) == 0 {
		return nil, types.NotFound("issue", key)
	}
	return issues[0], nil
}

// ListIssues returns the issues matching filter ordered by sort order, then
// creation time.
func (s *Service) ListIssues(ctx context.Context, filter IssueFilter) ([]*types.Issue, error) {
	var (
		issues []*types.Issue
		err    error
	)
	if where := filter.index(); where != nil {
		issues, err = storage.Query[types.Issue](ctx, s.store, storage.TableIssues, where)
	} else {
		issues, err = storage.All[types.Issue](ctx, s.store, storage.TableIssues)
	}
	if err != nil {
		return nil, err
	}

	out := issues[:0]
	for _, issue := range issues {
		if filter.matches(issue) {
			out = append(out, issue)
		}
	}
	sortIssues(out)
	return out, nil
}

// index picks the most selective declared index the filter can use.
func (f IssueFilter) index() storage.Where {
	switch {
	case f.ProjectID != "" && f.Status != "":
		return storage.By("projectId", f.ProjectID).And("status", f.Status)
	case f.ProjectID != "":
		return storage.By("projectId", f.ProjectID)
	case f.SprintID != nil && *f.SprintID != "":
		return storage.By("sprintId", *f.SprintID)
	case f.EpicID != "":
		return storage.By("epicId", f.EpicID)
	case f.ParentID != "":
		return storage.By("parentId", f.ParentID)
	case f.AssigneeID != "":
		return storage.By("assigneeId", f.AssigneeID)
	case f.Status != "":
		return storage.By("status", f.Status)
	case f.Priority != "":
		return storage.By("priority", string(f.Priority))
	}
	return nil
}

func (f IssueFilter) matches(i *types.Issue) bool {
	switch {
	case f.ProjectID != "" && i.ProjectID != f.ProjectID,
		f.Status != "" && i.Status != f.Status,
		f.SprintID != nil && i.SprintID != *f.SprintID,
		f.EpicID != "" && i.EpicID != f.EpicID,
		f.ParentID != "" && i.ParentID != f.ParentID,
		f.AssigneeID != "" && i.AssigneeID != f.AssigneeID,
		f.Type != "" && i.Type != f.Type,
		f.Priority != "" && i.Priority != f.Priority,
		f.Label != "" && !contains(i.Labels, f.Label),
		f.Component != "" && !contains(i.Components, f.Component):
		return false
	}
	return true
}

func sortIssues(issues []*types.Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		if issues[a].SortOrder != issues[b].SortOrder {
			return issues[a].SortOrder < issues[b].SortOrder
		}
		return issues[a].CreatedAt.Before(issues[b].CreatedAt)
	})
}

// partition returns the issues of a (project, status) column in sort order,
// leaving out excludeID.
func partition(ctx context.Context, r storage.Reader, projectID, status, excludeID string) ([]*types.Issue, error) {
	issues, err := storage.Query[types.Issue](ctx, r, storage.TableIssues,
		storage.By("projectId", projectID).And("status", status))
	if err != nil {
		return nil, err
	}
	out := issues[:0]
	for _, issue := range issues {
		if issue.ID != excludeID {
			out = append(out, issue)
		}
	}
	sortIssues(out)
	return out, nil
}

// nextSortOrder returns the bottom position of a (project, status) column.
func nextSortOrder(ctx context.Context, r storage.Reader, projectID, status, excludeID string) (float64, error) {
	column, err := partition(ctx, r, projectID, status, excludeID)
	if err != nil {
		return 0, err
	}
	orders := make([]float64, len(column))
	for i, issue := range column {
		orders[i] = issue.SortOrder
	}
	return types.NextSortOrder(orders), nil
}

// insertionIndex resolves the neighbour ids of a move to a slot in column.
func insertionIndex(column []*types.Issue, prevID, nextID string) (int, error) {
	find := func(id string) int {
		for i, issue := range column {
			if issue.ID == id {
				return i
			}
		}
		return -1
	}
	switch {
	case prevID != "" && nextID != "":
		p, n := find(prevID), find(nextID)
		if p < 0 || n < 0 {
			return 0, types.NewValidationError("position", "neighbours must be in the target column")
		}
		if n != p+1 {
			return 0, types.NewValidationError("position", "neighbours are not adjacent")
		}
		return n, nil
	case prevID != "":
		p := find(prevID)
		if p < 0 {
			return 0, types.NewValidationError("position", "previous issue is not in the target column")
		}
		return p + 1, nil
	case nextID != "":
		n := find(nextID)
		if n < 0 {
			return 0, types.NewValidationError("position", "next issue is not in the target column")
		}
		return n, nil
	}
	return len(column), nil
}

// applyResolution maintains resolvedAt across a status change: set when the
// issue enters a done column, cleared when it leaves one, untouched otherwise.
func applyResolution(before, after *types.Issue, board *types.Board, now time.Time) {
	wasDone, isDone := board.IsDone(before.Status), board.IsDone(after.Status)
	switch {
	case !wasDone && isDone:
		resolved := now
		after.ResolvedAt = &resolved
	case wasDone && !isDone:
		after.ResolvedAt = nil
	}
}

// validateLinks checks the epic, parent and sprint references of an issue.
// With a pre-image only links that changed are checked, so an issue left in
// a completed sprint stays editable.
func validateLinks(ctx context.Context, r storage.Reader, before, issue *types.Issue) error {
	changed := func(field func(*types.Issue) string) bool {
		return before == nil || field(before) != field(issue) || before.Type != issue.Type
	}
	if issue.EpicID != "" && changed(func(i *types.Issue) string { return i.EpicID }) {
		if issue.Type == types.TypeEpic {
			return types.NewValidationError("epicId", "an epic cannot belong to another epic")
		}
		epic, err := load[types.Issue](ctx, r, storage.TableIssues, "issue", issue.EpicID)
		if err != nil {
			return err
		}
		if epic.ProjectID != issue.ProjectID {
			return types.NewValidationError("epicId", fmt.Sprintf("epic %s belongs to another project", epic.Key))
		}
		if epic.Type != types.TypeEpic {
			return types.NewValidationError("epicId", fmt.Sprintf("%s is not an epic", epic.Key))
		}
	}
	if issue.ParentID != "" && changed(func(i *types.Issue) string { return i.ParentID }) {
		if issue.Type != types.TypeSubtask {
			return types.NewValidationError("parentId", "only sub-tasks can have a parent issue")
		}
		parent, err := load[types.Issue](ctx, r, storage.TableIssues, "issue", issue.ParentID)
		if err != nil {
			return err
		}
		if parent.ProjectID != issue.ProjectID {
			return types.NewValidationError("parentId", fmt.Sprintf("parent %s belongs to another project", parent.Key))
		}
		if parent.Type == types.TypeSubtask {
			return types.NewValidationError("parentId", "a sub-task cannot have sub-tasks")
		}
	}
	if issue.SprintID != "" && (before == nil || before.SprintID != issue.SprintID) {
		sprint, err := load[types.Sprint](ctx, r, storage.TableSprints, "sprint", issue.SprintID)
		if err != nil {
			return err
		}
		if sprint.ProjectID != issue.ProjectID {
			return types.NewValidationError("sprintId", fmt.Sprintf("sprint %s belongs to another project", sprint.Name))
		}
		if sprint.Status == types.SprintCompleted {
			return types.NewValidationError("sprintId", fmt.Sprintf("sprint %s is completed", sprint.Name))
		}
	}
	return nil
}

func copyIssue(i *types.Issue) *types.Issue {
	out := *i
	out.Labels = append([]string{}, i.Labels...)
	out.Components = append([]string{}, i.Components...)
	return &out
}

func applyPatch(i *types.Issue, p IssuePatch) {
	if p.Title != nil {
		i.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.Type != nil {
		i.Type = *p.Type
	}
	if p.Status != nil {
		i.Status = *p.Status
	}
	if p.Priority != nil {
		i.Priority = *p.Priority
	}
	if p.AssigneeID != nil {
		i.AssigneeID = *p.AssigneeID
	}
	if p.ReporterID != nil {
		i.ReporterID = *p.ReporterID
	}
	if p.EpicID != nil {
		i.EpicID = *p.EpicID
	}
	if p.ParentID != nil {
		i.ParentID = *p.ParentID
	}
	if p.SprintID != nil {
		i.SprintID = *p.SprintID
	}
	if p.ClearStoryPoints {
		i.StoryPoints = nil
	} else if p.StoryPoints != nil {
		points := *p.StoryPoints
		i.StoryPoints = &points
	}
	if p.ClearDueDate {
		i.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		i.DueDate = &due
	}
	i.Labels = editSet(i.Labels, p.SetLabels, p.AddLabels, p.RemoveLabels)
	i.Components = editSet(i.Components, p.SetComponents, p.AddComponents, p.RemoveComponents)
}

// editSet applies set/add/remove edits to a string set, keeping order.
func editSet(current, set, add, remove []string) []string {
	if set != nil {
		current = set
	}
	out := normalizeSet(append(append([]string{}, current...), add...))
	if len(remove) == 0 {
		return out
	}
	kept := out[:0]
	for _, v := range out {
		if !contains(remove, v) {
			kept = append(kept, v)
		}
	}
	return kept
}

// normalizeSet trims values and drops blanks and duplicates. The result is
// never nil so it encodes as [].
func normalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
