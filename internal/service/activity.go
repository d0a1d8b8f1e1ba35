package service

import (
	"context"
	"sort"
	"time"

	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

// Display values for cleared tracked fields.
const (
	unassignedLabel = "Unassigned"
	backlogLabel    = "Backlog"
	noEpicLabel     = "None"
)

// formatFunc renders a raw field value for the audit trail.
type formatFunc func(ctx context.Context, r storage.Reader, value string) string

// trackedField is one entry of the audit allowlist: a field whose changes
// produce an activity row, how to read it, and how to render it.
type trackedField struct {
	field  string
	action types.Action
	get    func(*types.Issue) string
	format formatFunc
}

// trackedFields is the fixed set of issue fields whose changes are audited.
// Reads performed by the formatters need users, sprints and issues in scope.
var trackedFields = []trackedField{
	{field: "status", action: types.ActionStatusChanged,
		get: func(i *types.Issue) string { return i.Status }, format: rawValue},
	{field: "assigneeId", action: types.ActionAssigneeChanged,
		get: func(i *types.Issue) string { return i.AssigneeID }, format: userName},
	{field: "priority", action: types.ActionPriorityChanged,
		get: func(i *types.Issue) string { return string(i.Priority) }, format: rawValue},
	{field: "sprintId", action: types.ActionSprintChanged,
		get: func(i *types.Issue) string { return i.SprintID }, format: sprintName},
	{field: "epicId", action: types.ActionEpicChanged,
		get: func(i *types.Issue) string { return i.EpicID }, format: epicKey},
}

// auditTables are the tables diffIssue and appendActivity touch.
var auditTables = []storage.Table{
	storage.TableActivityLog,
	storage.TableMeta,
	storage.TableUsers,
	storage.TableSprints,
	storage.TableIssues,
}

func rawValue(_ context.Context, _ storage.Reader, value string) string {
	return value
}

// lookupName renders id through fetch, falling back to the raw id when the
// row is gone and to empty when id is empty.
func lookupName[T any](ctx context.Context, r storage.Reader, table storage.Table, id, empty string, name func(*T) string) string {
	if id == "" {
		return empty
	}
	v, err := storage.Get[T](ctx, r, table, id)
	if err != nil {
		return id
	}
	return name(v)
}

func userName(ctx context.Context, r storage.Reader, id string) string {
	return lookupName(ctx, r, storage.TableUsers, id, unassignedLabel, func(u *types.User) string { return u.Name })
}

func sprintName(ctx context.Context, r storage.Reader, id string) string {
	return lookupName(ctx, r, storage.TableSprints, id, backlogLabel, func(s *types.Sprint) string { return s.Name })
}

func epicKey(ctx context.Context, r storage.Reader, id string) string {
	return lookupName(ctx, r, storage.TableIssues, id, noEpicLabel, func(i *types.Issue) string { return i.Key })
}

// appendActivity stamps a and inserts it. The transaction must include the
// activity log and meta tables.
func (s *Service) appendActivity(ctx context.Context, tx storage.Transaction, a *types.ActivityLog) error {
	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return err
	}
	a.ID = s.newID()
	a.Seq = seq
	if a.Timestamp.IsZero() {
		a.Timestamp = s.clock()
	}
	return storage.Put(ctx, tx, storage.TableActivityLog, a)
}

// diffIssue appends one activity row for every tracked field that differs
// between before and after, and returns the rows written.
func (s *Service) diffIssue(ctx context.Context, tx storage.Transaction, before, after *types.Issue, actorID string) ([]*types.ActivityLog, error) {
	var rows []*types.ActivityLog
	for _, tf := range trackedFields {
		from, to := tf.get(before), tf.get(after)
		if from == to {
			continue
		}
		row := &types.ActivityLog{
			IssueID:   after.ID,
			UserID:    actorID,
			Action:    tf.action,
			Field:     tf.field,
			FromValue: tf.format(ctx, tx, from),
			ToValue:   tf.format(ctx, tx, to),
		}
		if err := s.appendActivity(ctx, tx, row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FeedItem is one entry of an issue's activity feed: either a comment or an
// activity row.
type FeedItem struct {
	Comment  *types.Comment     `json:"comment,omitempty"`
	Activity *types.ActivityLog `json:"activity,omitempty"`
}

// Timestamp returns when the item happened.
func (f FeedItem) Timestamp() time.Time {
	if f.Comment != nil {
		return f.Comment.CreatedAt
	}
	return f.Activity.Timestamp
}

// Seq returns the insertion sequence number used to break timestamp ties.
func (f FeedItem) Seq() int64 {
	if f.Comment != nil {
		return f.Comment.Seq
	}
	return f.Activity.Seq
}

// ActivityFeed returns the comments and activity rows of an issue, newest
// first. Items with equal timestamps are ordered by descending insertion
// sequence.
func (s *Service) ActivityFeed(ctx context.Context, issueID string) ([]FeedItem, error) {
	var feed []FeedItem
	tables := []storage.Table{storage.TableIssues, storage.TableComments, storage.TableActivityLog}
	err := s.view(ctx, tables, func(r storage.Reader) error {
		if _, err := load[types.Issue](ctx, r, storage.TableIssues, "issue", issueID); err != nil {
			return err
		}
		byIssue := storage.By("issueId", issueID)
		comments, err := storage.Query[types.Comment](ctx, r, storage.TableComments, byIssue)
		if err != nil {
			return err
		}
		activity, err := storage.Query[types.ActivityLog](ctx, r, storage.TableActivityLog, byIssue)
		if err != nil {
			return err
		}
		feed = make([]FeedItem, 0, len(comments)+len(activity))
		for _, c := range comments {
			feed = append(feed, FeedItem{Comment: c})
		}
		for _, a := range activity {
			feed = append(feed, FeedItem{Activity: a})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortFeed(feed)
	return feed, nil
}

func sortFeed(feed []FeedItem) {
	sort.SliceStable(feed, func(i, j int) bool {
		ti, tj := feed[i].Timestamp(), feed[j].Timestamp()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return feed[i].Seq() > feed[j].Seq()
	})
}

// ListActivity returns the activity rows of an issue, oldest first.
func (s *Service) ListActivity(ctx context.Context, issueID string) ([]*types.ActivityLog, error) {
	var rows []*types.ActivityLog
	err := s.view(ctx, []storage.Table{storage.TableIssues, storage.TableActivityLog}, func(r storage.Reader) error {
		if _, err := load[types.Issue](ctx, r, storage.TableIssues, "issue", issueID); err != nil {
			return err
		}
		var err error
		rows, err = storage.Query[types.ActivityLog](ctx, r, storage.TableActivityLog, storage.By("issueId", issueID))
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })
	return rows, nil
}
