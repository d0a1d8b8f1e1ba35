// Package export reads and writes whole-store JSON snapshots.
//
// A snapshot is one UTF-8 JSON object with an array per table plus
// "version" and "exportedAt". The internal meta table is never exported.
package export

import (
	"context"
	"time"

	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

// Version is the snapshot format version written by All and Project and
// the only one Import accepts.
const Version = 1

// Snapshot is the decoded form of an export file.
type Snapshot struct {
	Version      int                  `json:"version"`
	ExportedAt   time.Time            `json:"exportedAt"`
	Projects     []*types.Project     `json:"projects"`
	Issues       []*types.Issue       `json:"issues"`
	Sprints      []*types.Sprint      `json:"sprints"`
	Boards       []*types.Board       `json:"boards"`
	Labels       []*types.Label       `json:"labels"`
	Components   []*types.Component   `json:"components"`
	Filters      []*types.Filter      `json:"filters"`
	CustomFields []*types.CustomField `json:"customFields"`
	Comments     []*types.Comment     `json:"comments"`
	ActivityLog  []*types.ActivityLog `json:"activityLog"`
	Workflows    []*types.Workflow    `json:"workflows"`
	Users        []*types.User        `json:"users"`
	Settings     []*types.Setting     `json:"settings"`
}

// tables lists every exported table. The JSON key of each array is the
// table name.
var tables = []storage.Table{
	storage.TableProjects,
	storage.TableIssues,
	storage.TableSprints,
	storage.TableBoards,
	storage.TableLabels,
	storage.TableComponents,
	storage.TableFilters,
	storage.TableCustomFields,
	storage.TableComments,
	storage.TableActivityLog,
	storage.TableWorkflows,
	storage.TableUsers,
	storage.TableSettings,
}

// Tables returns the exported tables in file order.
func Tables() []storage.Table {
	return append([]storage.Table(nil), tables...)
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		Version:      Version,
		ExportedAt:   time.Now().UTC(),
		Projects:     []*types.Project{},
		Issues:       []*types.Issue{},
		Sprints:      []*types.Sprint{},
		Boards:       []*types.Board{},
		Labels:       []*types.Label{},
		Components:   []*types.Component{},
		Filters:      []*types.Filter{},
		CustomFields: []*types.CustomField{},
		Comments:     []*types.Comment{},
		ActivityLog:  []*types.ActivityLog{},
		Workflows:    []*types.Workflow{},
		Users:        []*types.User{},
		Settings:     []*types.Setting{},
	}
}

// Counts returns the number of rows per table.
func (s *Snapshot) Counts() map[storage.Table]int {
	return map[storage.Table]int{
		storage.TableProjects:     len(s.Projects),
		storage.TableIssues:       len(s.Issues),
		storage.TableSprints:      len(s.Sprints),
		storage.TableBoards:       len(s.Boards),
		storage.TableLabels:       len(s.Labels),
		storage.TableComponents:   len(s.Components),
		storage.TableFilters:      len(s.Filters),
		storage.TableCustomFields: len(s.CustomFields),
		storage.TableComments:     len(s.Comments),
		storage.TableActivityLog:  len(s.ActivityLog),
		storage.TableWorkflows:    len(s.Workflows),
		storage.TableUsers:        len(s.Users),
		storage.TableSettings:     len(s.Settings),
	}
}

// All reads every exported table inside one consistent view.
func All(ctx context.Context, store storage.Store) (*Snapshot, error) {
	snap := newSnapshot()
	err := store.View(ctx, tables, func(r storage.Reader) error {
		var err error
		if snap.Projects, err = storage.All[types.Project](ctx, r, storage.TableProjects); err != nil {
			return err
		}
		if snap.Issues, err = storage.All[types.Issue](ctx, r, storage.TableIssues); err != nil {
			return err
		}
		if snap.Sprints, err = storage.All[types.Sprint](ctx, r, storage.TableSprints); err != nil {
			return err
		}
		if snap.Boards, err = storage.All[types.Board](ctx, r, storage.TableBoards); err != nil {
			return err
		}
		if snap.Labels, err = storage.All[types.Label](ctx, r, storage.TableLabels); err != nil {
			return err
		}
		if snap.Components, err = storage.All[types.Component](ctx, r, storage.TableComponents); err != nil {
			return err
		}
		if snap.Filters, err = storage.All[types.Filter](ctx, r, storage.TableFilters); err != nil {
			return err
		}
		if snap.CustomFields, err = storage.All[types.CustomField](ctx, r, storage.TableCustomFields); err != nil {
			return err
		}
		if snap.Comments, err = storage.All[types.Comment](ctx, r, storage.TableComments); err != nil {
			return err
		}
		if snap.ActivityLog, err = storage.All[types.ActivityLog](ctx, r, storage.TableActivityLog); err != nil {
			return err
		}
		if snap.Workflows, err = storage.All[types.Workflow](ctx, r, storage.TableWorkflows); err != nil {
			return err
		}
		if snap.Users, err = storage.All[types.User](ctx, r, storage.TableUsers); err != nil {
			return err
		}
		snap.Settings, err = storage.All[types.Setting](ctx, r, storage.TableSettings)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Project reads the closure of one project: the project row, its issues,
// sprints, board, labels, components, filters and custom fields, the
// comments and activity of those issues, and its workflow.
func Project(ctx context.Context, store storage.Store, projectID string) (*Snapshot, error) {
	snap := newSnapshot()
	err := store.View(ctx, tables, func(r storage.Reader) error {
		project, err := storage.Get[types.Project](ctx, r, storage.TableProjects, projectID)
		if err != nil {
			if isNotFound(err) {
				return types.NotFound("project", projectID)
			}
			return err
		}
		snap.Projects = append(snap.Projects, project)

		byProject := storage.By("projectId", projectID)
		if snap.Issues, err = storage.Query[types.Issue](ctx, r, storage.TableIssues, byProject); err != nil {
			return err
		}
		if snap.Sprints, err = storage.Query[types.Sprint](ctx, r, storage.TableSprints, byProject); err != nil {
			return err
		}
		if snap.Boards, err = storage.Query[types.Board](ctx, r, storage.TableBoards, byProject); err != nil {
			return err
		}
		if snap.Labels, err = storage.Query[types.Label](ctx, r, storage.TableLabels, byProject); err != nil {
			return err
		}
		if snap.Components, err = storage.Query[types.Component](ctx, r, storage.TableComponents, byProject); err != nil {
			return err
		}
		if snap.Filters, err = storage.Query[types.Filter](ctx, r, storage.TableFilters, byProject); err != nil {
			return err
		}
		if snap.CustomFields, err = storage.Query[types.CustomField](ctx, r, storage.TableCustomFields, byProject); err != nil {
			return err
		}

		for _, issue := range snap.Issues {
			byIssue := storage.By("issueId", issue.ID)
			comments, err := storage.Query[types.Comment](ctx, r, storage.TableComments, byIssue)
			if err != nil {
				return err
			}
			snap.Comments = append(snap.Comments, comments...)
			activity, err := storage.Query[types.ActivityLog](ctx, r, storage.TableActivityLog, byIssue)
			if err != nil {
				return err
			}
			snap.ActivityLog = append(snap.ActivityLog, activity...)
		}

		if project.WorkflowID != "" {
			wf, err := storage.Get[types.Workflow](ctx, r, storage.TableWorkflows, project.WorkflowID)
			if err == nil {
				snap.Workflows = append(snap.Workflows, wf)
			} else if !isNotFound(err) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
