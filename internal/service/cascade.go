package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

// step is one ordered operation of a unit of work.
type step struct {
	name string
	run  func(ctx context.Context, tx storage.Transaction) error
}

// unitOfWork is a named, ordered list of table operations that must commit
// together. Cascading deletes are expressed as units of work so the set of
// tables they touch is declared up front and each can be tested alone.
type unitOfWork struct {
	name   string
	tables []storage.Table
	steps  []step
}

// run executes the steps in order inside tx, stopping at the first error.
func (u *unitOfWork) run(ctx context.Context, tx storage.Transaction) error {
	for _, st := range u.steps {
		if err := st.run(ctx, tx); err != nil {
			return fmt.Errorf("%s: %s: %w", u.name, st.name, err)
		}
	}
	return nil
}

// execute runs u in its own transaction.
func (s *Service) execute(ctx context.Context, u *unitOfWork) error {
	return s.store.RunInTransaction(ctx, u.tables, func(tx storage.Transaction) error {
		return u.run(ctx, tx)
	})
}

var projectChildTables = []storage.Table{
	storage.TableSprints,
	storage.TableBoards,
	storage.TableLabels,
	storage.TableComponents,
	storage.TableFilters,
	storage.TableCustomFields,
}

// deleteProjectUnit removes a project and every row that references it:
// comments and activity of its issues, the issues, then the direct child
// tables keyed by projectId, and finally the project row.
func deleteProjectUnit(projectID string) *unitOfWork {
	byProject := storage.By("projectId", projectID)
	u := &unitOfWork{
		name: "delete-project",
		tables: append([]storage.Table{
			storage.TableProjects,
			storage.TableIssues,
			storage.TableComments,
			storage.TableActivityLog,
			storage.TableSettings,
		}, projectChildTables...),
	}

	var project *types.Project
	u.steps = append(u.steps,
		step{name: "check project", run: func(ctx context.Context, tx storage.Transaction) (err error) {
			project, err = load[types.Project](ctx, tx, storage.TableProjects, "project", projectID)
			return err
		}},
		step{name: "delete issue comments and activity", run: func(ctx context.Context, tx storage.Transaction) error {
			issueIDs, err := queryIDs(ctx, tx, storage.TableIssues, byProject)
			if err != nil {
				return err
			}
			for _, id := range issueIDs {
				if err := deleteIssueTrail(ctx, tx, id); err != nil {
					return err
				}
			}
			return nil
		}},
		step{name: "delete issues", run: func(ctx context.Context, tx storage.Transaction) error {
			_, err := deleteWhere(ctx, tx, storage.TableIssues, byProject)
			return err
		}},
	)
	for _, table := range projectChildTables {
		table := table
		u.steps = append(u.steps, step{name: "delete " + string(table), run: func(ctx context.Context, tx storage.Transaction) error {
			_, err := deleteWhere(ctx, tx, table, byProject)
			return err
		}})
	}
	u.steps = append(u.steps,
		step{name: "clear default project", run: func(ctx context.Context, tx storage.Transaction) error {
			setting, err := storage.Get[types.Setting](ctx, tx, storage.TableSettings, DefaultProjectSetting)
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if setting.Value != project.ID && !strings.EqualFold(setting.Value, project.Key) {
				return nil
			}
			return tx.Delete(ctx, storage.TableSettings, DefaultProjectSetting)
		}},
		step{name: "delete project", run: func(ctx context.Context, tx storage.Transaction) error {
			return tx.Delete(ctx, storage.TableProjects, projectID)
		}},
	)
	return u
}

// deleteIssueUnit removes an issue together with its sub-task tree. For
// every removed issue the comments and activity go too, and issues that
// named it as their epic are unlinked rather than deleted.
func deleteIssueUnit(issueID string, now func() time.Time) *unitOfWork {
	var doomed []string
	return &unitOfWork{
		name: "delete-issue",
		tables: []storage.Table{
			storage.TableIssues,
			storage.TableComments,
			storage.TableActivityLog,
		},
		steps: []step{
			{name: "collect sub-tasks", run: func(ctx context.Context, tx storage.Transaction) error {
				if _, err := load[types.Issue](ctx, tx, storage.TableIssues, "issue", issueID); err != nil {
					return err
				}
				var err error
				doomed, err = subtaskTree(ctx, tx, issueID)
				return err
			}},
			{name: "unlink epic children", run: func(ctx context.Context, tx storage.Transaction) error {
				removed := make(map[string]bool, len(doomed))
				for _, id := range doomed {
					removed[id] = true
				}
				for _, id := range doomed {
					children, err := storage.Query[types.Issue](ctx, tx, storage.TableIssues, storage.By("epicId", id))
					if err != nil {
						return err
					}
					for _, child := range children {
						if removed[child.ID] {
							continue
						}
						child.EpicID = ""
						child.UpdatedAt = now().UTC()
						if err := storage.Put(ctx, tx, storage.TableIssues, child); err != nil {
							return err
						}
					}
				}
				return nil
			}},
			{name: "delete comments and activity", run: func(ctx context.Context, tx storage.Transaction) error {
				for _, id := range doomed {
					if err := deleteIssueTrail(ctx, tx, id); err != nil {
						return err
					}
				}
				return nil
			}},
			{name: "delete issues", run: func(ctx context.Context, tx storage.Transaction) error {
				for _, id := range doomed {
					if err := tx.Delete(ctx, storage.TableIssues, id); err != nil {
						return err
					}
				}
				return nil
			}},
		},
	}
}

// subtaskTree returns root followed by every issue below it via parentId.
func subtaskTree(ctx context.Context, r storage.Reader, root string) ([]string, error) {
	out := []string{root}
	seen := map[string]bool{root: true}
	for i := 0; i < len(out); i++ {
		children, err := queryIDs(ctx, r, storage.TableIssues, storage.By("parentId", out[i]))
		if err != nil {
			return nil, err
		}
		for _, id := range children {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}

// deleteIssueTrail removes the comments and activity rows of one issue.
func deleteIssueTrail(ctx context.Context, tx storage.Transaction, issueID string) error {
	byIssue := storage.By("issueId", issueID)
	if _, err := deleteWhere(ctx, tx, storage.TableComments, byIssue); err != nil {
		return err
	}
	_, err := deleteWhere(ctx, tx, storage.TableActivityLog, byIssue)
	return err
}
