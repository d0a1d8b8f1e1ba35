package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/eventbus"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

// ProjectInput holds the fields of a new project.
type ProjectInput struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	WorkflowID  string `json:"workflowId,omitempty"`
	LeadID      string `json:"leadId,omitempty"`
}

// ProjectPatch lists the project fields to change. Nil fields are left alone.
// The key is immutable and cannot be patched.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	IsArchived  *bool   `json:"isArchived,omitempty"`
	LeadID      *string `json:"leadId,omitempty"`
	WorkflowID  *string `json:"workflowId,omitempty"`
}

// CreateProject creates a project and its board in one transaction. The
// board columns come from the project's workflow, or the defaults.
func (s *Service) CreateProject(ctx context.Context, in ProjectInput, actorID string) (*types.Project, error) {
	key := strings.ToUpper(strings.TrimSpace(in.Key))
	if !types.ValidProjectKey(key) {
		return nil, types.NewValidationError("key", fmt.Sprintf("invalid project key %q (2-10 characters, A-Z and 0-9, starting with a letter)", in.Key))
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, types.NewValidationError("name", "project name is required")
	}

	now := s.clock()
	project := &types.Project{
		ID:          s.newID(),
		Key:         key,
		Name:        name,
		Description: in.Description,
		Color:       in.Color,
		WorkflowID:  in.WorkflowID,
		LeadID:      in.LeadID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	board := &types.Board{
		ID:        s.newID(),
		ProjectID: project.ID,
		Name:      name + " Board",
		Columns:   types.DefaultColumns(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	tables := []storage.Table{storage.TableProjects, storage.TableBoards, storage.TableWorkflows}
	err := s.store.RunInTransaction(ctx, tables, func(tx storage.Transaction) error {
		existing, err := queryIDs(ctx, tx, storage.TableProjects, storage.By("key", key))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return types.NewValidationError("key", fmt.Sprintf("project key %s is already in use", key))
		}
		if in.WorkflowID != "" {
			wf, err := load[types.Workflow](ctx, tx, storage.TableWorkflows, "workflow", in.WorkflowID)
			if err != nil {
				return err
			}
			board.Columns = wf.Columns()
		}
		if err := storage.Put(ctx, tx, storage.TableProjects, project); err != nil {
			return err
		}
		return storage.Put(ctx, tx, storage.TableBoards, board)
	})
	if err != nil {
		return nil, err
	}

	debug.Logf("service: created project %s (%s)\n", project.Key, project.ID)
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventProjectCreated, EntityID: project.ID, ProjectID: project.ID,
		Actor: actorID, Summary: project.Key,
	}, tables)
	return project, nil
}

// GetProject returns a project by id.
func (s *Service) GetProject(ctx context.Context, id string) (*types.Project, error) {
	return load[types.Project](ctx, s.store, storage.TableProjects, "project", id)
}

// GetProjectByKey returns the project with the given key (case-insensitive).
func (s *Service) GetProjectByKey(ctx context.Context, key string) (*types.Project, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	projects, err := storage.Query[types.Project](ctx, s.store, storage.TableProjects, storage.By("key", key))
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, types.NotFound("project", key)
	}
	return projects[0], nil
}

// ListProjects returns projects ordered by key. Archived projects are
// skipped unless includeArchived is set.
func (s *Service) ListProjects(ctx context.Context, includeArchived bool) ([]*types.Project, error) {
	all, err := storage.All[types.Project](ctx, s.store, storage.TableProjects)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if includeArchived || !p.IsArchived {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// UpdateProject merges patch into the project and bumps UpdatedAt.
// Switching the workflow rebuilds the board columns from it, which fails if
// an issue still sits in a status the new workflow lacks.
func (s *Service) UpdateProject(ctx context.Context, id string, patch ProjectPatch, actorID string) (*types.Project, error) {
	var project *types.Project
	tables := []storage.Table{storage.TableProjects, storage.TableWorkflows, storage.TableBoards, storage.TableIssues}
	err := s.store.RunInTransaction(ctx, tables, func(tx storage.Transaction) error {
		var err error
		project, err = load[types.Project](ctx, tx, storage.TableProjects, "project", id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return types.NewValidationError("name", "project name is required")
			}
			project.Name = name
		}
		if patch.Description != nil {
			project.Description = *patch.Description
		}
		if patch.Color != nil {
			project.Color = *patch.Color
		}
		if patch.IsArchived != nil {
			project.IsArchived = *patch.IsArchived
		}
		if patch.LeadID != nil {
			project.LeadID = *patch.LeadID
		}
		if patch.WorkflowID != nil && *patch.WorkflowID != project.WorkflowID {
			project.WorkflowID = *patch.WorkflowID
			if project.WorkflowID != "" {
				wf, err := load[types.Workflow](ctx, tx, storage.TableWorkflows, "workflow", project.WorkflowID)
				if err != nil {
					return err
				}
				if _, err := replaceColumns(ctx, tx, project.ID, wf.Columns(), s.clock()); err != nil {
					return err
				}
			}
		}
		project.UpdatedAt = s.clock()
		return storage.Put(ctx, tx, storage.TableProjects, project)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventProjectUpdated, EntityID: project.ID, ProjectID: project.ID,
		Actor: actorID, Summary: project.Key,
	}, tables)
	return project, nil
}

// DeleteProject removes the project and, in the same transaction, every row
// in every table that references it.
func (s *Service) DeleteProject(ctx context.Context, id string, actorID string) error {
	u := deleteProjectUnit(id)
	if err := s.execute(ctx, u); err != nil {
		return err
	}
	debug.Logf("service: deleted project %s\n", id)
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventProjectDeleted, EntityID: id, ProjectID: id, Actor: actorID,
	}, u.tables)
	return nil
}
