package service

import (
	"context"
	"sort"
	"strings"

	"github.com/steveyegge/boards/internal/eventbus"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

// WorkflowInput holds the fields of a new workflow.
type WorkflowInput struct {
	Name        string                 `json:"name" toml:"name"`
	Description string                 `json:"description,omitempty" toml:"description"`
	Statuses    []types.WorkflowStatus `json:"statuses" toml:"statuses"`
}

// CreateWorkflow stores a validated workflow. Projects created with it get
// one board column per status.
func (s *Service) CreateWorkflow(ctx context.Context, in WorkflowInput, actorID string) (*types.Workflow, error) {
	now := s.clock()
	wf := &types.Workflow{
		ID:          s.newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Statuses:    in.Statuses,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	if err := storage.Put(ctx, s.store, storage.TableWorkflows, wf); err != nil {
		return nil, err
	}
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventWorkflowChanged, EntityID: wf.ID, Actor: actorID, Summary: "created " + wf.Name,
	}, []storage.Table{storage.TableWorkflows})
	return wf, nil
}

// GetWorkflow returns a workflow by id.
func (s *Service) GetWorkflow(ctx context.Context, id string) (*types.Workflow, error) {
	return load[types.Workflow](ctx, s.store, storage.TableWorkflows, "workflow", id)
}

// ListWorkflows returns every workflow ordered by name.
func (s *Service) ListWorkflows(ctx context.Context) ([]*types.Workflow, error) {
	all, err := storage.All[types.Workflow](ctx, s.store, storage.TableWorkflows)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

// DeleteWorkflow removes a workflow and unlinks the projects that used it.
// Their boards keep the columns they already have.
func (s *Service) DeleteWorkflow(ctx context.Context, id string, actorID string) error {
	tables := []storage.Table{storage.TableWorkflows, storage.TableProjects}
	err := s.store.RunInTransaction(ctx, tables, func(tx storage.Transaction) error {
		if _, err := load[types.Workflow](ctx, tx, storage.TableWorkflows, "workflow", id); err != nil {
			return err
		}
		projects, err := storage.All[types.Project](ctx, tx, storage.TableProjects)
		if err != nil {
			return err
		}
		for _, p := range projects {
			if p.WorkflowID != id {
				continue
			}
			p.WorkflowID = ""
			p.UpdatedAt = s.clock()
			if err := storage.Put(ctx, tx, storage.TableProjects, p); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, storage.TableWorkflows, id)
	})
	if err != nil {
		return err
	}
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventWorkflowChanged, EntityID: id, Actor: actorID, Summary: "deleted",
	}, tables)
	return nil
}
