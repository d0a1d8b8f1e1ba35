package service

import (
	"context"
	"fmt"
	"time"

	"github.com/steveyegge/boards/internal/eventbus"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

// boardFor returns the board of a project.
func boardFor(ctx context.Context, r storage.Reader, projectID string) (*types.Board, error) {
	boards, err := storage.Query[types.Board](ctx, r, storage.TableBoards, storage.By("projectId", projectID))
	if err != nil {
		return nil, err
	}
	if len(boards) == 0 {
		return nil, types.NotFound("board", projectID)
	}
	return boards[0], nil
}

// GetBoard returns the board of a project.
func (s *Service) GetBoard(ctx context.Context, projectID string) (*types.Board, error) {
	var board *types.Board
	err := s.view(ctx, []storage.Table{storage.TableProjects, storage.TableBoards}, func(r storage.Reader) error {
		if _, err := load[types.Project](ctx, r, storage.TableProjects, "project", projectID); err != nil {
			return err
		}
		var err error
		board, err = boardFor(ctx, r, projectID)
		return err
	})
	return board, err
}

// UpdateBoardColumns replaces the columns of a project's board. Column sort
// orders are renumbered to follow the given order.
func (s *Service) UpdateBoardColumns(ctx context.Context, projectID string, columns []types.Column, actorID string) (*types.Board, error) {
	var board *types.Board
	tables := []storage.Table{storage.TableProjects, storage.TableBoards, storage.TableIssues}
	err := s.store.RunInTransaction(ctx, tables, func(tx storage.Transaction) error {
		if _, err := load[types.Project](ctx, tx, storage.TableProjects, "project", projectID); err != nil {
			return err
		}
		var err error
		board, err = replaceColumns(ctx, tx, projectID, columns, s.clock())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventBoardUpdated, EntityID: board.ID, ProjectID: projectID, Actor: actorID,
	}, tables)
	return board, nil
}

// replaceColumns validates and stores a new column set. A column that
// issues still use cannot be dropped. The transaction must include boards
// and issues.
func replaceColumns(ctx context.Context, tx storage.Transaction, projectID string, columns []types.Column, now time.Time) (*types.Board, error) {
	if err := types.ValidateColumns(columns); err != nil {
		return nil, err
	}
	board, err := boardFor(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}

	next := make([]types.Column, len(columns))
	keep := make(map[string]bool, len(columns))
	for i, c := range columns {
		if c.Name == "" {
			c.Name = c.ID
		}
		c.SortOrder = i
		next[i] = c
		keep[c.ID] = true
	}
	for _, old := range board.Columns {
		if keep[old.ID] {
			continue
		}
		inUse, err := queryIDs(ctx, tx, storage.TableIssues, storage.By("projectId", projectID).And("status", old.ID))
		if err != nil {
			return nil, err
		}
		if len(inUse) > 0 {
			return nil, types.NewValidationError("columns",
				fmt.Sprintf("column %s still holds %d issue(s); move them first", old.ID, len(inUse)))
		}
	}

	// Keep resolvedAt in step with columns whose category crosses done.
	for _, c := range next {
		old, existed := board.Column(c.ID)
		if !existed || (old.StatusCategory == types.CategoryDone) == (c.StatusCategory == types.CategoryDone) {
			continue
		}
		issues, err := storage.Query[types.Issue](ctx, tx, storage.TableIssues, storage.By("projectId", projectID).And("status", c.ID))
		if err != nil {
			return nil, err
		}
		for _, issue := range issues {
			if c.StatusCategory == types.CategoryDone {
				resolved := now
				issue.ResolvedAt = &resolved
			} else {
				issue.ResolvedAt = nil
			}
			issue.UpdatedAt = now
			if err := storage.Put(ctx, tx, storage.TableIssues, issue); err != nil {
				return nil, err
			}
		}
	}

	board.Columns = next
	board.UpdatedAt = now
	if err := storage.Put(ctx, tx, storage.TableBoards, board); err != nil {
		return nil, err
	}
	return board, nil
}
