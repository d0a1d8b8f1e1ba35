package service

import (
	"context"
	"sort"
	"strings"

	"github.com/steveyegge/boards/internal/eventbus"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

var commentTables = []storage.Table{
	storage.TableIssues,
	storage.TableComments,
	storage.TableActivityLog,
	storage.TableMeta,
}

func commentBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", types.NewValidationError("body", "comment body is required")
	}
	return body, nil
}

// AddComment adds a comment to an issue and records comment_added.
func (s *Service) AddComment(ctx context.Context, issueID, body, actorID string) (*types.Comment, error) {
	body, err := commentBody(body)
	if err != nil {
		return nil, err
	}
	var (
		comment *types.Comment
		issue   *types.Issue
	)
	err = s.store.RunInTransaction(ctx, commentTables, func(tx storage.Transaction) error {
		issue, err = load[types.Issue](ctx, tx, storage.TableIssues, "issue", issueID)
		if err != nil {
			return err
		}
		seq, err := nextSeq(ctx, tx)
		if err != nil {
			return err
		}
		now := s.clock()
		comment = &types.Comment{
			ID:        s.newID(),
			IssueID:   issueID,
			AuthorID:  actorID,
			Body:      body,
			CreatedAt: now,
			UpdatedAt: now,
			Seq:       seq,
		}
		if err := storage.Put(ctx, tx, storage.TableComments, comment); err != nil {
			return err
		}
		return s.appendActivity(ctx, tx, &types.ActivityLog{
			IssueID:   issueID,
			UserID:    actorID,
			Action:    types.ActionCommentAdded,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventCommentAdded, EntityID: comment.ID, ProjectID: issue.ProjectID,
		Actor: actorID, Summary: issue.Key,
	}, commentTables)
	return comment, nil
}

// UpdateComment replaces the body of a comment and records comment_edited.
func (s *Service) UpdateComment(ctx context.Context, id, body, actorID string) (*types.Comment, error) {
	body, err := commentBody(body)
	if err != nil {
		return nil, err
	}
	var comment *types.Comment
	err = s.store.RunInTransaction(ctx, commentTables, func(tx storage.Transaction) error {
		comment, err = load[types.Comment](ctx, tx, storage.TableComments, "comment", id)
		if err != nil {
			return err
		}
		now := s.clock()
		comment.Body = body
		comment.UpdatedAt = now
		if err := storage.Put(ctx, tx, storage.TableComments, comment); err != nil {
			return err
		}
		return s.appendActivity(ctx, tx, &types.ActivityLog{
			IssueID:   comment.IssueID,
			UserID:    actorID,
			Action:    types.ActionCommentEdited,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventCommentEdited, EntityID: comment.ID, Actor: actorID,
	}, commentTables)
	return comment, nil
}

// DeleteComment removes a comment and records comment_deleted.
func (s *Service) DeleteComment(ctx context.Context, id, actorID string) error {
	err := s.store.RunInTransaction(ctx, commentTables, func(tx storage.Transaction) error {
		comment, err := load[types.Comment](ctx, tx, storage.TableComments, "comment", id)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, storage.TableComments, id); err != nil {
			return err
		}
		return s.appendActivity(ctx, tx, &types.ActivityLog{
			IssueID: comment.IssueID,
			UserID:  actorID,
			Action:  types.ActionCommentDeleted,
		})
	})
	if err != nil {
		return err
	}
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventCommentDeleted, EntityID: id, Actor: actorID,
	}, commentTables)
	return nil
}

// GetComment returns a comment by id.
func (s *Service) GetComment(ctx context.Context, id string) (*types.Comment, error) {
	return load[types.Comment](ctx, s.store, storage.TableComments, "comment", id)
}

// ListComments returns the comments of an issue, oldest first.
func (s *Service) ListComments(ctx context.Context, issueID string) ([]*types.Comment, error) {
	var comments []*types.Comment
	err := s.view(ctx, []storage.Table{storage.TableIssues, storage.TableComments}, func(r storage.Reader) error {
		if _, err := load[types.Issue](ctx, r, storage.TableIssues, "issue", issueID); err != nil {
			return err
		}
		var err error
		comments, err = storage.Query[types.Comment](ctx, r, storage.TableComments, storage.By("issueId", issueID))
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].Seq < comments[j].Seq })
	return comments, nil
}
