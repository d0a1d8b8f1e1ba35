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

// Backlog is the carryover target that returns unfinished issues to the
// project backlog.
const Backlog = "backlog"

// SprintInput holds the fields of a new sprint. An empty name becomes
// "<KEY> Sprint <n>".
type SprintInput struct {
	ProjectID string     `json:"projectId"`
	Name      string     `json:"name,omitempty"`
	Goal      string     `json:"goal,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// SprintPatch lists the sprint fields to change. Status is not patchable;
// use StartSprint and CompleteSprint.
type SprintPatch struct {
	Name      *string    `json:"name,omitempty"`
	Goal      *string    `json:"goal,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// SprintVelocity is one point of a project's velocity history.
type SprintVelocity struct {
	SprintID    string    `json:"sprintId"`
	Name        string    `json:"name"`
	CompletedAt time.Time `json:"completedAt"`
	Velocity    float64   `json:"velocity"`
}

// CompletionResult reports what CompleteSprint did.
type CompletionResult struct {
	Sprint      *types.Sprint `json:"sprint"`
	Done        []string      `json:"done"`        // Issue ids counted towards velocity
	CarriedOver []string      `json:"carriedOver"` // Issue ids re-pointed to the target
	Target      string        `json:"target"`
}

var sprintTables = append([]storage.Table{storage.TableBoards}, auditTables...)

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return types.NewValidationError("endDate", "sprint end date is before its start date")
	}
	return nil
}

// CreateSprint adds a future sprint to a project.
func (s *Service) CreateSprint(ctx context.Context, in SprintInput, actorID string) (*types.Sprint, error) {
	if err := validateDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	var sprint *types.Sprint
	tables := []storage.Table{storage.TableProjects, storage.TableSprints}
	err := s.store.RunInTransaction(ctx, tables, func(tx storage.Transaction) error {
		project, err := load[types.Project](ctx, tx, storage.TableProjects, "project", in.ProjectID)
		if err != nil {
			return err
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			existing, err := queryIDs(ctx, tx, storage.TableSprints, storage.By("projectId", project.ID))
			if err != nil {
				return err
			}
			name = fmt.Sprintf("%s Sprint %d", project.Key, len(existing)+1)
		}
		now := s.clock()
		sprint = &types.Sprint{
			ID:        s.newID(),
			ProjectID: project.ID,
			Name:      name,
			Goal:      in.Goal,
			Status:    types.SprintFuture,
			StartDate: in.StartDate,
			EndDate:   in.EndDate,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return storage.Put(ctx, tx, storage.TableSprints, sprint)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventSprintCreated, EntityID: sprint.ID, ProjectID: sprint.ProjectID,
		Actor: actorID, Summary: sprint.Name,
	}, tables)
	return sprint, nil
}

// UpdateSprint changes the name, goal or dates of a sprint.
func (s *Service) UpdateSprint(ctx context.Context, id string, patch SprintPatch, actorID string) (*types.Sprint, error) {
	var sprint *types.Sprint
	tables := []storage.Table{storage.TableSprints}
	err := s.store.RunInTransaction(ctx, tables, func(tx storage.Transaction) error {
		var err error
		sprint, err = load[types.Sprint](ctx, tx, storage.TableSprints, "sprint", id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return types.NewValidationError("name", "sprint name is required")
			}
			sprint.Name = name
		}
		if patch.Goal != nil {
			sprint.Goal = *patch.Goal
		}
		if patch.StartDate != nil {
			start := *patch.StartDate
			sprint.StartDate = &start
		}
		if patch.EndDate != nil {
			end := *patch.EndDate
			sprint.EndDate = &end
		}
		if err := validateDates(sprint.StartDate, sprint.EndDate); err != nil {
			return err
		}
		sprint.UpdatedAt = s.clock()
		return storage.Put(ctx, tx, storage.TableSprints, sprint)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventSprintUpdated, EntityID: sprint.ID, ProjectID: sprint.ProjectID,
		Actor: actorID, Summary: sprint.Name,
	}, tables)
	return sprint, nil
}

// StartSprint activates a future sprint. Any other active sprint of the
// project is completed first, in the same transaction, so a project never
// has two active sprints. Force-completed sprints get no velocity and keep
// their issues.
func (s *Service) StartSprint(ctx context.Context, id string, actorID string) (*types.Sprint, error) {
	var (
		sprint *types.Sprint
		closed []string
	)
	tables := []storage.Table{storage.TableSprints}
	err := s.store.RunInTransaction(ctx, tables, func(tx storage.Transaction) error {
		var err error
		sprint, err = load[types.Sprint](ctx, tx, storage.TableSprints, "sprint", id)
		if err != nil {
			return err
		}
		if !sprint.Status.CanTransitionTo(types.SprintActive) {
			return fmt.Errorf("start sprint %s (%s): %w", sprint.Name, sprint.Status, types.ErrInvalidTransition)
		}

		now := s.clock()
		active, err := storage.Query[types.Sprint](ctx, tx, storage.TableSprints,
			storage.By("projectId", sprint.ProjectID).And("status", string(types.SprintActive)))
		if err != nil {
			return err
		}
		for _, other := range active {
			completedAt := now
			other.Status = types.SprintCompleted
			other.CompletedAt = &completedAt
			other.UpdatedAt = now
			if err := storage.Put(ctx, tx, storage.TableSprints, other); err != nil {
				return err
			}
			closed = append(closed, other.ID)
		}

		sprint.Status = types.SprintActive
		if sprint.StartDate == nil {
			start := now
			sprint.StartDate = &start
		}
		sprint.UpdatedAt = now
		return storage.Put(ctx, tx, storage.TableSprints, sprint)
	})
	if err != nil {
		return nil, err
	}

	if len(closed) > 0 {
		debug.Logf("service: starting sprint %s force-completed %v\n", sprint.ID, closed)
	}
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventSprintStarted, EntityID: sprint.ID, ProjectID: sprint.ProjectID,
		Actor: actorID, Summary: sprint.Name,
	}, tables)
	return sprint, nil
}

// CompleteSprint closes an active sprint. Issues whose status resolves to a
// done column count towards the velocity (the sum of their story points);
// every other issue moves to carryover, which is Backlog or the id of a
// future or active sprint of the same project. The classification, the
// carryover and the final sprint write share one transaction.
func (s *Service) CompleteSprint(ctx context.Context, id, carryover, actorID string) (*CompletionResult, error) {
	if carryover == "" {
		carryover = Backlog
	}
	result := &CompletionResult{Target: carryover, Done: []string{}, CarriedOver: []string{}}
	err := s.store.RunInTransaction(ctx, sprintTables, func(tx storage.Transaction) error {
		sprint, err := load[types.Sprint](ctx, tx, storage.TableSprints, "sprint", id)
		if err != nil {
			return err
		}
		if !sprint.Status.CanTransitionTo(types.SprintCompleted) {
			return fmt.Errorf("complete sprint %s (%s): %w", sprint.Name, sprint.Status, types.ErrInvalidTransition)
		}

		target := ""
		if carryover != Backlog {
			next, err := load[types.Sprint](ctx, tx, storage.TableSprints, "sprint", carryover)
			if err != nil {
				return err
			}
			switch {
			case next.ID == sprint.ID:
				return types.NewValidationError("carryover", "cannot carry issues over into the sprint being completed")
			case next.ProjectID != sprint.ProjectID:
				return types.NewValidationError("carryover", fmt.Sprintf("sprint %s belongs to another project", next.Name))
			case next.Status == types.SprintCompleted:
				return types.NewValidationError("carryover", fmt.Sprintf("sprint %s is already completed", next.Name))
			}
			target = next.ID
		}

		board, err := boardFor(ctx, tx, sprint.ProjectID)
		if err != nil {
			return err
		}
		issues, err := storage.Query[types.Issue](ctx, tx, storage.TableIssues, storage.By("sprintId", sprint.ID))
		if err != nil {
			return err
		}

		now := s.clock()
		velocity := 0.0
		for _, issue := range issues {
			if board.IsDone(issue.Status) {
				velocity += issue.Points()
				result.Done = append(result.Done, issue.ID)
				continue
			}
			before := copyIssue(issue)
			issue.SprintID = target
			issue.UpdatedAt = now
			if err := storage.Put(ctx, tx, storage.TableIssues, issue); err != nil {
				return err
			}
			if _, err := s.diffIssue(ctx, tx, before, issue, actorID); err != nil {
				return err
			}
			result.CarriedOver = append(result.CarriedOver, issue.ID)
		}

		completedAt := now
		sprint.Status = types.SprintCompleted
		sprint.CompletedAt = &completedAt
		sprint.Velocity = &velocity
		sprint.UpdatedAt = now
		result.Sprint = sprint
		return storage.Put(ctx, tx, storage.TableSprints, sprint)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventSprintCompleted, EntityID: result.Sprint.ID, ProjectID: result.Sprint.ProjectID,
		Actor:   actorID,
		Summary: fmt.Sprintf("%s velocity=%g carried=%d", result.Sprint.Name, *result.Sprint.Velocity, len(result.CarriedOver)),
	}, sprintTables)
	return result, nil
}

// DeleteSprint removes a sprint and returns its issues to the backlog.
func (s *Service) DeleteSprint(ctx context.Context, id string, actorID string) error {
	var sprint *types.Sprint
	err := s.store.RunInTransaction(ctx, sprintTables, func(tx storage.Transaction) error {
		var err error
		sprint, err = load[types.Sprint](ctx, tx, storage.TableSprints, "sprint", id)
		if err != nil {
			return err
		}
		issues, err := storage.Query[types.Issue](ctx, tx, storage.TableIssues, storage.By("sprintId", id))
		if err != nil {
			return err
		}
		now := s.clock()
		for _, issue := range issues {
			before := copyIssue(issue)
			issue.SprintID = ""
			issue.UpdatedAt = now
			if err := storage.Put(ctx, tx, storage.TableIssues, issue); err != nil {
				return err
			}
			// Logged before the sprint row goes so the name still resolves.
			if _, err := s.diffIssue(ctx, tx, before, issue, actorID); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, storage.TableSprints, id)
	})
	if err != nil {
		return err
	}
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventSprintDeleted, EntityID: id, ProjectID: sprint.ProjectID,
		Actor: actorID, Summary: sprint.Name,
	}, sprintTables)
	return nil
}

// GetSprint returns a sprint by id.
func (s *Service) GetSprint(ctx context.Context, id string) (*types.Sprint, error) {
	return load[types.Sprint](ctx, s.store, storage.TableSprints, "sprint", id)
}

// ListSprints returns the sprints of a project in creation order.
func (s *Service) ListSprints(ctx context.Context, projectID string) ([]*types.Sprint, error) {
	return storage.Query[types.Sprint](ctx, s.store, storage.TableSprints, storage.By("projectId", projectID))
}

// GetActiveSprint returns the active sprint of a project, or nil when there
// is none.
func (s *Service) GetActiveSprint(ctx context.Context, projectID string) (*types.Sprint, error) {
	active, err := storage.Query[types.Sprint](ctx, s.store, storage.TableSprints,
		storage.By("projectId", projectID).And("status", string(types.SprintActive)))
	if err != nil || len(active) == 0 {
		return nil, err
	}
	return active[0], nil
}

// VelocityHistory returns the completed sprints of a project that recorded
// a velocity, oldest completion first.
func (s *Service) VelocityHistory(ctx context.Context, projectID string) ([]SprintVelocity, error) {
	completed, err := storage.Query[types.Sprint](ctx, s.store, storage.TableSprints,
		storage.By("projectId", projectID).And("status", string(types.SprintCompleted)))
	if err != nil {
		return nil, err
	}
	out := []SprintVelocity{}
	for _, sp := range completed {
		if sp.Velocity == nil || sp.CompletedAt == nil {
			continue
		}
		out = append(out, SprintVelocity{
			SprintID:    sp.ID,
			Name:        sp.Name,
			CompletedAt: *sp.CompletedAt,
			Velocity:    *sp.Velocity,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}
