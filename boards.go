// Package boards provides a minimal public API for embedding the bb
// tracker: open a store and drive it through the service layer.
//
// Most programs should use the bb CLI with --json. This package exports only
// what Go programs need to work with a bb database directly.
package boards

import (
	"context"

	"github.com/steveyegge/boards/internal/config"
	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/storage/memory"
	"github.com/steveyegge/boards/internal/storage/sqlite"
	"github.com/steveyegge/boards/internal/types"
)

// Core types
type (
	Project = types.Project
	Issue   = types.Issue
	Sprint  = types.Sprint
	Board   = types.Board
	Column  = types.Column
	Comment = types.Comment

	IssueType      = types.IssueType
	Priority       = types.Priority
	SprintStatus   = types.SprintStatus
	StatusCategory = types.StatusCategory
)

// Service inputs
type (
	ProjectInput = service.ProjectInput
	IssueInput   = service.IssueInput
	IssuePatch   = service.IssuePatch
	IssueFilter  = service.IssueFilter
	MoveInput    = service.MoveInput
	SprintInput  = service.SprintInput
)

// Sprint status constants
const (
	SprintFuture    = types.SprintFuture
	SprintActive    = types.SprintActive
	SprintCompleted = types.SprintCompleted
)

// Backlog is the sprint carryover target for "no sprint".
const Backlog = service.Backlog

// Store is the persistence interface the service runs on.
type Store = storage.Store

// Service applies the tracker's domain rules on top of a Store.
type Service = service.Service

// OpenSQLite opens (creating if needed) a SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (Store, error) {
	return sqlite.New(ctx, path)
}

// OpenMemory returns an empty in-memory store.
func OpenMemory() Store {
	return memory.New()
}

// NewService wraps store in a Service with the default clock and ids.
func NewService(store Store) *Service {
	return service.New(store)
}

// FindDatabasePath returns the database bb would use from the current
// directory: BB_DB or config.yaml's db, else the nearest .boards/boards.db.
func FindDatabasePath() string {
	return config.DBPath()
}
