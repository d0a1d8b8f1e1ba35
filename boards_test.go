package boards_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/steveyegge/boards"
)

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := boards.OpenSQLite(ctx, filepath.Join(t.TempDir(), "nested", "boards.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer store.Close()

	svc := boards.NewService(store)
	p, err := svc.CreateProject(ctx, boards.ProjectInput{Key: "TP", Name: "Test"}, "tester")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	issue, err := svc.CreateIssue(ctx, boards.IssueInput{ProjectID: p.ID, Title: "first"}, "tester")
	if err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	if issue.Key != "TP-1" {
		t.Errorf("issue key = %q, want TP-1", issue.Key)
	}
}

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	store := boards.OpenMemory()
	defer store.Close()

	svc := boards.NewService(store)
	p, err := svc.CreateProject(ctx, boards.ProjectInput{Key: "MEM", Name: "Memory"}, "tester")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	sprint, err := svc.CreateSprint(ctx, boards.SprintInput{ProjectID: p.ID}, "tester")
	if err != nil {
		t.Fatalf("CreateSprint failed: %v", err)
	}
	if sprint.Status != boards.SprintFuture {
		t.Errorf("new sprint status = %q, want %q", sprint.Status, boards.SprintFuture)
	}
}

func TestFindDatabasePath(t *testing.T) {
	if path := boards.FindDatabasePath(); path == "" {
		t.Error("FindDatabasePath() returned empty path")
	}
}
