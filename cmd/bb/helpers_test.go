package main

import (
	"context"
	"testing"

	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/storage/memory"
	"github.com/steveyegge/boards/internal/types"
)

// setupTestService points the command globals at a fresh in-memory service.
func setupTestService(t *testing.T) *service.Service {
	t.Helper()
	prevSvc, prevStore, prevCtx := svc, store, rootCtx
	s := memory.New()
	store = s
	svc = service.New(s)
	rootCtx = context.Background()
	t.Cleanup(func() {
		_ = s.Close()
		svc, store, rootCtx = prevSvc, prevStore, prevCtx
	})
	return svc
}

func createTestProject(t *testing.T, key string) *types.Project {
	t.Helper()
	p, err := svc.CreateProject(rootCtx, service.ProjectInput{Key: key, Name: key + " project"}, "tester")
	if err != nil {
		t.Fatalf("CreateProject(%s) error = %v", key, err)
	}
	return p
}

func createTestIssue(t *testing.T, projectID, title string) *types.Issue {
	t.Helper()
	issue, err := svc.CreateIssue(rootCtx, service.IssueInput{ProjectID: projectID, Title: title}, "tester")
	if err != nil {
		t.Fatalf("CreateIssue(%q) error = %v", title, err)
	}
	return issue
}
