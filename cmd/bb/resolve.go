package main

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/types"
)

// defaultProjectKey is the settings key `bb project use` writes.
const defaultProjectKey = service.DefaultProjectSetting

// issueKeyRe matches human issue keys such as TP-12.
var issueKeyRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]{1,9})-(\d+)$`)

// resolveProject accepts a project key (case-insensitive) or id.
func resolveProject(ctx context.Context, ref string) (*types.Project, error) {
	p, err := svc.GetProjectByKey(ctx, strings.ToUpper(ref))
	if err == nil || !errors.Is(err, types.ErrNotFound) {
		return p, err
	}
	return svc.GetProject(ctx, ref)
}

// projectArg resolves the project named by args[0], or the default project
// set with `bb project use`.
func projectArg(ctx context.Context, args []string) (*types.Project, error) {
	if len(args) > 0 && args[0] != "" {
		return resolveProject(ctx, args[0])
	}
	ref, ok, err := svc.GetSetting(ctx, defaultProjectKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no project given and no default project set (run 'bb project use <KEY>')")
	}
	return resolveProject(ctx, ref)
}

// resolveIssue accepts an issue key (TP-12) or id.
func resolveIssue(ctx context.Context, ref string) (*types.Issue, error) {
	m := issueKeyRe.FindStringSubmatch(ref)
	if m == nil {
		return svc.GetIssue(ctx, ref)
	}
	project, err := svc.GetProjectByKey(ctx, strings.ToUpper(m[1]))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return svc.GetIssue(ctx, ref)
		}
		return nil, err
	}
	return svc.GetIssueByKey(ctx, project.ID, strings.ToUpper(ref))
}

// resolveIssueID is resolveIssue for flags that take an optional issue
// reference; "" and "none" clear the reference.
func resolveIssueID(ctx context.Context, ref string) (string, error) {
	if ref == "" || ref == "none" {
		return "", nil
	}
	issue, err := resolveIssue(ctx, ref)
	if err != nil {
		return "", err
	}
	return issue.ID, nil
}

// resolveUserID accepts an email address or a user id; "" and "none" clear
// the reference. Unknown ids are passed through, since assignees need not be
// registered users.
func resolveUserID(ctx context.Context, ref string) (string, error) {
	if ref == "" || ref == "none" {
		return "", nil
	}
	if !strings.Contains(ref, "@") {
		return ref, nil
	}
	user, err := svc.GetUserByEmail(ctx, ref)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// splitList parses a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseKeyValues parses key=value pairs.
func parseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid criterion %q (want key=value)", pair)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
