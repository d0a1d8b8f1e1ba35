package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/timeparsing"
	"github.com/steveyegge/boards/internal/types"
	"github.com/steveyegge/boards/internal/ui"
)

var issueCmd = &cobra.Command{
	Use:     "issue",
	Aliases: []string{"issues", "i"},
	Short:   "Create, list, update and move issues",
	GroupID: "issues",
}

var issueCreateCmd = &cobra.Command{
	Use:   "create [TITLE]",
	Short: "Create an issue",
	Long: `Create an issue in a project. The key is allocated from the project's
counter (TP-1, TP-2, ...) and the issue lands at the bottom of its column.

Without a title on a terminal, an interactive form is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		flags := cmd.Flags()
		project, err := projectArg(ctx, []string{mustString(flags, "project")})
		if err != nil {
			return err
		}

		in := service.IssueInput{
			ProjectID:   project.ID,
			Description: mustString(flags, "description"),
			Type:        types.IssueType(mustString(flags, "type")),
			Status:      mustString(flags, "status"),
			Priority:    types.Priority(mustString(flags, "priority")),
			Labels:      splitList(mustString(flags, "labels")),
			Components:  splitList(mustString(flags, "components")),
			ReporterID:  getActor(),
		}
		if len(args) > 0 {
			in.Title = args[0]
		} else if ui.IsTerminal() && !jsonOutput {
			if err := runIssueForm(&in); err != nil {
				return err
			}
		} else {
			return fmt.Errorf("a title is required")
		}

		if in.AssigneeID, err = resolveUserID(ctx, mustString(flags, "assignee")); err != nil {
			return err
		}
		if in.EpicID, err = resolveIssueID(ctx, mustString(flags, "epic")); err != nil {
			return err
		}
		if in.ParentID, err = resolveIssueID(ctx, mustString(flags, "parent")); err != nil {
			return err
		}
		if sprint := mustString(flags, "sprint"); sprint != "" && sprint != service.Backlog {
			in.SprintID = sprint
		}
		if flags.Changed("points") {
			v, _ := flags.GetFloat64("points")
			in.StoryPoints = &v
		}
		if due := mustString(flags, "due"); due != "" {
			t, err := timeparsing.ParseRelativeTime(due, time.Now())
			if err != nil {
				return err
			}
			in.DueDate = &t
		}

		issue, err := svc.CreateIssue(ctx, in, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(issue)
			return nil
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Created %s: %s\n", green(ui.IconPass), ui.RenderKey(issue.Key), issue.Title)
		return nil
	},
}

func runIssueForm(in *service.IssueInput) error {
	if in.Type == "" {
		in.Type = types.TypeTask
	}
	if in.Priority == "" {
		in.Priority = types.PriorityMedium
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&in.Title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					if len(s) > 500 {
						return fmt.Errorf("title must be 500 characters or less")
					}
					return nil
				}),
			huh.NewText().
				Title("Description").
				Description("Markdown").
				CharLimit(5000).
				Value(&in.Description),
			huh.NewSelect[types.IssueType]().
				Title("Type").
				Options(
					huh.NewOption("Task", types.TypeTask),
					huh.NewOption("Story", types.TypeStory),
					huh.NewOption("Bug", types.TypeBug),
					huh.NewOption("Epic", types.TypeEpic),
				).
				Value(&in.Type),
			huh.NewSelect[types.Priority]().
				Title("Priority").
				Options(
					huh.NewOption("Highest", types.PriorityHighest),
					huh.NewOption("High", types.PriorityHigh),
					huh.NewOption("Medium", types.PriorityMedium),
					huh.NewOption("Low", types.PriorityLow),
					huh.NewOption("Lowest", types.PriorityLowest),
				).
				Value(&in.Priority),
		),
	).WithTheme(huh.ThemeDracula())
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errCancelled
		}
		return fmt.Errorf("form error: %w", err)
	}
	return nil
}

var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues in sort order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		flags := cmd.Flags()

		var issues []*types.Issue
		if id := mustString(flags, "filter"); id != "" {
			var err error
			if issues, err = svc.ApplyFilter(ctx, id); err != nil {
				return err
			}
		} else {
			filter, err := issueFilterFromFlags(ctx, cmd)
			if err != nil {
				return err
			}
			if issues, err = svc.ListIssues(ctx, filter); err != nil {
				return err
			}
		}

		if jsonOutput {
			outputJSON(issues)
			return nil
		}
		if len(issues) == 0 {
			fmt.Println(ui.RenderMuted("No issues found."))
			return nil
		}
		width := ui.TerminalWidth(100)
		for _, issue := range issues {
			fmt.Println(formatIssueLine(issue, width))
		}
		return nil
	},
}

func issueFilterFromFlags(ctx context.Context, cmd *cobra.Command) (service.IssueFilter, error) {
	flags := cmd.Flags()
	var filter service.IssueFilter
	if ref := mustString(flags, "project"); ref != "" || !mustBool(flags, "all-projects") {
		project, err := projectArg(ctx, []string{ref})
		if err != nil {
			return filter, err
		}
		filter.ProjectID = project.ID
	}
	filter.Status = mustString(flags, "status")
	filter.Type = types.IssueType(mustString(flags, "type"))
	filter.Priority = types.Priority(mustString(flags, "priority"))
	filter.Label = mustString(flags, "label")
	filter.Component = mustString(flags, "component")
	if flags.Changed("sprint") {
		sprint := mustString(flags, "sprint")
		if sprint == service.Backlog {
			sprint = ""
		}
		filter.SprintID = &sprint
	}
	var err error
	if filter.AssigneeID, err = resolveUserID(ctx, mustString(flags, "assignee")); err != nil {
		return filter, err
	}
	if filter.EpicID, err = resolveIssueID(ctx, mustString(flags, "epic")); err != nil {
		return filter, err
	}
	if filter.ParentID, err = resolveIssueID(ctx, mustString(flags, "parent")); err != nil {
		return filter, err
	}
	return filter, nil
}

func formatIssueLine(issue *types.Issue, width int) string {
	prefix := fmt.Sprintf("%-9s %-12s %-8s ", issue.Key, issue.Status, issue.Priority)
	title := ui.TruncateSimple(issue.Title, width-len(prefix))
	return fmt.Sprintf("%-9s %-12s %-8s %s",
		ui.RenderKey(issue.Key), issue.Status, ui.RenderPriority(issue.Priority), title)
}

var issueShowCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Show an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		issue, err := resolveIssue(ctx, args[0])
		if err != nil {
			return err
		}
		comments, err := svc.ListComments(ctx, issue.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"issue": issue, "comments": comments})
			return nil
		}

		board, err := svc.GetBoard(ctx, issue.ProjectID)
		if err != nil {
			return err
		}
		col, _ := board.Column(issue.Status)
		statusName := issue.Status
		if col.Name != "" {
			statusName = col.Name
		}

		fmt.Printf("%s %s\n", ui.RenderKey(issue.Key), issue.Title)
		fmt.Println(ui.RenderSeparator())
		row := func(label, value string) {
			if value != "" {
				fmt.Printf("%-11s %s\n", ui.RenderMuted(label), value)
			}
		}
		row("Status", ui.RenderStatus(statusName, col.StatusCategory))
		row("Type", string(issue.Type))
		row("Priority", ui.RenderPriority(issue.Priority))
		row("Assignee", issue.AssigneeID)
		row("Sprint", issue.SprintID)
		row("Epic", issue.EpicID)
		row("Parent", issue.ParentID)
		if issue.StoryPoints != nil {
			row("Points", fmt.Sprintf("%g", *issue.StoryPoints))
		}
		row("Labels", strings.Join(issue.Labels, ", "))
		row("Components", strings.Join(issue.Components, ", "))
		if issue.DueDate != nil {
			row("Due", issue.DueDate.Format("2006-01-02"))
		}
		if issue.ResolvedAt != nil {
			row("Resolved", issue.ResolvedAt.Format(time.RFC3339))
		}

		if issue.Description != "" {
			desc := issue.Description
			if full, _ := cmd.Flags().GetBool("full"); !full {
				desc = ui.TruncateLines(desc, ui.DefaultMaxLines, ui.DefaultContextLines)
			}
			fmt.Println()
			fmt.Println(ui.RenderMarkdown(desc))
		}
		if len(comments) > 0 {
			fmt.Printf("\n%s\n", ui.RenderCategory(fmt.Sprintf("comments (%d)", len(comments))))
			for _, c := range comments {
				fmt.Printf("%s %s\n", ui.RenderAccent(c.AuthorID), ui.RenderMuted(c.CreatedAt.Format("2006-01-02 15:04")))
				fmt.Println(ui.RenderMarkdown(c.Body))
			}
		}
		return nil
	},
}

var issueUpdateCmd = &cobra.Command{
	Use:   "update KEY",
	Short: "Update issue fields",
	Long: `Update issue fields. Changes to status, assignee, priority, sprint and
epic are recorded in the activity log. Use "none" to clear a reference and
"backlog" to take the issue out of its sprint.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		issue, err := resolveIssue(ctx, args[0])
		if err != nil {
			return err
		}
		patch, err := issuePatchFromFlags(ctx, cmd)
		if err != nil {
			return err
		}
		updated, err := svc.UpdateIssue(ctx, issue.ID, patch, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(updated)
			return nil
		}
		debug.PrintNormal("%s Updated %s\n", ui.RenderPass(ui.IconPass), ui.RenderKey(updated.Key))
		return nil
	},
}

func issuePatchFromFlags(ctx context.Context, cmd *cobra.Command) (service.IssuePatch, error) {
	flags := cmd.Flags()
	var patch service.IssuePatch
	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v := mustString(flags, name)
		return &v
	}
	patch.Title = str("title")
	patch.Description = str("description")
	patch.Status = str("status")
	if v := str("type"); v != nil {
		t := types.IssueType(*v)
		patch.Type = &t
	}
	if v := str("priority"); v != nil {
		p := types.Priority(*v)
		patch.Priority = &p
	}
	if v := str("assignee"); v != nil {
		id, err := resolveUserID(ctx, *v)
		if err != nil {
			return patch, err
		}
		patch.AssigneeID = &id
	}
	for name, dst := range map[string]**string{"epic": &patch.EpicID, "parent": &patch.ParentID} {
		if v := str(name); v != nil {
			id, err := resolveIssueID(ctx, *v)
			if err != nil {
				return patch, err
			}
			*dst = &id
		}
	}
	if v := str("sprint"); v != nil {
		if *v == service.Backlog || *v == "none" {
			*v = ""
		}
		patch.SprintID = v
	}
	if flags.Changed("points") {
		if p, _ := flags.GetFloat64("points"); p < 0 {
			patch.ClearStoryPoints = true
		} else {
			patch.StoryPoints = &p
		}
	}
	if v := str("due"); v != nil {
		if *v == "none" || *v == "" {
			patch.ClearDueDate = true
		} else {
			t, err := timeparsing.ParseRelativeTime(*v, time.Now())
			if err != nil {
				return patch, err
			}
			patch.DueDate = &t
		}
	}
	if flags.Changed("labels") {
		patch.SetLabels = splitList(mustString(flags, "labels"))
		if patch.SetLabels == nil {
			patch.SetLabels = []string{}
		}
	}
	patch.AddLabels = splitList(mustString(flags, "add-label"))
	patch.RemoveLabels = splitList(mustString(flags, "remove-label"))
	if flags.Changed("components") {
		patch.SetComponents = splitList(mustString(flags, "components"))
		if patch.SetComponents == nil {
			patch.SetComponents = []string{}
		}
	}
	patch.AddComponents = splitList(mustString(flags, "add-component"))
	patch.RemoveComponents = splitList(mustString(flags, "remove-component"))
	return patch, nil
}

var issueMoveCmd = &cobra.Command{
	Use:   "move KEY",
	Short: "Move an issue to another column or position",
	Long: `Move an issue on the board. --status picks the target column; --after and
--before name the neighbours it should land between. With neither the issue
goes to the bottom of the column.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		issue, err := resolveIssue(ctx, args[0])
		if err != nil {
			return err
		}
		in := service.MoveInput{Status: mustString(cmd.Flags(), "status")}
		if in.PrevID, err = resolveIssueID(ctx, mustString(cmd.Flags(), "after")); err != nil {
			return err
		}
		if in.NextID, err = resolveIssueID(ctx, mustString(cmd.Flags(), "before")); err != nil {
			return err
		}
		moved, err := svc.MoveIssue(ctx, issue.ID, in, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(moved)
			return nil
		}
		debug.PrintNormal("%s Moved %s to %s\n", ui.RenderPass(ui.IconPass), ui.RenderKey(moved.Key), moved.Status)
		return nil
	},
}

var issueDeleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Delete an issue with its sub-tasks, comments and activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issue, err := resolveIssue(rootCtx, args[0])
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		if err := confirmDestructive(fmt.Sprintf("Delete %s?", issue.Key),
			"Sub-tasks, comments and activity go with it; issues in the epic are unlinked.", force); err != nil {
			return err
		}
		if err := svc.DeleteIssue(rootCtx, issue.ID, getActor()); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"deleted": issue.ID})
			return nil
		}
		debug.PrintNormal("%s Deleted %s\n", ui.RenderPass(ui.IconPass), issue.Key)
		return nil
	},
}

// flagGetter is the part of a flag set the must* helpers read.
type flagGetter interface {
	GetString(name string) (string, error)
	GetBool(name string) (bool, error)
}

func mustString(flags flagGetter, name string) string {
	v, _ := flags.GetString(name)
	return v
}

func mustBool(flags flagGetter, name string) bool {
	v, _ := flags.GetBool(name)
	return v
}

func addIssueFieldFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("description", "d", "", "Description (markdown)")
	f.StringP("type", "t", "", "Type: story, bug, task, epic, subtask")
	f.StringP("priority", "P", "", "Priority: highest, high, medium, low, lowest")
	f.StringP("status", "s", "", "Board column id")
	f.StringP("assignee", "a", "", "Assignee user id or email")
	f.String("epic", "", "Epic issue key")
	f.String("parent", "", "Parent issue key (sub-tasks)")
	f.String("sprint", "", `Sprint id, or "backlog"`)
	f.Float64("points", 0, "Story points")
	f.String("labels", "", "Comma-separated labels")
	f.String("components", "", "Comma-separated components")
	f.String("due", "", "Due date (2026-03-16, +1w, next friday)")
}

func init() {
	addIssueFieldFlags(issueCreateCmd)
	issueCreateCmd.Flags().StringP("project", "p", "", "Project key (default: bb project use)")

	addIssueFieldFlags(issueUpdateCmd)
	issueUpdateCmd.Flags().String("title", "", "New title")
	issueUpdateCmd.Flags().String("add-label", "", "Labels to add")
	issueUpdateCmd.Flags().String("remove-label", "", "Labels to remove")
	issueUpdateCmd.Flags().String("add-component", "", "Components to add")
	issueUpdateCmd.Flags().String("remove-component", "", "Components to remove")
	issueUpdateCmd.Flags().Lookup("points").Usage = "Story points (negative clears)"

	f := issueListCmd.Flags()
	f.StringP("project", "p", "", "Project key (default: bb project use)")
	f.Bool("all-projects", false, "List issues of every project")
	f.StringP("status", "s", "", "Column id")
	f.String("sprint", "", `Sprint id, or "backlog"`)
	f.StringP("assignee", "a", "", "Assignee user id or email")
	f.StringP("type", "t", "", "Issue type")
	f.StringP("priority", "P", "", "Priority")
	f.String("label", "", "Label name")
	f.String("component", "", "Component name")
	f.String("epic", "", "Epic issue key")
	f.String("parent", "", "Parent issue key")
	f.String("filter", "", "Run a saved filter by id")

	issueShowCmd.Flags().Bool("full", false, "Show the complete description")

	issueMoveCmd.Flags().StringP("status", "s", "", "Target column id")
	issueMoveCmd.Flags().String("after", "", "Issue that should end up directly above")
	issueMoveCmd.Flags().String("before", "", "Issue that should end up directly below")

	issueDeleteCmd.Flags().BoolP("force", "f", false, "Skip confirmation")

	issueCmd.AddCommand(issueCreateCmd, issueListCmd, issueShowCmd, issueUpdateCmd, issueMoveCmd, issueDeleteCmd)
	rootCmd.AddCommand(issueCmd)
}
