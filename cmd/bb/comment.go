package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/types"
	"github.com/steveyegge/boards/internal/ui"
)

var commentCmd = &cobra.Command{
	Use:     "comment",
	Aliases: []string{"comments"},
	Short:   "Add, edit and list issue comments",
	GroupID: "issues",
}

// commentBody returns the body argument, or stdin when it is "-".
func commentBody(args []string, in io.Reader) (string, error) {
	body := strings.Join(args, " ")
	if body == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		body = string(data)
	}
	return body, nil
}

var commentAddCmd = &cobra.Command{
	Use:   "add KEY BODY...",
	Short: `Comment on an issue (BODY "-" reads stdin)`,
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		issue, err := resolveIssue(rootCtx, args[0])
		if err != nil {
			return err
		}
		body, err := commentBody(args[1:], os.Stdin)
		if err != nil {
			return err
		}
		c, err := svc.AddComment(rootCtx, issue.ID, body, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(c)
			return nil
		}
		debug.PrintNormal("%s Commented on %s (%s)\n", ui.RenderPass(ui.IconPass), ui.RenderKey(issue.Key), ui.RenderMuted(c.ID))
		return nil
	},
}

var commentListCmd = &cobra.Command{
	Use:   "list KEY",
	Short: "List the comments of an issue, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issue, err := resolveIssue(rootCtx, args[0])
		if err != nil {
			return err
		}
		comments, err := svc.ListComments(rootCtx, issue.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(comments)
			return nil
		}
		if len(comments) == 0 {
			fmt.Println(ui.RenderMuted("No comments."))
			return nil
		}
		for _, c := range comments {
			edited := ""
			if !c.UpdatedAt.Equal(c.CreatedAt) {
				edited = " (edited)"
			}
			fmt.Printf("%s %s%s %s\n", ui.RenderAccent(c.AuthorID),
				ui.RenderMuted(c.CreatedAt.Format("2006-01-02 15:04")), ui.RenderMuted(edited), ui.RenderMuted(c.ID))
			fmt.Println(ui.RenderMarkdown(c.Body))
		}
		return nil
	},
}

var commentEditCmd = &cobra.Command{
	Use:   "edit COMMENT-ID BODY...",
	Short: "Replace the body of a comment",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := commentBody(args[1:], os.Stdin)
		if err != nil {
			return err
		}
		c, err := svc.UpdateComment(rootCtx, args[0], body, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(c)
			return nil
		}
		debug.PrintNormal("%s Updated comment %s\n", ui.RenderPass(ui.IconPass), ui.RenderMuted(c.ID))
		return nil
	},
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete COMMENT-ID",
	Short: "Delete a comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.DeleteComment(rootCtx, args[0], getActor()); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"deleted": args[0]})
			return nil
		}
		debug.PrintNormal("%s Deleted comment %s\n", ui.RenderPass(ui.IconPass), ui.RenderMuted(args[0]))
		return nil
	},
}

var activityCmd = &cobra.Command{
	Use:     "activity KEY",
	Short:   "Show the comments and history of an issue, newest first",
	GroupID: "issues",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issue, err := resolveIssue(rootCtx, args[0])
		if err != nil {
			return err
		}
		feed, err := svc.ActivityFeed(rootCtx, issue.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(feed)
			return nil
		}
		var b strings.Builder
		for _, item := range feed {
			ts := ui.RenderMuted(item.Timestamp().Format("2006-01-02 15:04"))
			if item.Comment != nil {
				fmt.Fprintf(&b, "%s %s commented\n%s\n", ts, ui.RenderAccent(item.Comment.AuthorID),
					ui.TruncateLines(item.Comment.Body, ui.DefaultMaxLines, ui.DefaultContextLines))
				continue
			}
			fmt.Fprintf(&b, "%s %s %s\n", ts, ui.RenderAccent(item.Activity.UserID), describeActivity(item.Activity))
		}
		return ui.ToPager(cmd.OutOrStdout(), b.String(), ui.PagerOptions{NoPager: mustBool(cmd.Flags(), "no-pager")})
	},
}

// describeActivity renders one audit row as a sentence fragment.
func describeActivity(a *types.ActivityLog) string {
	switch a.Action {
	case types.ActionCreated:
		return "created the issue"
	case types.ActionCommentAdded:
		return "added a comment"
	case types.ActionCommentEdited:
		return "edited a comment"
	case types.ActionCommentDeleted:
		return "deleted a comment"
	}
	field := a.Field
	if field == "" {
		field = strings.TrimSuffix(string(a.Action), "_changed")
	}
	from, to := a.FromValue, a.ToValue
	if from == "" {
		from = "none"
	}
	if to == "" {
		to = "none"
	}
	return fmt.Sprintf("changed %s from %s to %s", field, from, to)
}

func init() {
	activityCmd.Flags().Bool("no-pager", false, "Disable the pager")
	commentCmd.AddCommand(commentAddCmd, commentListCmd, commentEditCmd, commentDeleteCmd)
	rootCmd.AddCommand(commentCmd, activityCmd)
}
