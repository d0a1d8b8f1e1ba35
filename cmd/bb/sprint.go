package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/boards/internal/config"
	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/timeparsing"
	"github.com/steveyegge/boards/internal/types"
	"github.com/steveyegge/boards/internal/ui"
)

var sprintCmd = &cobra.Command{
	Use:     "sprint",
	Aliases: []string{"sprints"},
	Short:   "Plan, start and complete sprints",
	GroupID: "planning",
}

// resolveSprint accepts a sprint id, or a sprint name within the project
// given by --project (or the default project).
func resolveSprint(ctx context.Context, ref, projectRef string) (*types.Sprint, error) {
	sprint, err := svc.GetSprint(ctx, ref)
	if err == nil || !errors.Is(err, types.ErrNotFound) {
		return sprint, err
	}
	project, perr := projectArg(ctx, []string{projectRef})
	if perr != nil {
		return nil, err
	}
	sprints, lerr := svc.ListSprints(ctx, project.ID)
	if lerr != nil {
		return nil, lerr
	}
	for _, s := range sprints {
		if strings.EqualFold(s.Name, ref) {
			return s, nil
		}
	}
	return nil, err
}

func parseDateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	raw := mustString(cmd.Flags(), name)
	if raw == "" {
		return nil, nil
	}
	t, err := timeparsing.ParseRelativeTime(raw, time.Now())
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

var sprintCreateCmd = &cobra.Command{
	Use:   "create [NAME]",
	Short: "Create a future sprint",
	Long: `Create a sprint in the future state. Without a name the sprint is called
"<KEY> Sprint <n>". With --start and no --end, the end date defaults to the
start plus sprint.default-length from config.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		project, err := projectArg(ctx, []string{mustString(cmd.Flags(), "project")})
		if err != nil {
			return err
		}
		in := service.SprintInput{ProjectID: project.ID, Goal: mustString(cmd.Flags(), "goal")}
		if len(args) > 0 {
			in.Name = args[0]
		}
		if in.StartDate, err = parseDateFlag(cmd, "start"); err != nil {
			return err
		}
		if in.EndDate, err = parseDateFlag(cmd, "end"); err != nil {
			return err
		}
		if in.StartDate != nil && in.EndDate == nil {
			if length := config.GetDuration("sprint.default-length"); length > 0 {
				end := in.StartDate.Add(length)
				in.EndDate = &end
			}
		}

		sprint, err := svc.CreateSprint(ctx, in, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(sprint)
			return nil
		}
		debug.PrintNormal("%s Created sprint %s (%s)\n", ui.RenderPass(ui.IconPass), sprint.Name, ui.RenderMuted(sprint.ID))
		return nil
	},
}

var sprintListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the sprints of a project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		project, err := projectArg(ctx, []string{mustString(cmd.Flags(), "project")})
		if err != nil {
			return err
		}
		sprints, err := svc.ListSprints(ctx, project.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(sprints)
			return nil
		}
		if len(sprints) == 0 {
			fmt.Println(ui.RenderMuted("No sprints."))
			return nil
		}
		for _, s := range sprints {
			dates := ""
			if s.StartDate != nil && s.EndDate != nil {
				dates = fmt.Sprintf("%s → %s", s.StartDate.Format("Jan 2"), s.EndDate.Format("Jan 2"))
			}
			fmt.Printf("%-24s %-18s %-16s %s\n", s.Name, ui.RenderSprintStatus(s.Status), dates, ui.RenderMuted(s.ID))
			if s.Goal != "" {
				goal := ui.WrapText(s.Goal, ui.TerminalWidth(80)-4)
				fmt.Println(ui.RenderMuted("    " + strings.ReplaceAll(goal, "\n", "\n    ")))
			}
		}
		return nil
	},
}

var sprintUpdateCmd = &cobra.Command{
	Use:   "update SPRINT",
	Short: "Update sprint name, goal or dates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		sprint, err := resolveSprint(ctx, args[0], mustString(cmd.Flags(), "project"))
		if err != nil {
			return err
		}
		var patch service.SprintPatch
		if cmd.Flags().Changed("name") {
			v := mustString(cmd.Flags(), "name")
			patch.Name = &v
		}
		if cmd.Flags().Changed("goal") {
			v := mustString(cmd.Flags(), "goal")
			patch.Goal = &v
		}
		if patch.StartDate, err = parseDateFlag(cmd, "start"); err != nil {
			return err
		}
		if patch.EndDate, err = parseDateFlag(cmd, "end"); err != nil {
			return err
		}
		updated, err := svc.UpdateSprint(ctx, sprint.ID, patch, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(updated)
			return nil
		}
		debug.PrintNormal("%s Updated sprint %s\n", ui.RenderPass(ui.IconPass), updated.Name)
		return nil
	},
}

var sprintStartCmd = &cobra.Command{
	Use:   "start SPRINT",
	Short: "Start a future sprint",
	Long:  "Start a future sprint. A project has at most one active sprint at a time.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		sprint, err := resolveSprint(ctx, args[0], mustString(cmd.Flags(), "project"))
		if err != nil {
			return err
		}
		started, err := svc.StartSprint(ctx, sprint.ID, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(started)
			return nil
		}
		debug.PrintNormal("%s Started sprint %s\n", ui.RenderPass(ui.IconPass), started.Name)
		return nil
	},
}

var sprintCompleteCmd = &cobra.Command{
	Use:   "complete SPRINT",
	Short: "Complete the active sprint",
	Long: `Complete an active sprint. Story points of issues in done columns become
the sprint's velocity; every other issue moves to --carryover, which is
"backlog" (default) or another sprint of the same project.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		projectRef := mustString(cmd.Flags(), "project")
		sprint, err := resolveSprint(ctx, args[0], projectRef)
		if err != nil {
			return err
		}
		carryover := mustString(cmd.Flags(), "carryover")
		if carryover != "" && carryover != service.Backlog {
			target, err := resolveSprint(ctx, carryover, projectRef)
			if err != nil {
				return err
			}
			carryover = target.ID
		}
		result, err := svc.CompleteSprint(ctx, sprint.ID, carryover, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(result)
			return nil
		}
		velocity := 0.0
		if result.Sprint.Velocity != nil {
			velocity = *result.Sprint.Velocity
		}
		fmt.Printf("%s Completed sprint %s: velocity %g, %d done, %d carried over to %s\n",
			ui.RenderPass(ui.IconPass), result.Sprint.Name, velocity,
			len(result.Done), len(result.CarriedOver), result.Target)
		return nil
	},
}

var sprintDeleteCmd = &cobra.Command{
	Use:   "delete SPRINT",
	Short: "Delete a sprint, moving its issues to the backlog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		sprint, err := resolveSprint(ctx, args[0], mustString(cmd.Flags(), "project"))
		if err != nil {
			return err
		}
		if err := confirmDestructive(fmt.Sprintf("Delete sprint %s?", sprint.Name),
			"Its issues move back to the backlog.", mustBool(cmd.Flags(), "force")); err != nil {
			return err
		}
		if err := svc.DeleteSprint(ctx, sprint.ID, getActor()); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"deleted": sprint.ID})
			return nil
		}
		debug.PrintNormal("%s Deleted sprint %s\n", ui.RenderPass(ui.IconPass), sprint.Name)
		return nil
	},
}

var sprintVelocityCmd = &cobra.Command{
	Use:   "velocity",
	Short: "Show the velocity history of completed sprints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		project, err := projectArg(ctx, []string{mustString(cmd.Flags(), "project")})
		if err != nil {
			return err
		}
		history, err := svc.VelocityHistory(ctx, project.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(history)
			return nil
		}
		if len(history) == 0 {
			fmt.Println(ui.RenderMuted("No completed sprints."))
			return nil
		}
		return ui.ToPager(cmd.OutOrStdout(), formatVelocity(history, ui.TerminalWidth(80)),
			ui.PagerOptions{NoPager: mustBool(cmd.Flags(), "no-pager")})
	},
}

// formatVelocity renders one row per sprint with a bar scaled to the best
// sprint, followed by the average.
func formatVelocity(history []service.SprintVelocity, width int) string {
	maxVelocity, total := 0.0, 0.0
	for _, h := range history {
		total += h.Velocity
		if h.Velocity > maxVelocity {
			maxVelocity = h.Velocity
		}
	}
	barWidth := width - 50
	if barWidth < 10 {
		barWidth = 10
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for _, h := range history {
		n := 0
		if maxVelocity > 0 {
			n = int(h.Velocity / maxVelocity * float64(barWidth))
		}
		fmt.Fprintf(tw, "%s\t%s\t%6g\t%s\n", h.Name, h.CompletedAt.Format("2006-01-02"), h.Velocity,
			ui.ProgressStyle.Render(strings.Repeat("█", n)))
	}
	_ = tw.Flush()
	fmt.Fprintf(&buf, "\naverage %.1f over %d sprints\n", total/float64(len(history)), len(history))
	return buf.String()
}

func init() {
	for _, c := range []*cobra.Command{sprintCreateCmd, sprintListCmd, sprintUpdateCmd, sprintStartCmd, sprintCompleteCmd, sprintDeleteCmd, sprintVelocityCmd} {
		c.Flags().StringP("project", "p", "", "Project key (default: bb project use)")
	}
	for _, c := range []*cobra.Command{sprintCreateCmd, sprintUpdateCmd} {
		c.Flags().String("goal", "", "Sprint goal")
		c.Flags().String("start", "", "Start date (2026-03-02, tomorrow, next monday)")
		c.Flags().String("end", "", "End date")
	}
	sprintUpdateCmd.Flags().String("name", "", "New name")
	sprintCompleteCmd.Flags().String("carryover", service.Backlog, `Where unfinished issues go: "backlog" or a sprint`)
	sprintDeleteCmd.Flags().BoolP("force", "f", false, "Skip confirmation")
	sprintVelocityCmd.Flags().Bool("no-pager", false, "Disable the pager")

	sprintCmd.AddCommand(sprintCreateCmd, sprintListCmd, sprintUpdateCmd, sprintStartCmd,
		sprintCompleteCmd, sprintDeleteCmd, sprintVelocityCmd)
	rootCmd.AddCommand(sprintCmd)
}
