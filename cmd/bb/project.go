package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/ui"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects"},
	Short:   "Manage projects",
	GroupID: "planning",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create KEY NAME",
	Short: "Create a project and its board",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := service.ProjectInput{Key: args[0], Name: args[1]}
		in.Description, _ = cmd.Flags().GetString("description")
		in.Color, _ = cmd.Flags().GetString("color")
		in.LeadID, _ = cmd.Flags().GetString("lead")
		if wf, _ := cmd.Flags().GetString("workflow"); wf != "" {
			in.WorkflowID = wf
		}
		p, err := svc.CreateProject(rootCtx, in, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(p)
			return nil
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Created project %s (%s)\n", green(ui.IconPass), ui.RenderKey(p.Key), p.Name)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		projects, err := svc.ListProjects(rootCtx, all)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(projects)
			return nil
		}
		if len(projects) == 0 {
			fmt.Println(ui.RenderMuted("No projects. Create one with 'bb project create KEY NAME'."))
			return nil
		}
		for _, p := range projects {
			line := fmt.Sprintf("%-10s %s %s", ui.RenderKey(p.Key), p.Name, ui.RenderMuted(fmt.Sprintf("(%d issues)", p.IssueCounter)))
			if p.IsArchived {
				line += " " + ui.RenderWarn("[archived]")
			}
			fmt.Println(line)
		}
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show [KEY]",
	Short: "Show a project, its board columns and active sprint",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := projectArg(rootCtx, args)
		if err != nil {
			return err
		}
		board, err := svc.GetBoard(rootCtx, p.ID)
		if err != nil {
			return err
		}
		active, err := svc.GetActiveSprint(rootCtx, p.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"project": p, "board": board, "activeSprint": active})
			return nil
		}
		fmt.Printf("%s %s\n", ui.RenderKey(p.Key), p.Name)
		if p.Description != "" {
			fmt.Println(ui.RenderMarkdown(p.Description))
		}
		fmt.Println(ui.RenderSeparator())
		fmt.Println(ui.RenderCategory("columns"))
		for _, c := range board.Columns {
			fmt.Printf("  %-14s %s\n", c.ID, ui.RenderStatus(c.Name, c.StatusCategory))
		}
		if active != nil {
			fmt.Printf("%s %s\n", ui.RenderCategory("active sprint"), active.Name)
		}
		return nil
	},
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update KEY",
	Short: "Update project fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProject(rootCtx, args[0])
		if err != nil {
			return err
		}
		var patch service.ProjectPatch
		flags := cmd.Flags()
		if flags.Changed("name") {
			v, _ := flags.GetString("name")
			patch.Name = &v
		}
		if flags.Changed("description") {
			v, _ := flags.GetString("description")
			patch.Description = &v
		}
		if flags.Changed("color") {
			v, _ := flags.GetString("color")
			patch.Color = &v
		}
		if flags.Changed("lead") {
			v, _ := flags.GetString("lead")
			patch.LeadID = &v
		}
		if flags.Changed("workflow") {
			v, _ := flags.GetString("workflow")
			patch.WorkflowID = &v
		}
		if flags.Changed("archived") {
			v, _ := flags.GetBool("archived")
			patch.IsArchived = &v
		}
		updated, err := svc.UpdateProject(rootCtx, p.ID, patch, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(updated)
			return nil
		}
		debug.PrintNormal("%s Updated project %s\n", ui.RenderPass(ui.IconPass), ui.RenderKey(updated.Key))
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Delete a project and everything in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProject(rootCtx, args[0])
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		if err := confirmDestructive(
			fmt.Sprintf("Delete project %s?", p.Key),
			"Issues, sprints, comments and activity of the project are removed too.",
			force,
		); err != nil {
			return err
		}
		if err := svc.DeleteProject(rootCtx, p.ID, getActor()); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"deleted": p.ID})
			return nil
		}
		debug.PrintNormal("%s Deleted project %s\n", ui.RenderPass(ui.IconPass), p.Key)
		return nil
	},
}

var projectUseCmd = &cobra.Command{
	Use:   "use KEY",
	Short: "Set the default project for commands that take an optional KEY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProject(rootCtx, args[0])
		if err != nil {
			return err
		}
		if err := svc.SetSetting(rootCtx, defaultProjectKey, p.Key); err != nil {
			return err
		}
		fmt.Printf("Default project is now %s\n", ui.RenderKey(p.Key))
		return nil
	},
}

func init() {
	projectCreateCmd.Flags().String("description", "", "Project description (markdown)")
	projectCreateCmd.Flags().String("color", "", "Display color")
	projectCreateCmd.Flags().String("lead", "", "Project lead user id")
	projectCreateCmd.Flags().String("workflow", "", "Workflow id to build the board from")

	projectListCmd.Flags().Bool("all", false, "Include archived projects")

	projectUpdateCmd.Flags().String("name", "", "New name")
	projectUpdateCmd.Flags().String("description", "", "New description")
	projectUpdateCmd.Flags().String("color", "", "New color")
	projectUpdateCmd.Flags().String("lead", "", "New lead user id")
	projectUpdateCmd.Flags().String("workflow", "", "Switch to a workflow (rebuilds the board columns)")
	projectUpdateCmd.Flags().Bool("archived", false, "Archive or unarchive")

	projectDeleteCmd.Flags().BoolP("force", "f", false, "Skip confirmation")

	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectShowCmd, projectUpdateCmd, projectDeleteCmd, projectUseCmd)
	rootCmd.AddCommand(projectCmd)
}
