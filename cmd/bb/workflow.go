package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/types"
	"github.com/steveyegge/boards/internal/ui"
)

var workflowCmd = &cobra.Command{
	Use:     "workflow",
	Aliases: []string{"workflows"},
	Short:   "Manage reusable board workflows",
	GroupID: "planning",
	Long: `Workflows are named status sets. A project created with --workflow gets
one board column per status. Workflows are written in TOML:

  name = "Kanban"
  description = "Three-stage flow"

  [[statuses]]
  id = "todo"
  name = "To Do"
  category = "todo"

  [[statuses]]
  id = "doing"
  name = "Doing"
  category = "in_progress"

  [[statuses]]
  id = "done"
  name = "Done"
  category = "done"`,
}

// decodeWorkflow parses a TOML workflow definition, rejecting unknown keys.
func decodeWorkflow(r io.Reader) (service.WorkflowInput, error) {
	var in service.WorkflowInput
	md, err := toml.NewDecoder(r).Decode(&in)
	if err != nil {
		return in, fmt.Errorf("parsing workflow: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return in, fmt.Errorf("unknown workflow keys: %s", strings.Join(keys, ", "))
	}
	return in, nil
}

var workflowCreateCmd = &cobra.Command{
	Use:   "create --file FILE",
	Short: "Create a workflow from a TOML file (- for stdin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := mustString(cmd.Flags(), "file")
		if path == "" {
			return fmt.Errorf("--file is required")
		}
		var r io.Reader = os.Stdin
		if path != "-" {
			f, err := os.Open(path) //nolint:gosec // user-supplied workflow file
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			r = f
		}
		in, err := decodeWorkflow(r)
		if err != nil {
			return err
		}
		if name := mustString(cmd.Flags(), "name"); name != "" {
			in.Name = name
		}
		wf, err := svc.CreateWorkflow(rootCtx, in, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(wf)
			return nil
		}
		fmt.Printf("%s Created workflow %s (%s) with %d statuses\n",
			ui.RenderPass(ui.IconPass), wf.Name, ui.RenderMuted(wf.ID), len(wf.Statuses))
		return nil
	},
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		workflows, err := svc.ListWorkflows(rootCtx)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(workflows)
			return nil
		}
		if len(workflows) == 0 {
			fmt.Println(ui.RenderMuted("No workflows."))
			return nil
		}
		for _, wf := range workflows {
			ids := make([]string, len(wf.Statuses))
			for i, s := range wf.Statuses {
				ids[i] = s.ID
			}
			fmt.Printf("%-20s %s %s\n", wf.Name, strings.Join(ids, " → "), ui.RenderMuted(wf.ID))
		}
		return nil
	},
}

var workflowShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a workflow as TOML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := svc.GetWorkflow(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(wf)
			return nil
		}
		return encodeWorkflow(cmd.OutOrStdout(), wf)
	},
}

// encodeWorkflow writes wf in the format decodeWorkflow reads.
func encodeWorkflow(w io.Writer, wf *types.Workflow) error {
	return toml.NewEncoder(w).Encode(service.WorkflowInput{
		Name:        wf.Name,
		Description: wf.Description,
		Statuses:    wf.Statuses,
	})
}

var workflowDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a workflow, unlinking the projects that use it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.DeleteWorkflow(rootCtx, args[0], getActor()); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"deleted": args[0]})
			return nil
		}
		debug.PrintNormal("%s Deleted workflow %s\n", ui.RenderPass(ui.IconPass), args[0])
		return nil
	},
}

func init() {
	workflowCreateCmd.Flags().StringP("file", "f", "", "TOML workflow definition")
	workflowCreateCmd.Flags().String("name", "", "Override the name in the file")
	workflowCmd.AddCommand(workflowCreateCmd, workflowListCmd, workflowShowCmd, workflowDeleteCmd)
	rootCmd.AddCommand(workflowCmd)
}
