package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/types"
	"github.com/steveyegge/boards/internal/ui"
)

// named is a project-scoped entity that can be referenced by id or name.
type named interface {
	EntityID() string
}

// findNamed returns the item whose id equals ref, or whose name matches it
// case-insensitively.
func findNamed[T named](items []T, ref string, name func(T) string, kind string) (T, error) {
	for _, it := range items {
		if it.EntityID() == ref {
			return it, nil
		}
	}
	for _, it := range items {
		if strings.EqualFold(name(it), ref) {
			return it, nil
		}
	}
	var zero T
	return zero, types.NotFound(kind, ref)
}

func projectFlag(ctx context.Context, cmd *cobra.Command) (*types.Project, error) {
	return projectArg(ctx, []string{mustString(cmd.Flags(), "project")})
}

// label

var labelCmd = &cobra.Command{
	Use:     "label",
	Aliases: []string{"labels"},
	Short:   "Manage project labels",
	GroupID: "planning",
}

var labelCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectFlag(rootCtx, cmd)
		if err != nil {
			return err
		}
		label, err := svc.CreateLabel(rootCtx, project.ID, args[0], mustString(cmd.Flags(), "color"), getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(label)
			return nil
		}
		debug.PrintNormal("%s Created label %s\n", ui.RenderPass(ui.IconPass), label.Name)
		return nil
	},
}

var labelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List labels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectFlag(rootCtx, cmd)
		if err != nil {
			return err
		}
		labels, err := svc.ListLabels(rootCtx, project.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(labels)
			return nil
		}
		for _, l := range labels {
			fmt.Printf("%-20s %-9s %s\n", l.Name, l.Color, ui.RenderMuted(l.ID))
		}
		return nil
	},
}

func findLabel(ctx context.Context, cmd *cobra.Command, ref string) (*types.Label, error) {
	project, err := projectFlag(ctx, cmd)
	if err != nil {
		return nil, err
	}
	labels, err := svc.ListLabels(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return findNamed(labels, ref, func(l *types.Label) string { return l.Name }, "label")
}

var labelUpdateCmd = &cobra.Command{
	Use:   "update LABEL",
	Short: "Rename or recolour a label; issues follow a rename",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, err := findLabel(rootCtx, cmd, args[0])
		if err != nil {
			return err
		}
		var name, color *string
		if cmd.Flags().Changed("name") {
			v := mustString(cmd.Flags(), "name")
			name = &v
		}
		if cmd.Flags().Changed("color") {
			v := mustString(cmd.Flags(), "color")
			color = &v
		}
		updated, err := svc.UpdateLabel(rootCtx, label.ID, name, color, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(updated)
			return nil
		}
		debug.PrintNormal("%s Updated label %s\n", ui.RenderPass(ui.IconPass), updated.Name)
		return nil
	},
}

var labelDeleteCmd = &cobra.Command{
	Use:   "delete LABEL",
	Short: "Delete a label and strip it from issues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, err := findLabel(rootCtx, cmd, args[0])
		if err != nil {
			return err
		}
		if err := svc.DeleteLabel(rootCtx, label.ID, getActor()); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"deleted": label.ID})
			return nil
		}
		debug.PrintNormal("%s Deleted label %s\n", ui.RenderPass(ui.IconPass), label.Name)
		return nil
	},
}

// component

var componentCmd = &cobra.Command{
	Use:     "component",
	Aliases: []string{"components"},
	Short:   "Manage project components",
	GroupID: "planning",
}

var componentCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a component",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectFlag(rootCtx, cmd)
		if err != nil {
			return err
		}
		lead, err := resolveUserID(rootCtx, mustString(cmd.Flags(), "lead"))
		if err != nil {
			return err
		}
		c, err := svc.CreateComponent(rootCtx, service.ComponentInput{
			ProjectID:   project.ID,
			Name:        args[0],
			Description: mustString(cmd.Flags(), "description"),
			LeadID:      lead,
		}, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(c)
			return nil
		}
		debug.PrintNormal("%s Created component %s\n", ui.RenderPass(ui.IconPass), c.Name)
		return nil
	},
}

var componentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List components",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectFlag(rootCtx, cmd)
		if err != nil {
			return err
		}
		components, err := svc.ListComponents(rootCtx, project.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(components)
			return nil
		}
		for _, c := range components {
			fmt.Printf("%-20s %-30s %s\n", c.Name, ui.TruncateSimple(c.Description, 30), ui.RenderMuted(c.ID))
		}
		return nil
	},
}

func findComponent(ctx context.Context, cmd *cobra.Command, ref string) (*types.Component, error) {
	project, err := projectFlag(ctx, cmd)
	if err != nil {
		return nil, err
	}
	components, err := svc.ListComponents(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return findNamed(components, ref, func(c *types.Component) string { return c.Name }, "component")
}

var componentUpdateCmd = &cobra.Command{
	Use:   "update COMPONENT",
	Short: "Update a component; issues follow a rename",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := findComponent(rootCtx, cmd, args[0])
		if err != nil {
			return err
		}
		in := service.ComponentInput{ProjectID: c.ProjectID, Name: c.Name, Description: c.Description, LeadID: c.LeadID}
		if cmd.Flags().Changed("name") {
			in.Name = mustString(cmd.Flags(), "name")
		}
		if cmd.Flags().Changed("description") {
			in.Description = mustString(cmd.Flags(), "description")
		}
		if cmd.Flags().Changed("lead") {
			if in.LeadID, err = resolveUserID(rootCtx, mustString(cmd.Flags(), "lead")); err != nil {
				return err
			}
		}
		updated, err := svc.UpdateComponent(rootCtx, c.ID, in, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(updated)
			return nil
		}
		debug.PrintNormal("%s Updated component %s\n", ui.RenderPass(ui.IconPass), updated.Name)
		return nil
	},
}

var componentDeleteCmd = &cobra.Command{
	Use:   "delete COMPONENT",
	Short: "Delete a component and strip it from issues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := findComponent(rootCtx, cmd, args[0])
		if err != nil {
			return err
		}
		if err := svc.DeleteComponent(rootCtx, c.ID, getActor()); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"deleted": c.ID})
			return nil
		}
		debug.PrintNormal("%s Deleted component %s\n", ui.RenderPass(ui.IconPass), c.Name)
		return nil
	},
}

// filter

var filterCmd = &cobra.Command{
	Use:     "filter",
	Aliases: []string{"filters"},
	Short:   "Save and run issue queries",
	GroupID: "issues",
}

var filterSaveCmd = &cobra.Command{
	Use:   "save NAME KEY=VALUE...",
	Short: "Save a filter",
	Long: `Save a named issue query. Criteria keys: status, sprintId ("backlog" for
issues without a sprint), epicId, parentId, assigneeId, type, priority,
label, component.

  bb filter save "My bugs" type=bug assigneeId=alice`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectFlag(rootCtx, cmd)
		if err != nil {
			return err
		}
		criteria, err := parseKeyValues(args[1:])
		if err != nil {
			return err
		}
		f, err := svc.SaveFilter(rootCtx, project.ID, args[0], criteria, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(f)
			return nil
		}
		debug.PrintNormal("%s Saved filter %s (%s)\n", ui.RenderPass(ui.IconPass), f.Name, ui.RenderMuted(f.ID))
		return nil
	},
}

var filterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectFlag(rootCtx, cmd)
		if err != nil {
			return err
		}
		filters, err := svc.ListFilters(rootCtx, project.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(filters)
			return nil
		}
		for _, f := range filters {
			fmt.Printf("%-20s %-40s %s\n", f.Name, formatCriteria(f.Criteria), ui.RenderMuted(f.ID))
		}
		return nil
	},
}

// formatCriteria renders criteria as sorted key=value pairs.
func formatCriteria(criteria map[string]string) string {
	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + criteria[k]
	}
	return strings.Join(parts, " ")
}

func findFilter(ctx context.Context, cmd *cobra.Command, ref string) (*types.Filter, error) {
	project, err := projectFlag(ctx, cmd)
	if err != nil {
		return nil, err
	}
	filters, err := svc.ListFilters(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return findNamed(filters, ref, func(f *types.Filter) string { return f.Name }, "filter")
}

var filterRunCmd = &cobra.Command{
	Use:   "run FILTER",
	Short: "Run a saved filter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := findFilter(rootCtx, cmd, args[0])
		if err != nil {
			return err
		}
		issues, err := svc.ApplyFilter(rootCtx, f.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(issues)
			return nil
		}
		width := ui.TerminalWidth(100)
		for _, issue := range issues {
			fmt.Println(formatIssueLine(issue, width))
		}
		return nil
	},
}

var filterUpdateCmd = &cobra.Command{
	Use:   "update FILTER [KEY=VALUE...]",
	Short: "Rename a filter or replace its criteria",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := findFilter(rootCtx, cmd, args[0])
		if err != nil {
			return err
		}
		var name *string
		if cmd.Flags().Changed("name") {
			n := mustString(cmd.Flags(), "name")
			name = &n
		}
		var criteria map[string]string
		if len(args) > 1 {
			if criteria, err = parseKeyValues(args[1:]); err != nil {
				return err
			}
		}
		if name == nil && criteria == nil {
			return fmt.Errorf("nothing to update (pass --name or KEY=VALUE criteria)")
		}
		updated, err := svc.UpdateFilter(rootCtx, f.ID, name, criteria, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(updated)
			return nil
		}
		debug.PrintNormal("%s Updated filter %s: %s\n", ui.RenderPass(ui.IconPass), updated.Name, formatCriteria(updated.Criteria))
		return nil
	},
}

var filterDeleteCmd = &cobra.Command{
	Use:   "delete FILTER",
	Short: "Delete a saved filter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := findFilter(rootCtx, cmd, args[0])
		if err != nil {
			return err
		}
		if err := svc.DeleteFilter(rootCtx, f.ID, getActor()); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"deleted": f.ID})
			return nil
		}
		debug.PrintNormal("%s Deleted filter %s\n", ui.RenderPass(ui.IconPass), f.Name)
		return nil
	},
}

// custom fields

var fieldCmd = &cobra.Command{
	Use:     "field",
	Aliases: []string{"fields"},
	Short:   "Manage custom field definitions",
	GroupID: "planning",
}

func customFieldInput(cmd *cobra.Command, in service.CustomFieldInput) service.CustomFieldInput {
	flags := cmd.Flags()
	if flags.Changed("type") {
		in.FieldType = types.CustomFieldType(mustString(flags, "type"))
	}
	if flags.Changed("options") {
		in.Options = splitList(mustString(flags, "options"))
	}
	if flags.Changed("required") {
		in.Required = mustBool(flags, "required")
	}
	return in
}

var fieldCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Define a custom field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectFlag(rootCtx, cmd)
		if err != nil {
			return err
		}
		in := customFieldInput(cmd, service.CustomFieldInput{ProjectID: project.ID, Name: args[0], FieldType: types.FieldText})
		f, err := svc.CreateCustomField(rootCtx, in, getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(f)
			return nil
		}
		debug.PrintNormal("%s Created field %s (%s)\n", ui.RenderPass(ui.IconPass), f.Name, f.FieldType)
		return nil
	},
}

var fieldListCmd = &cobra.Command{
	Use:   "list",
	Short: "List custom fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectFlag(rootCtx, cmd)
		if err != nil {
			return err
		}
		fields, err := svc.ListCustomFields(rootCtx, project.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(fields)
			return nil
		}
		for _, f := range fields {
			req := ""
			if f.Required {
				req = "required"
			}
			fmt.Printf("%-20s %-7s %-9s %-30s %s\n", f.Name, f.FieldType, req, strings.Join(f.Options, ","), ui.RenderMuted(f.ID))
		}
		return nil
	},
}

func findField(ctx context.Context, cmd *cobra.Command, ref string) (*types.CustomField, error) {
	project, err := projectFlag(ctx, cmd)
	if err != nil {
		return nil, err
	}
	fields, err := svc.ListCustomFields(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return findNamed(fields, ref, func(f *types.CustomField) string { return f.Name }, "custom field")
}

var fieldUpdateCmd = &cobra.Command{
	Use:   "update FIELD",
	Short: "Update a custom field definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := findField(rootCtx, cmd, args[0])
		if err != nil {
			return err
		}
		in := service.CustomFieldInput{
			ProjectID: f.ProjectID, Name: f.Name, FieldType: f.FieldType, Options: f.Options, Required: f.Required,
		}
		if cmd.Flags().Changed("name") {
			in.Name = mustString(cmd.Flags(), "name")
		}
		updated, err := svc.UpdateCustomField(rootCtx, f.ID, customFieldInput(cmd, in), getActor())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(updated)
			return nil
		}
		debug.PrintNormal("%s Updated field %s\n", ui.RenderPass(ui.IconPass), updated.Name)
		return nil
	},
}

var fieldDeleteCmd = &cobra.Command{
	Use:   "delete FIELD",
	Short: "Delete a custom field definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := findField(rootCtx, cmd, args[0])
		if err != nil {
			return err
		}
		if err := svc.DeleteCustomField(rootCtx, f.ID, getActor()); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"deleted": f.ID})
			return nil
		}
		debug.PrintNormal("%s Deleted field %s\n", ui.RenderPass(ui.IconPass), f.Name)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{
		labelCreateCmd, labelListCmd, labelUpdateCmd, labelDeleteCmd,
		componentCreateCmd, componentListCmd, componentUpdateCmd, componentDeleteCmd,
		filterSaveCmd, filterListCmd, filterRunCmd, filterUpdateCmd, filterDeleteCmd,
		fieldCreateCmd, fieldListCmd, fieldUpdateCmd, fieldDeleteCmd,
	} {
		c.Flags().StringP("project", "p", "", "Project key (default: bb project use)")
	}

	for _, c := range []*cobra.Command{labelCreateCmd, labelUpdateCmd} {
		c.Flags().String("color", "", "Colour, e.g. #ff8800")
	}
	labelUpdateCmd.Flags().String("name", "", "New name")

	for _, c := range []*cobra.Command{componentCreateCmd, componentUpdateCmd} {
		c.Flags().StringP("description", "d", "", "Description")
		c.Flags().String("lead", "", "Lead user id or email")
	}
	componentUpdateCmd.Flags().String("name", "", "New name")

	for _, c := range []*cobra.Command{fieldCreateCmd, fieldUpdateCmd} {
		c.Flags().StringP("type", "t", "", "Field type: text, number, select, date")
		c.Flags().String("options", "", "Comma-separated options (select fields)")
		c.Flags().Bool("required", false, "Field is required")
	}
	fieldUpdateCmd.Flags().String("name", "", "New name")
	filterUpdateCmd.Flags().String("name", "", "New name")

	labelCmd.AddCommand(labelCreateCmd, labelListCmd, labelUpdateCmd, labelDeleteCmd)
	componentCmd.AddCommand(componentCreateCmd, componentListCmd, componentUpdateCmd, componentDeleteCmd)
	filterCmd.AddCommand(filterSaveCmd, filterListCmd, filterRunCmd, filterUpdateCmd, filterDeleteCmd)
	fieldCmd.AddCommand(fieldCreateCmd, fieldListCmd, fieldUpdateCmd, fieldDeleteCmd)
	rootCmd.AddCommand(labelCmd, componentCmd, filterCmd, fieldCmd)
}
