package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/boards/internal/config"
	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/eventbus"
	"github.com/steveyegge/boards/internal/export"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Export the store (or one project) as JSON",
	GroupID: "data",
	Long: `Write a JSON snapshot with one array per table. With --project only that
project and the rows that hang off it are written; users, workflows and
settings are always included.

Without --output the snapshot goes to export.dir from config.yaml when set,
or to stdout otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		var snap *export.Snapshot
		var err error
		if ref := mustString(cmd.Flags(), "project"); ref != "" {
			project, perr := resolveProject(ctx, ref)
			if perr != nil {
				return perr
			}
			snap, err = export.Project(ctx, store, project.ID)
		} else {
			snap, err = export.All(ctx, store)
		}
		if err != nil {
			return err
		}

		path := exportPath(mustString(cmd.Flags(), "output"), config.GetString("export.dir"), time.Now())
		if path == "" || path == "-" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		if err := export.WriteFile(path, snap); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"path": path, "counts": snap.Counts()})
			return nil
		}
		debug.PrintNormal("%s Exported to %s\n", ui.RenderPass(ui.IconPass), path)
		printCounts(snap.Counts())
		return nil
	},
}

// exportPath picks the export destination: an explicit --output, else a
// timestamped file in dir, else "" for stdout.
func exportPath(output, dir string, now time.Time) string {
	if output != "" {
		return output
	}
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "boards-"+now.Format("20060102-150405")+".json")
}

func printCounts(counts map[storage.Table]int) {
	tables := make([]string, 0, len(counts))
	for t := range counts {
		tables = append(tables, string(t))
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Printf("  %-14s %d\n", t, counts[storage.Table(t)])
	}
}

var importCmd = &cobra.Command{
	Use:     "import FILE",
	Short:   "Replace the store with a JSON export (- for stdin)",
	GroupID: "data",
	Long: `Replace every table with the contents of a JSON export. The file is fully
validated first; a malformed file leaves the store untouched. --dry-run only
validates and reports the row counts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		var payload []byte
		var err error
		if args[0] == "-" {
			payload, err = io.ReadAll(os.Stdin)
		} else {
			payload, err = export.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		if mustBool(cmd.Flags(), "dry-run") {
			snap, err := export.Decode(payload)
			if err != nil {
				return err
			}
			if jsonOutput {
				outputJSON(map[string]interface{}{"counts": snap.Counts()})
				return nil
			}
			fmt.Println("Valid export:")
			printCounts(snap.Counts())
			return nil
		}

		if err := confirmDestructive("Replace the whole store?",
			"Every table is cleared and reloaded from "+args[0]+".", mustBool(cmd.Flags(), "force")); err != nil {
			return err
		}
		result, err := export.Import(ctx, store, payload)
		if err != nil {
			return err
		}
		if bus != nil {
			_, _ = bus.Dispatch(ctx, &eventbus.Event{
				Type:    eventbus.EventDataImported,
				Actor:   getActor(),
				Summary: fmt.Sprintf("%d projects, %d issues from %s", result.Counts[storage.TableProjects], result.Counts[storage.TableIssues], args[0]),
			})
		}
		if jsonOutput {
			outputJSON(result)
			return nil
		}
		debug.PrintNormal("%s Imported %s\n", ui.RenderPass(ui.IconPass), args[0])
		printCounts(result.Counts)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("project", "p", "", "Export only this project")
	exportCmd.Flags().StringP("output", "o", "", `Output file ("-" for stdout)`)
	importCmd.Flags().Bool("dry-run", false, "Validate without importing")
	importCmd.Flags().BoolP("force", "f", false, "Skip confirmation")
	rootCmd.AddCommand(exportCmd, importCmd)
}
