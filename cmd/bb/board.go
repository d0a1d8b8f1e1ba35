package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/steveyegge/boards/internal/config"
	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/types"
	"github.com/steveyegge/boards/internal/ui"
)

var boardCmd = &cobra.Command{
	Use:     "board [KEY]",
	Short:   "Show a project board",
	GroupID: "planning",
	Long: `Show the board of a project as columns of cards. By default the board
shows the active sprint, or every issue when no sprint is active. --all
always shows every issue; --sprint picks a sprint.

With --watch the board is redrawn whenever the store changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		project, err := projectArg(ctx, args)
		if err != nil {
			return err
		}
		opts := boardViewOptions{
			projectID: project.ID,
			sprint:    mustString(cmd.Flags(), "sprint"),
			all:       mustBool(cmd.Flags(), "all"),
		}
		opts.maxCards = config.GetInt("board.max-cards")
		if cmd.Flags().Changed("max-cards") {
			opts.maxCards, _ = cmd.Flags().GetInt("max-cards")
		}

		if jsonOutput {
			board, issues, err := loadBoardView(ctx, opts)
			if err != nil {
				return err
			}
			outputJSON(map[string]interface{}{"board": board, "issues": issues})
			return nil
		}
		if mustBool(cmd.Flags(), "watch") {
			return watchBoard(ctx, opts)
		}
		out, err := renderBoardView(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

type boardViewOptions struct {
	projectID string
	sprint    string
	all       bool
	maxCards  int
}

// loadBoardView returns the board and the issues it should show.
func loadBoardView(ctx context.Context, opts boardViewOptions) (*types.Board, []*types.Issue, error) {
	board, err := svc.GetBoard(ctx, opts.projectID)
	if err != nil {
		return nil, nil, err
	}
	filter := service.IssueFilter{ProjectID: opts.projectID}
	switch {
	case opts.all:
	case opts.sprint != "":
		sprint := opts.sprint
		if sprint == service.Backlog {
			sprint = ""
		}
		filter.SprintID = &sprint
	default:
		active, err := svc.GetActiveSprint(ctx, opts.projectID)
		if err != nil {
			return nil, nil, err
		}
		if active != nil {
			filter.SprintID = &active.ID
		}
	}
	issues, err := svc.ListIssues(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	board, issues = hideColumns(board, issues, config.GetStringSlice("board.hide-columns"))
	return board, issues, nil
}

// hideColumns drops the named columns, and the issues in them, from a board
// view. The stored board is not changed.
func hideColumns(board *types.Board, issues []*types.Issue, hidden []string) (*types.Board, []*types.Issue) {
	if len(hidden) == 0 {
		return board, issues
	}
	skip := make(map[string]bool, len(hidden))
	for _, id := range hidden {
		skip[id] = true
	}
	view := *board
	view.Columns = nil
	for _, c := range board.Columns {
		if !skip[c.ID] {
			view.Columns = append(view.Columns, c)
		}
	}
	kept := make([]*types.Issue, 0, len(issues))
	for _, issue := range issues {
		if !skip[issue.Status] {
			kept = append(kept, issue)
		}
	}
	return &view, kept
}

func renderBoardView(ctx context.Context, opts boardViewOptions) (string, error) {
	board, issues, err := loadBoardView(ctx, opts)
	if err != nil {
		return "", err
	}
	return ui.RenderBoard(board, issues, ui.BoardOptions{
		Width:    ui.TerminalWidth(120),
		MaxCards: opts.maxCards,
	}), nil
}

// isStoreFile reports whether a changed file in the data directory belongs
// to the store (the database or its journal files).
func isStoreFile(name string) bool {
	base := filepath.Base(name)
	for _, suffix := range []string{".db", ".db-wal", ".db-journal"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// watchBoard redraws the board on every store change until ctx is done.
func watchBoard(ctx context.Context, opts boardViewOptions) error {
	if backendName == "memory" {
		return fmt.Errorf("--watch needs a persistent backend")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(dbPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	redraw := func() {
		out, err := renderBoardView(ctx, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering board: %v\n", err)
			return
		}
		fmt.Print("\033[H\033[2J")
		fmt.Println(out)
		fmt.Fprintf(os.Stderr, "\nWatching for changes... (Press Ctrl+C to exit)\n")
	}
	redraw()

	delay := config.GetDuration("board.watch-debounce")
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	debounce := time.NewTimer(delay)
	debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(os.Stderr, "\nStopped watching.\n")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && isStoreFile(event.Name) {
				debug.Logf("store changed: %s\n", event.Name)
				debounce.Reset(delay)
			}
		case <-debounce.C:
			redraw()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		}
	}
}

var boardColumnsCmd = &cobra.Command{
	Use:   "columns [KEY]",
	Short: "List or replace the columns of a board",
	Long: `List the columns of a project board. With --set the column set is
replaced; each --set value is id:Name:category with category one of
todo, in_progress, done. Columns still used by issues cannot be dropped.

  bb board columns TP --set todo:Backlog:todo --set doing:Doing:in_progress --set done:Done:done`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		project, err := projectArg(ctx, args)
		if err != nil {
			return err
		}
		specs, _ := cmd.Flags().GetStringArray("set")
		var board *types.Board
		if len(specs) == 0 {
			board, err = svc.GetBoard(ctx, project.ID)
		} else {
			var columns []types.Column
			if columns, err = parseColumnSpecs(specs); err != nil {
				return err
			}
			board, err = svc.UpdateBoardColumns(ctx, project.ID, columns, getActor())
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(board.Columns)
			return nil
		}
		for _, c := range board.Columns {
			fmt.Printf("%-14s %s\n", c.ID, ui.RenderStatus(c.Name, c.StatusCategory))
		}
		return nil
	},
}

// parseColumnSpecs parses id:Name:category values. The name defaults to the
// id and the category to todo.
func parseColumnSpecs(specs []string) ([]types.Column, error) {
	columns := make([]types.Column, 0, len(specs))
	for i, spec := range specs {
		parts := strings.SplitN(spec, ":", 3)
		col := types.Column{ID: strings.TrimSpace(parts[0]), SortOrder: i, StatusCategory: types.CategoryTodo}
		if col.ID == "" {
			return nil, fmt.Errorf("invalid column %q (want id:Name:category)", spec)
		}
		col.Name = col.ID
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			col.Name = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			col.StatusCategory = types.StatusCategory(strings.TrimSpace(parts[2]))
			if !col.StatusCategory.IsValid() {
				return nil, fmt.Errorf("invalid category %q in column %q", parts[2], spec)
			}
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func init() {
	boardCmd.Flags().String("sprint", "", `Sprint id, or "backlog"`)
	boardCmd.Flags().Bool("all", false, "Show every issue of the project")
	boardCmd.Flags().Int("max-cards", 0, "Cards shown per column (0 = all)")
	boardCmd.Flags().BoolP("watch", "w", false, "Redraw on every change")
	boardColumnsCmd.Flags().StringArray("set", nil, "Column as id:Name:category (repeatable, in order)")

	boardCmd.AddCommand(boardColumnsCmd)
	rootCmd.AddCommand(boardCmd)
}
