package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/boards/internal/config"
	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/eventbus"
	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/storage/factory"
	"github.com/steveyegge/boards/internal/telemetry"
	"github.com/steveyegge/boards/internal/ui"
)

var (
	dbPath      string
	backendName string
	actor       string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc

	store storage.Store
	svc   *service.Service
	bus   *eventbus.Bus
)

// noStore marks commands that run without opening the database.
const noStore = "no-store"

func init() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: auto-discover .boards/boards.db)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Storage backend: sqlite or memory (default: sqlite)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "Actor recorded in the activity log (default: $BB_ACTOR, config actor, $USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")

	rootCmd.AddGroup(&cobra.Group{ID: "issues", Title: "Working With Issues:"})
	rootCmd.AddGroup(&cobra.Group{ID: "planning", Title: "Projects & Planning:"})
	rootCmd.AddGroup(&cobra.Group{ID: "data", Title: "Data & Configuration:"})
}

var rootCmd = &cobra.Command{
	Use:           "bb",
	Short:         "bb - local project tracker",
	Long:          `Projects, issues, sprints and boards in a local database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupSignalContext()
		applyViperOverrides(cmd)
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)
		color.NoColor = !ui.ShouldUseColor()

		if err := telemetry.Init(rootCtx, os.Stderr, "bb", Version); err != nil {
			WarnError("telemetry disabled: %v", err)
		}
		if cmd.Annotations[noStore] == "true" {
			return nil
		}
		return openService(rootCtx)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeService()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		telemetry.Shutdown(shutdownCtx)
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func setupSignalContext() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// applyViperOverrides lets explicit flags win over config.yaml and BB_* env
// vars, and fills unset flags from config.
func applyViperOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("json") {
		config.Set("json", jsonOutput)
	} else {
		jsonOutput = config.GetBool("json")
	}
	if flags.Changed("db") {
		config.Set("db", dbPath)
	}
	if flags.Changed("backend") {
		config.Set("backend", backendName)
	} else {
		backendName = config.GetString("backend")
	}
	if flags.Changed("actor") {
		config.Set("actor", actor)
	}
	dbPath = config.DBPath()
}

// openService opens the configured store and builds the service around it.
func openService(ctx context.Context) error {
	if svc != nil {
		return nil
	}
	s, err := factory.New(ctx, backendName, dbPath)
	if err != nil {
		return fmt.Errorf("open %s store: %w", backendName, err)
	}
	store = telemetry.WrapStore(s)

	if backendName != factory.BackendMemory {
		debug.SetEventLog(filepath.Join(filepath.Dir(dbPath), "events.log"))
	}
	bus = eventbus.New()
	bus.Register(eventbus.EventLogHandler{})
	svc = service.New(store, service.WithEventBus(bus))
	debug.Logf("opened %s store at %s\n", backendName, dbPath)
	return nil
}

func closeService() {
	if store != nil {
		_ = store.Close()
	}
	store, svc, bus = nil, nil, nil
}

// getActor returns the actor for the activity log.
// Priority: --actor flag > BB_ACTOR / config actor > $USER > "unknown".
func getActor() string {
	if a := config.GetString("actor"); a != "" {
		return a
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "unknown"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		closeService()
		FatalErrorRespectJSON(err)
	}
}
