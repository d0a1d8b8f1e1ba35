package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/steveyegge/boards/internal/config"
	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/storage/factory"
	"github.com/steveyegge/boards/internal/ui"
)

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Create a .boards directory here",
	GroupID:     "data",
	Annotations: map[string]string{noStore: "true"},
	Long: `Create .boards/ in the current directory with a config.yaml and an empty
database. With --project KEY a first project is created and made the
default.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dataDir := filepath.Join(cwd, config.DataDirName)
		if _, err := os.Stat(filepath.Join(dataDir, "config.yaml")); err == nil && !mustBool(cmd.Flags(), "force") {
			return fmt.Errorf("%s is already initialized (use --force to rewrite config.yaml)", dataDir)
		}

		// A rewrite keeps what the existing file (and BB_* overrides) set.
		cfg := config.LoadLocalConfigWithEnv(dataDir)
		backend := cfg.Backend
		if cmd.Flags().Changed("backend") || backend == "" {
			backend = backendName
		}
		if backend == "" {
			backend = factory.BackendSQLite
		}
		cfg.Backend = backend
		if a := mustString(cmd.Flags(), "actor"); a != "" {
			cfg.Actor = a
		}
		if err := config.WriteLocalConfig(dataDir, cfg); err != nil {
			return fmt.Errorf("writing config.yaml: %w", err)
		}

		if !cmd.Flags().Changed("db") {
			dbPath = filepath.Join(dataDir, config.DefaultDBName)
		}
		backendName = backend
		if err := openService(rootCtx); err != nil {
			return err
		}

		result := map[string]string{"dataDir": dataDir, "db": dbPath, "backend": backend}
		if key := mustString(cmd.Flags(), "project"); key != "" {
			name := mustString(cmd.Flags(), "name")
			if name == "" {
				name = key
			}
			p, err := svc.CreateProject(rootCtx, service.ProjectInput{Key: key, Name: name}, getActor())
			if err != nil {
				return err
			}
			if err := svc.SetSetting(rootCtx, defaultProjectKey, p.Key); err != nil {
				return err
			}
			result["project"] = p.Key
		}

		if jsonOutput {
			outputJSON(result)
			return nil
		}
		debug.PrintNormal("%s Initialized %s\n", ui.RenderPass(ui.IconPass), dataDir)
		if p := result["project"]; p != "" {
			fmt.Printf("  default project: %s\n", ui.RenderKey(p))
		} else {
			fmt.Printf("  next: %s\n", ui.RenderAccent("bb project create KEY \"Name\""))
		}
		return nil
	},
}

func init() {
	initCmd.Flags().String("project", "", "Create a first project with this key")
	initCmd.Flags().String("name", "", "Name of the first project")
	initCmd.Flags().String("actor", "", "Actor written to config.yaml")
	initCmd.Flags().Bool("force", false, "Rewrite an existing config.yaml")
	rootCmd.AddCommand(initCmd)
}
