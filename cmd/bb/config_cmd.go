package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/steveyegge/boards/internal/config"
	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Read and write configuration",
	GroupID: "data",
	Long: `Read and write configuration.

Keys needed before the database opens (db, backend, actor, json, export.*,
sprint.*, board.*) live in .boards/config.yaml. Every other key is stored in
the settings table of the database.`,
}

var configGetCmd = &cobra.Command{
	Use:         "get KEY",
	Short:       "Print a configuration value",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{noStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		var value string
		found := true
		if config.IsYamlOnlyKey(key) {
			value = config.GetYamlConfig(key)
		} else {
			if err := openService(rootCtx); err != nil {
				return err
			}
			var err error
			if value, found, err = svc.GetSetting(rootCtx, key); err != nil {
				return err
			}
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"key": key, "value": value, "found": found})
			return nil
		}
		if !found {
			return fmt.Errorf("%s is not set", key)
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:         "set KEY VALUE",
	Short:       "Set a configuration value",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{noStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		where := "settings"
		if config.IsYamlOnlyKey(key) {
			if err := config.SetYamlConfig(key, value); err != nil {
				return err
			}
			where = "config.yaml"
		} else {
			if err := openService(rootCtx); err != nil {
				return err
			}
			if err := svc.SetSetting(rootCtx, key, value); err != nil {
				return err
			}
		}
		if jsonOutput {
			outputJSON(map[string]string{"key": key, "value": value, "location": where})
			return nil
		}
		debug.PrintNormal("%s Set %s = %s %s\n", ui.RenderPass(ui.IconPass), key, value, ui.RenderMuted("("+where+")"))
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset KEY",
	Short: "Remove a setting from the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.IsYamlOnlyKey(args[0]) {
			return fmt.Errorf("%s lives in config.yaml; edit the file to remove it", args[0])
		}
		if err := svc.DeleteSetting(rootCtx, args[0]); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"unset": args[0]})
			return nil
		}
		debug.PrintNormal("%s Unset %s\n", ui.RenderPass(ui.IconPass), args[0])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List config.yaml values and database settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := svc.ListSettings(rootCtx)
		if err != nil {
			return err
		}
		yamlValues := make(map[string]string)
		for key := range config.YamlOnlyKeys {
			yamlValues[key] = config.GetYamlConfig(key)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{
				"configFile": config.ConfigFileUsed(),
				"config":     yamlValues,
				"effective":  config.AllSettings(),
				"settings":   settings,
			})
			return nil
		}

		file := config.ConfigFileUsed()
		if file == "" {
			file = "(none)"
		}
		fmt.Printf("%s %s\n", ui.RenderCategory("config.yaml"), ui.RenderMuted(file))
		printSorted(yamlValues)
		fmt.Printf("\n%s\n", ui.RenderCategory("settings"))
		printSorted(settings)
		return nil
	},
}

func printSorted(values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-24s %s\n", k, values[k])
	}
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configUnsetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
