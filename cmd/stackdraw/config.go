package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackdraw/internal/config"
)

var configOpts struct {
	defaults bool
	write    bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration as TOML.

Examples:
  # Show the settings in use
  stackdraw config

  # Start a config file from the defaults
  stackdraw config --defaults --write`,
	RunE: runConfig,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the config file path",
	Annotations: map[string]string{skipConfigLoad: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := globalOpts.configPath
		if path == "" {
			path = config.SettingsPath()
		}
		fmt.Println(path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:         "validate [file]",
	Short:       "Check a config file without using it",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipConfigLoad: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := globalOpts.configPath
		if len(args) > 0 {
			path = args[0]
		}
		if path == "" {
			path = config.SettingsPath()
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if _, err := config.Parse(data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Println(path, "is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)

	configCmd.Flags().BoolVar(&configOpts.defaults, "defaults", false,
		"Print the built-in defaults instead of the loaded settings")
	configCmd.Flags().BoolVar(&configOpts.write, "write", false,
		"Write the settings to the config file instead of stdout")
}

func runConfig(cmd *cobra.Command, args []string) error {
	s := settings
	if configOpts.defaults {
		s = config.DefaultSettings()
	}

	if configOpts.write {
		path := globalOpts.configPath
		if path == "" {
			path = config.SettingsPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := s.Save(path); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "wrote", path)
		return nil
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
