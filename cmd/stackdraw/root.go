// Package main provides the CLI entrypoint for stackdraw.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackdraw/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// skipConfigLoad marks commands that must run even when the config file is broken.
const skipConfigLoad = "skip-config-load"

var (
	settings   *config.Settings
	globalOpts struct {
		verbose    bool
		configPath string
		scale      float64
	}
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stackdraw",
	Short: "Notification stack layout and rendering",
	Long: `stackdraw lays out a stack of desktop notifications the way a
notification daemon draws its popup window, and renders it to an image,
a terminal preview or a geometry report.

Notifications come from dunst history, a JSON or YAML file, stdin, or
live from the session bus with "stackdraw serve".`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()
		if cmd.Annotations[skipConfigLoad] == "true" {
			return nil
		}

		var err error
		settings, err = config.Load(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if globalOpts.scale > 0 {
			settings.Scale = globalOpts.scale
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/stackdraw/stackdraw.toml)")
	rootCmd.PersistentFlags().Float64Var(&globalOpts.scale, "scale", 0,
		"Output scale factor (overrides the config)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}
