package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/carewatch/pkg/config"
	"github.com/wonny/carewatch/pkg/logger"
)

var (
	// Global flags
	engineConfigPath string
	verbose          bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "carewatch",
	Short: "carewatch - post-operative recovery assessment",
	Long: `carewatch CLI

Turns daily patient health logs and medication adherence into a recovery
score, a status, trends, alerts and recommendations, and ranks the cohort
for the care team.

Usage:
  go run ./cmd/carewatch [command]

Examples:
  go run ./cmd/carewatch api
  go run ./cmd/carewatch assess --file window.json
  go run ./cmd/carewatch rank --file cohort.json
  go run ./cmd/carewatch scheduler start
  go run ./cmd/carewatch config check --file config/engine/recovery_v1.yaml
  go run ./cmd/carewatch test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&engineConfigPath, "engine-config", "", "engine thresholds YAML (default: ENGINE_CONFIG or built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the environment and applies global flags
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if engineConfigPath != "" {
		cfg.Engine.ConfigPath = engineConfigPath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, logger.New(cfg), nil
}
