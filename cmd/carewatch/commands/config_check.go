package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/carewatch/internal/engineconfig"
)

// configCmd groups engine configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Engine configuration tools",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate an engine thresholds file",
	Long: `Load and validate an engine thresholds YAML.

Hard violations fail the command; recommended-constraint violations are
printed as warnings. The config hash recorded in every assessment is
printed on success.

Example:
  go run ./cmd/carewatch config check --file config/engine/recovery_v1.yaml`,
	RunE: runConfigCheck,
}

var configCheckFile string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)

	configCheckCmd.Flags().StringVarP(&configCheckFile, "file", "f", "", "thresholds YAML (empty checks the built-in defaults)")
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg := engineconfig.Default()
	source := "built-in defaults"
	if configCheckFile != "" {
		loaded, _, err := engineconfig.Load(configCheckFile)
		if err != nil {
			return err
		}
		cfg = loaded
		source = configCheckFile
	} else if err := engineconfig.Validate(cfg); err != nil {
		return err
	}

	hash, err := engineconfig.Hash(cfg)
	if err != nil {
		return fmt.Errorf("hash config: %w", err)
	}

	fmt.Printf("OK %s\n", source)
	fmt.Printf("  engine_id   : %s\n", cfg.Meta.EngineID)
	fmt.Printf("  config_hash : %s\n", hash)

	warnings := engineconfig.Warn(cfg)
	for _, w := range warnings {
		fmt.Printf("  WARN %s: %s\n", w.Code, w.Message)
	}
	return nil
}
