package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/pkg/logger"
)

// assessCmd represents the assess command
var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess one patient window from a JSON file",
	Long: `Compute a recovery assessment offline.

The file holds {"patient_id": ..., "entries": [...], "adherence": [...]}.
No database is needed.

Example:
  go run ./cmd/carewatch assess --file window.json`,
	RunE: runAssess,
}

var assessFile string

func init() {
	rootCmd.AddCommand(assessCmd)

	assessCmd.Flags().StringVarP(&assessFile, "file", "f", "", "patient window JSON")
	assessCmd.MarkFlagRequired("file")
}

func runAssess(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	var window contracts.PatientWindow
	if err := readJSONFile(assessFile, &window); err != nil {
		return err
	}

	eng, err := newEngine(cfg, logger.Nop())
	if err != nil {
		return err
	}

	assessment, err := eng.ComputeAssessment(window.PatientID, window.Entries, window.Adherence)
	if err != nil {
		var insufficient *contracts.InsufficientDataError
		if errors.As(err, &insufficient) {
			for _, r := range insufficient.Rejected {
				log.WithField("entry", r.Error()).Warn("Entry rejected")
			}
		}
		return err
	}

	return printJSON(assessment)
}

func readJSONFile(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
