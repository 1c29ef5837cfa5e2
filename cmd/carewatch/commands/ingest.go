package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/s0_data"
	"github.com/wonny/carewatch/pkg/database"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load patient windows from JSON into the log store",
	Long: `Store a JSON array of patient windows in the log store, registering
each patient for monitoring. Logs are upserted by id; adherence by day.

Example:
  go run ./cmd/carewatch ingest --file windows.json`,
	RunE: runIngest,
}

var ingestFile string

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "JSON array of patient windows")
	ingestCmd.MarkFlagRequired("file")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	var windows []contracts.PatientWindow
	if err := readJSONFile(ingestFile, &windows); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := s0_data.NewRepository(db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	for _, w := range windows {
		if w.PatientID == "" {
			return fmt.Errorf("window without patient_id")
		}
		if err := repo.SaveWindow(ctx, w); err != nil {
			return err
		}
		log.WithFields(map[string]interface{}{
			"patient_id": w.PatientID,
			"entries":    len(w.Entries),
			"adherence":  len(w.Adherence),
		}).Info("Patient window stored")
	}

	fmt.Printf("Stored %d patient window(s)\n", len(windows))
	return nil
}
