package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/carewatch/internal/api/handlers"
	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/pkg/logger"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a cohort from a JSON file",
	Long: `Order finalized assessments for the monitoring view.

The file holds {"members": [{"patient_id": ..., "assessment": {...}, "alerts": [...]}]}.
With --windows the file is instead a JSON array of patient windows, which
are assessed first; patients without enough data are listed and skipped.

Example:
  go run ./cmd/carewatch rank --file cohort.json
  go run ./cmd/carewatch rank --windows --file windows.json`,
	RunE: runRank,
}

var (
	rankFile    string
	rankWindows bool
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVarP(&rankFile, "file", "f", "", "cohort JSON")
	rankCmd.Flags().BoolVar(&rankWindows, "windows", false, "file contains raw patient windows")
	rankCmd.MarkFlagRequired("file")
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg, logger.Nop())
	if err != nil {
		return err
	}

	var members []contracts.CohortMember
	if rankWindows {
		var windows []contracts.PatientWindow
		if err := readJSONFile(rankFile, &windows); err != nil {
			return err
		}
		for _, r := range eng.AssessCohort(cmd.Context(), windows, cfg.Engine.Workers) {
			if r.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", r.PatientID, r.Err)
				continue
			}
			members = append(members, contracts.CohortMember{PatientID: r.PatientID, Assessment: r.Assessment})
		}
	} else {
		var req handlers.RankRequest
		if err := readJSONFile(rankFile, &req); err != nil {
			return err
		}
		members = req.Members
	}

	ranking, err := eng.RankCohortDetailed(members)
	if err != nil {
		return err
	}

	fmt.Printf("%-5s %-20s %-6s %-11s %s\n", "RANK", "PATIENT", "SCORE", "STATUS", "CRITICAL")
	for _, p := range ranking {
		critical := ""
		if p.HasCritical {
			critical = p.LatestCritical.Format("2006-01-02")
		}
		fmt.Printf("%-5d %-20s %-6d %-11s %s\n", p.Rank, p.PatientID, p.Score, p.Status, critical)
	}
	return nil
}
