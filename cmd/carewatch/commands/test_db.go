package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/carewatch/internal/s0_data"
	"github.com/wonny/carewatch/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Check the log store connection",
	Long: `Connect to DATABASE_URL, run a health check and print pool statistics.
With --migrate the care schema is created if missing.

Example:
  go run ./cmd/carewatch test-db
  go run ./cmd/carewatch test-db --migrate`,
	RunE: runTestDB,
}

var testDBMigrate bool

func init() {
	rootCmd.AddCommand(testDBCmd)

	testDBCmd.Flags().BoolVar(&testDBMigrate, "migrate", false, "create the care schema")
}

func runTestDB(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Printf("Database URL: %s\n", maskPassword(cfg.Database.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Printf("Healthy       : %v\n", status.Healthy)
	fmt.Printf("Response time : %v\n", status.ResponseTime)
	fmt.Printf("Connections   : %d total, %d idle, %d acquired (max %d)\n",
		status.TotalConns, status.IdleConns, status.AcquiredConns, status.MaxConns)

	repo := s0_data.NewRepository(db.Pool)
	if testDBMigrate {
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		fmt.Println("Schema        : care schema ready")
	}

	patients, err := repo.ListPatients(ctx)
	if err != nil {
		return fmt.Errorf("list patients (run with --migrate?): %w", err)
	}
	fmt.Printf("Patients      : %d active\n", len(patients))

	return nil
}

// maskPassword hides the password in a connection URL
func maskPassword(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
