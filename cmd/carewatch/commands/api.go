package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/wonny/carewatch/internal/api"
	"github.com/wonny/carewatch/internal/api/handlers"
	"github.com/wonny/carewatch/internal/realtime"
	"github.com/wonny/carewatch/internal/scheduler"
	"github.com/wonny/carewatch/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Start the REST API server.

With DATABASE_URL set the server also runs the cohort_assessment job and
streams each new ranking to websocket subscribers.

Endpoints:
  GET  /health                       - Service and log store health
  POST /api/assessments              - Assess a supplied window
  GET  /api/patients/{id}/assessment - Assess a stored patient (?refresh=true)
  POST /api/cohort/rank              - Rank supplied assessments
  GET  /api/cohort/ranking           - Latest cohort ranking
  GET  /api/cohort/attention         - Concerning and critical patients
  GET  /ws/cohort                    - Live ranking stream

Example:
  go run ./cmd/carewatch api
  go run ./cmd/carewatch api --port 8080 --no-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort        string
	apiNoScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "listen port (default: PORT)")
	apiCmd.Flags().BoolVar(&apiNoScheduler, "no-scheduler", false, "do not run the cohort_assessment job in-process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	hub := realtime.NewHub(log)

	router := api.NewRouter(api.Handlers{
		Health:      handlers.NewHealthHandler(rt.healthChecker(), rt.engine.ConfigHash()),
		Assessments: handlers.NewAssessmentHandler(rt.engine, rt.service, log),
		Cohort:      handlers.NewCohortHandler(rt.engine, rt.service, log),
		Stream:      hub,
	}, rate.NewLimiter(rate.Limit(cfg.API.RateLimit), cfg.API.RateBurst), log)

	if rt.service != nil && !apiNoScheduler {
		sched := scheduler.New(log, scheduler.DefaultOptions())
		job := jobs.NewCohortAssessmentJob(rt.service, hub, cfg.Engine.Schedule, log)
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("add cohort job: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	fmt.Printf("carewatch API listening on :%s (Ctrl+C to stop)\n", cfg.Port)
	return api.New(cfg, log, router).Run(ctx)
}
