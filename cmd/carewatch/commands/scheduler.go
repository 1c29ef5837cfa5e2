package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/carewatch/internal/scheduler"
	"github.com/wonny/carewatch/internal/scheduler/jobs"
	"github.com/wonny/carewatch/pkg/config"
	"github.com/wonny/carewatch/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run or inspect scheduled jobs",
	Long: `Run the job scheduler standalone, or inspect and trigger its jobs.

Jobs:
  cohort_assessment - re-assess every active patient, refresh the cache
                      and publish the ranking (ASSESSMENT_SCHEDULE,
                      default every 15 minutes)

Example:
  go run ./cmd/carewatch scheduler start
  go run ./cmd/carewatch scheduler list
  go run ./cmd/carewatch scheduler run cohort_assessment`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler until interrupted",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job once, now",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// registerJobs adds every job to sched. assessor may be nil when the jobs
// are only listed.
func registerJobs(sched *scheduler.Scheduler, assessor jobs.CohortAssessor, publisher jobs.Publisher, cfg *config.Config, log *logger.Logger) error {
	return sched.AddJob(jobs.NewCohortAssessmentJob(assessor, publisher, cfg.Engine.Schedule, log))
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	sched := scheduler.New(log, scheduler.DefaultOptions())
	if err := registerJobs(sched, rt.service, nil, cfg, log); err != nil {
		return err
	}
	sched.Start()

	fmt.Println("Scheduler started. Registered jobs:")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("Press Ctrl+C to stop")

	<-ctx.Done()
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	sched := scheduler.New(logger.Nop(), scheduler.DefaultOptions())
	if err := registerJobs(sched, nil, nil, cfg, log); err != nil {
		return err
	}

	fmt.Printf("%-20s %s\n", "JOB", "SCHEDULE")
	for _, st := range sched.GetJobStats() {
		fmt.Printf("%-20s %s\n", st.JobName, st.Schedule)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	sched := scheduler.New(log, scheduler.Options{MaxRetries: 0, RunTimeout: 30 * time.Minute})
	if err := registerJobs(sched, rt.service, nil, cfg, log); err != nil {
		return err
	}

	result, err := sched.RunJob(ctx, args[0])
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("job %s failed: %s", result.JobName, result.Error)
	}

	fmt.Printf("Job %s completed in %s\n", result.JobName, result.Duration.Round(time.Millisecond))
	return nil
}
