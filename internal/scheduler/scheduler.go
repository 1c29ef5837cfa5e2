package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/carewatch/pkg/logger"
)

// Options controls retries and per-run timeouts
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	RunTimeout time.Duration // 0 means no timeout
}

// DefaultOptions retries a failed run three times a minute apart
func DefaultOptions() Options {
	return Options{
		MaxRetries: 3,
		RetryDelay: time.Minute,
		RunTimeout: 10 * time.Minute,
	}
}

type entry struct {
	job     Job
	cronID  cron.EntryID
	history *JobHistory
	running bool
}

// Scheduler runs registered jobs on their cron schedules.
// A job never overlaps with itself; a tick that arrives while the
// previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	opts   Options
	logger *logger.Logger

	mu   sync.Mutex
	jobs map[string]*entry

	// stop cancels runs started by cron ticks
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a new scheduler
func New(log *logger.Logger, opts Options) *Scheduler {
	ctx, stop := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		opts:   opts,
		logger: log.WithField("module", "scheduler"),
		jobs:   make(map[string]*entry),
		ctx:    ctx,
		stop:   stop,
	}
}

// AddJob registers a job on its schedule
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() {
		if _, err := s.run(s.ctx, name); err != nil {
			s.logger.WithError(err).WithField("job", name).Debug("Scheduled run skipped")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = &entry{job: job, cronID: id, history: &JobHistory{}}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")

	return nil
}

// RemoveJob unschedules a job and forgets its history
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(e.cronID)
	delete(s.jobs, name)
	s.logger.WithField("job", name).Info("Job removed from scheduler")

	return nil
}

// Start starts the cron loop
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop cancels in-flight runs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.stop()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunJob runs a job immediately and waits for the result
func (s *Scheduler) RunJob(ctx context.Context, name string) (JobResult, error) {
	return s.run(ctx, name)
}

func (s *Scheduler) run(ctx context.Context, name string) (JobResult, error) {
	s.mu.Lock()
	e, exists := s.jobs[name]
	if !exists {
		s.mu.Unlock()
		return JobResult{}, fmt.Errorf("job %s not found", name)
	}
	if e.running {
		s.mu.Unlock()
		return JobResult{}, fmt.Errorf("job %s is already running", name)
	}
	e.running = true
	s.mu.Unlock()

	result := s.execute(ctx, e.job)

	s.mu.Lock()
	e.running = false
	e.history.AddResult(result)
	s.mu.Unlock()

	return result, nil
}

// execute runs the job with retries
func (s *Scheduler) execute(ctx context.Context, job Job) JobResult {
	name := job.Name()
	result := JobResult{JobName: name, StartTime: time.Now()}

	s.logger.WithField("job", name).Info("Job started")

	var lastErr error
retry:
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		lastErr = s.attempt(ctx, job)
		if lastErr == nil {
			result.Success = true
			break
		}

		s.logger.WithFields(map[string]interface{}{
			"job":     name,
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		}).Warn("Job execution failed")

		if attempt == s.opts.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			break retry
		case <-time.After(s.opts.RetryDelay):
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	if result.Success {
		s.logger.WithFields(map[string]interface{}{
			"job":      name,
			"duration": result.Duration,
			"attempts": result.Attempts,
		}).Info("Job completed successfully")
	} else {
		result.Error = lastErr.Error()
		s.logger.WithFields(map[string]interface{}{
			"job":      name,
			"duration": result.Duration,
			"error":    result.Error,
		}).Error("Job failed after all retries")
	}

	return result
}

func (s *Scheduler) attempt(ctx context.Context, job Job) error {
	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}
	return job.Run(ctx)
}

// GetJobHistory returns a copy of the job's recent results
func (s *Scheduler) GetJobHistory(name string) ([]JobResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.jobs[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return e.history.Latest(historyLimit), nil
}

// GetAllJobs returns registered job names, sorted
func (s *Scheduler) GetAllJobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetJobStats returns statistics for all jobs, sorted by name
func (s *Scheduler) GetJobStats() []JobStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]JobStats, 0, len(s.jobs))
	for name, e := range s.jobs {
		st := JobStats{
			JobName:      name,
			Schedule:     e.job.Schedule(),
			TotalRuns:    len(e.history.Results),
			FailureCount: e.history.Failures(),
			SuccessRate:  e.history.SuccessRate(),
		}
		if next := s.cron.Entry(e.cronID).Next; !next.IsZero() {
			st.NextRun = &next
		}
		if latest := e.history.Latest(1); len(latest) == 1 {
			st.LastRun = &latest[0]
		}
		stats = append(stats, st)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].JobName < stats[j].JobName })
	return stats
}
