package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engine"
	"github.com/wonny/carewatch/internal/s5_ranking"
	"github.com/wonny/carewatch/pkg/logger"
	"github.com/wonny/carewatch/pkg/redis"
)

// Options tunes the service
type Options struct {
	Workers  int
	CacheTTL time.Duration
	Now      func() time.Time
}

// Service loads patient history from the log store, runs the engine and
// keeps the latest results in the cache
type Service struct {
	engine    *engine.Engine
	logs      contracts.LogStore
	adherence contracts.AdherenceSource
	cache     *redis.Cache
	opts      Options
	logger    *logger.Logger

	mu     sync.RWMutex
	latest *CohortSnapshot

	coldStart sync.Mutex
}

// CohortSnapshot is one ranked view of the whole cohort
type CohortSnapshot struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	ConfigHash  string                    `json:"config_hash"`
	Ranking     []contracts.RankedPatient `json:"ranking"`
	Skipped     []SkippedPatient          `json:"skipped,omitempty"`
}

// SkippedPatient is a patient left out of a cohort run and why
type SkippedPatient struct {
	PatientID string `json:"patient_id"`
	Reason    string `json:"reason"`
}

// NewService creates the assessment service. cache may be nil.
func NewService(eng *engine.Engine, logs contracts.LogStore, adherence contracts.AdherenceSource, cache *redis.Cache, opts Options, log *logger.Logger) *Service {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		engine:    eng,
		logs:      logs,
		adherence: adherence,
		cache:     cache,
		opts:      opts,
		logger:    log.WithField("module", "monitoring"),
	}
}

// Engine returns the engine used by the service
func (s *Service) Engine() *engine.Engine {
	return s.engine
}

// windowRange is the lookback window ending today
func (s *Service) windowRange() (time.Time, time.Time) {
	to := contracts.Day(s.opts.Now())
	from := to.AddDate(0, 0, -(s.engine.Config().Window.LookbackDays - 1))
	return from, to
}

// LoadWindow reads one patient's raw history for the current window
func (s *Service) LoadWindow(ctx context.Context, patientID string) (contracts.PatientWindow, error) {
	from, to := s.windowRange()

	entries, err := s.logs.ListEntries(ctx, patientID, from, to)
	if err != nil {
		return contracts.PatientWindow{}, fmt.Errorf("load entries: %w", err)
	}

	adherence, err := s.adherence.ListAdherence(ctx, patientID, from, to)
	if err != nil {
		return contracts.PatientWindow{}, fmt.Errorf("load adherence: %w", err)
	}

	return contracts.PatientWindow{
		PatientID: patientID,
		Entries:   entries,
		Adherence: adherence,
	}, nil
}

// AssessPatient returns the patient's current assessment, from cache unless refresh is set
func (s *Service) AssessPatient(ctx context.Context, patientID string, refresh bool) (*contracts.RecoveryAssessment, error) {
	key := redis.AssessmentKey(patientID, s.engine.ConfigHash())

	if !refresh && s.cache != nil {
		var cached contracts.RecoveryAssessment
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).WithPatient(patientID).Warn("Assessment cache read failed")
		}
		if found {
			return &cached, nil
		}
	}

	window, err := s.LoadWindow(ctx, patientID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.engine.ComputeAssessment(patientID, window.Entries, window.Adherence)
	if err != nil {
		return nil, err
	}

	s.store(ctx, assessment)
	return assessment, nil
}

func (s *Service) store(ctx context.Context, a *contracts.RecoveryAssessment) {
	if s.cache == nil {
		return
	}
	key := redis.AssessmentKey(a.PatientID, a.ConfigHash)
	if err := s.cache.Set(ctx, key, a, s.opts.CacheTTL); err != nil {
		s.logger.WithError(err).WithPatient(a.PatientID).Warn("Assessment cache write failed")
	}
}

// AssessCohort re-assesses every active patient and ranks the cohort.
// Patients that cannot be loaded or assessed are listed in Skipped.
func (s *Service) AssessCohort(ctx context.Context) (*CohortSnapshot, error) {
	start := time.Now()

	patients, err := s.logs.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	windows, skipped := s.loadWindows(ctx, patients)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := s.engine.AssessCohort(ctx, windows, s.opts.Workers)
	for _, r := range results {
		if r.Err != nil {
			skipped = append(skipped, SkippedPatient{PatientID: r.PatientID, Reason: r.Err.Error()})
			continue
		}
		s.store(ctx, r.Assessment)
	}

	snapshot := &CohortSnapshot{
		GeneratedAt: s.opts.Now().UTC(),
		ConfigHash:  s.engine.ConfigHash(),
		Ranking:     []contracts.RankedPatient{},
		Skipped:     skipped,
	}

	ranking, err := s.engine.RankCohortDetailed(engine.Members(results))
	var empty contracts.EmptyCohortError
	switch {
	case errors.As(err, &empty):
		s.logger.Warn("No patient could be assessed; publishing an empty ranking")
	case err != nil:
		return nil, fmt.Errorf("rank cohort: %w", err)
	default:
		snapshot.Ranking = ranking
	}

	s.publish(ctx, snapshot)

	s.logger.WithFields(map[string]interface{}{
		"patients":  len(patients),
		"ranked":    len(snapshot.Ranking),
		"skipped":   len(snapshot.Skipped),
		"attention": len(s5_ranking.NeedsAttention(snapshot.Ranking)),
		"duration":  time.Since(start).String(),
	}).Info("Cohort assessment published")

	return snapshot, nil
}

// loadWindows fetches windows concurrently; order follows patients
func (s *Service) loadWindows(ctx context.Context, patients []string) ([]contracts.PatientWindow, []SkippedPatient) {
	type loaded struct {
		window contracts.PatientWindow
		err    error
	}
	out := make([]loaded, len(patients))

	sem := make(chan struct{}, s.opts.Workers)
	var wg sync.WaitGroup
	for i, id := range patients {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				out[i].err = err
				return
			}
			out[i].window, out[i].err = s.LoadWindow(ctx, id)
		}(i, id)
	}
	wg.Wait()

	windows := make([]contracts.PatientWindow, 0, len(patients))
	var skipped []SkippedPatient
	for i, l := range out {
		if l.err != nil {
			s.logger.WithError(l.err).WithPatient(patients[i]).Error("Failed to load patient window")
			skipped = append(skipped, SkippedPatient{PatientID: patients[i], Reason: l.err.Error()})
			continue
		}
		windows = append(windows, l.window)
	}
	return windows, skipped
}

func (s *Service) publish(ctx context.Context, snapshot *CohortSnapshot) {
	s.mu.Lock()
	s.latest = snapshot
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, redis.CohortRankingKey(snapshot.ConfigHash), snapshot, s.opts.CacheTTL); err != nil {
		s.logger.WithError(err).Warn("Cohort ranking cache write failed")
	}
}

// LatestRanking returns the last published snapshot, running a cohort
// assessment when none exists yet. Concurrent cold callers share one run.
func (s *Service) LatestRanking(ctx context.Context) (*CohortSnapshot, error) {
	if latest := s.current(); latest != nil {
		return latest, nil
	}

	s.coldStart.Lock()
	defer s.coldStart.Unlock()
	if latest := s.current(); latest != nil {
		return latest, nil
	}

	if s.cache != nil {
		var cached CohortSnapshot
		found, err := s.cache.Get(ctx, redis.CohortRankingKey(s.engine.ConfigHash()), &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Cohort ranking cache read failed")
		}
		if found {
			return &cached, nil
		}
	}

	return s.AssessCohort(ctx)
}

func (s *Service) current() *CohortSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Attention returns the concerning and critical patients of the latest ranking
func (s *Service) Attention(ctx context.Context) ([]contracts.RankedPatient, error) {
	snapshot, err := s.LatestRanking(ctx)
	if err != nil {
		return nil, err
	}
	return s5_ranking.NeedsAttention(snapshot.Ranking), nil
}
