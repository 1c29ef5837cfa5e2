package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/carewatch/internal/monitoring"
	"github.com/wonny/carewatch/internal/s5_ranking"
	"github.com/wonny/carewatch/pkg/logger"
)

// DefaultCohortSchedule re-assesses the cohort every 15 minutes
const DefaultCohortSchedule = "0 */15 * * * *"

// CohortRankingMessage is the websocket message type for ranking snapshots
const CohortRankingMessage = "cohort_ranking"

// CohortAssessor runs one cohort assessment
type CohortAssessor interface {
	AssessCohort(ctx context.Context) (*monitoring.CohortSnapshot, error)
}

// Publisher pushes a message to live subscribers
type Publisher interface {
	Publish(msgType string, v interface{}) error
}

// CohortAssessmentJob re-assesses every active patient, refreshing the
// assessment cache, and publishes the new ranking
type CohortAssessmentJob struct {
	assessor  CohortAssessor
	publisher Publisher
	schedule  string
	logger    *logger.Logger
}

// NewCohortAssessmentJob creates the job. publisher may be nil and an
// empty schedule means DefaultCohortSchedule.
func NewCohortAssessmentJob(assessor CohortAssessor, publisher Publisher, schedule string, log *logger.Logger) *CohortAssessmentJob {
	if schedule == "" {
		schedule = DefaultCohortSchedule
	}
	return &CohortAssessmentJob{
		assessor:  assessor,
		publisher: publisher,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *CohortAssessmentJob) Name() string {
	return "cohort_assessment"
}

// Schedule returns the cron schedule (with seconds)
func (j *CohortAssessmentJob) Schedule() string {
	return j.schedule
}

// Run assesses the cohort and publishes the snapshot.
// A failed publish is logged; the assessment itself already succeeded.
func (j *CohortAssessmentJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled cohort assessment")

	snapshot, err := j.assessor.AssessCohort(ctx)
	if err != nil {
		return fmt.Errorf("assess cohort: %w", err)
	}

	if j.publisher != nil {
		if err := j.publisher.Publish(CohortRankingMessage, snapshot); err != nil {
			j.logger.WithError(err).Warn("Failed to publish cohort ranking")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"ranked":    len(snapshot.Ranking),
		"skipped":   len(snapshot.Skipped),
		"attention": len(s5_ranking.NeedsAttention(snapshot.Ranking)),
	}).Info("Cohort assessment completed")

	return nil
}
