package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/monitoring"
	"github.com/wonny/carewatch/pkg/logger"
)

type stubAssessor struct {
	snapshot *monitoring.CohortSnapshot
	err      error
}

func (s stubAssessor) AssessCohort(ctx context.Context) (*monitoring.CohortSnapshot, error) {
	return s.snapshot, s.err
}

type recordingPublisher struct {
	types []string
	sent  []interface{}
	err   error
}

func (p *recordingPublisher) Publish(msgType string, v interface{}) error {
	p.types = append(p.types, msgType)
	p.sent = append(p.sent, v)
	return p.err
}

func TestCohortAssessmentJob_Run(t *testing.T) {
	snapshot := &monitoring.CohortSnapshot{
		Ranking: []contracts.RankedPatient{
			{Rank: 1, PatientID: "p-1", Status: contracts.StatusCritical, HasCritical: true},
			{Rank: 2, PatientID: "p-2", Status: contracts.StatusImproving},
		},
	}

	tests := []struct {
		name       string
		assessor   stubAssessor
		publishErr error
		wantErr    bool
		wantSent   int
	}{
		{name: "published", assessor: stubAssessor{snapshot: snapshot}, wantSent: 1},
		{name: "publish failure is not a job failure", assessor: stubAssessor{snapshot: snapshot}, publishErr: errors.New("closed"), wantSent: 1},
		{name: "assessment failure", assessor: stubAssessor{err: errors.New("db down")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{err: tt.publishErr}
			job := NewCohortAssessmentJob(tt.assessor, pub, "", logger.Nop())

			err := job.Run(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "assess cohort")
			} else {
				require.NoError(t, err)
			}

			require.Len(t, pub.sent, tt.wantSent)
			if tt.wantSent > 0 {
				assert.Equal(t, CohortRankingMessage, pub.types[0])
				assert.Same(t, snapshot, pub.sent[0])
			}
		})
	}
}

func TestCohortAssessmentJob_Schedule(t *testing.T) {
	assert.Equal(t, DefaultCohortSchedule, NewCohortAssessmentJob(stubAssessor{}, nil, "", logger.Nop()).Schedule())
	assert.Equal(t, "@every 1m", NewCohortAssessmentJob(stubAssessor{}, nil, "@every 1m", logger.Nop()).Schedule())
}

func TestCohortAssessmentJob_NoPublisher(t *testing.T) {
	job := NewCohortAssessmentJob(stubAssessor{snapshot: &monitoring.CohortSnapshot{}}, nil, "", logger.Nop())
	assert.NoError(t, job.Run(context.Background()))
}
