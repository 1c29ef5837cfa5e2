package engine

import (
	"errors"
	"fmt"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engineconfig"
	"github.com/wonny/carewatch/internal/s1_normalize"
	"github.com/wonny/carewatch/internal/s2_trends"
	"github.com/wonny/carewatch/internal/s3_scoring"
	"github.com/wonny/carewatch/internal/s4_alerts"
	"github.com/wonny/carewatch/internal/s5_ranking"
	"github.com/wonny/carewatch/pkg/logger"
)

// ErrMissingPatientID is returned when an assessment is requested without a patient
var ErrMissingPatientID = errors.New("patient id is required")

// Engine runs the S1-S5 pipeline. It holds only immutable configuration and
// is safe for concurrent use.
type Engine struct {
	cfg        *engineconfig.Config
	configHash string

	normalizer *s1_normalize.Normalizer
	analyzer   *s2_trends.Analyzer
	scorer     *s3_scoring.Scorer
	generator  *s4_alerts.Generator
	ranker     *s5_ranking.Ranker

	logger *logger.Logger
}

// New creates an engine. cfg is validated and must not be modified afterwards.
func New(cfg *engineconfig.Config, log *logger.Logger) (*Engine, error) {
	if err := engineconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	hash, err := engineconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash engine config: %w", err)
	}

	return &Engine{
		cfg:        cfg,
		configHash: hash,
		normalizer: s1_normalize.New(cfg),
		analyzer:   s2_trends.New(cfg),
		scorer:     s3_scoring.New(cfg),
		generator:  s4_alerts.New(cfg),
		ranker:     s5_ranking.NewRanker(),
		logger:     log.WithField("module", "engine"),
	}, nil
}

// Config returns the thresholds in use
func (e *Engine) Config() *engineconfig.Config {
	return e.cfg
}

// ConfigHash identifies the thresholds that produced an assessment
func (e *Engine) ConfigHash() string {
	return e.configHash
}

// ComputeAssessment assesses one patient from raw history.
// Malformed records are dropped and listed in Rejected; the only errors are
// ErrMissingPatientID and *contracts.InsufficientDataError.
func (e *Engine) ComputeAssessment(patientID string, entries []contracts.HealthLogEntry, adherence []contracts.AdherenceRecord) (*contracts.RecoveryAssessment, error) {
	if patientID == "" {
		return nil, ErrMissingPatientID
	}

	// S1
	table, err := e.normalizer.Normalize(patientID, entries, adherence)
	if err != nil {
		return nil, err
	}

	// S2
	trends := e.analyzer.Analyze(table)

	// S3
	result := e.scorer.Evaluate(table, trends)

	// S4
	alerts := e.generator.Generate(table)

	assessment := &contracts.RecoveryAssessment{
		PatientID:       patientID,
		AsOf:            table.AsOf,
		Score:           result.Score,
		Status:          result.Status,
		ScoreBand:       result.ScoreBand,
		AdherenceRating: result.AdherenceRating,
		VitalsStatus:    result.VitalsStatus,
		Trends:          trends,
		Alerts:          alerts,
		Recommendations: result.Recommendations,
		Window:          table.Summary(),
		Rejected:        table.Rejected,
		ConfigHash:      e.configHash,
	}

	if len(table.Rejected) > 0 {
		e.logger.WithPatient(patientID).WithField("rejected", len(table.Rejected)).Warn("Malformed entries excluded")
	}
	e.logger.WithFields(map[string]interface{}{
		"patient_id": patientID,
		"as_of":      table.AsOf.Format("2006-01-02"),
		"score":      assessment.Score,
		"status":     assessment.Status,
		"alerts":     len(alerts),
	}).Debug("Assessment computed")

	return assessment, nil
}

// RankCohortDetailed orders finalized assessments for the monitoring view (S5)
func (e *Engine) RankCohortDetailed(members []contracts.CohortMember) ([]contracts.RankedPatient, error) {
	ranked, err := e.ranker.Rank(members)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"patients":   len(ranked),
		"top":        ranked[0].PatientID,
		"top_status": ranked[0].Status,
	}).Debug("Cohort ranked")

	return ranked, nil
}

// RankCohort returns patient ids in priority order
func (e *Engine) RankCohort(members []contracts.CohortMember) ([]string, error) {
	ranked, err := e.RankCohortDetailed(members)
	if err != nil {
		return nil, err
	}
	return s5_ranking.IDs(ranked), nil
}
