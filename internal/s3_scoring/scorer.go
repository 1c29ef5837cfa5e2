package s3_scoring

import (
	"math"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engineconfig"
	"github.com/wonny/carewatch/internal/s1_normalize"
)

// Result is the S3 output for one patient
type Result struct {
	Score           int
	Status          contracts.Status
	ScoreBand       contracts.ScoreBand
	AdherenceRating contracts.AdherenceRating
	VitalsStatus    contracts.VitalsStatus
	Recommendations []string
}

// Scorer implements S3: composite score, status and recommendations
type Scorer struct {
	scoring engineconfig.Scoring
	status  engineconfig.StatusRules
	bands   engineconfig.Bands
}

// New creates a scorer for the given thresholds
func New(cfg *engineconfig.Config) *Scorer {
	return &Scorer{
		scoring: cfg.Scoring,
		status:  cfg.Status,
		bands:   cfg.Bands,
	}
}

// Evaluate scores the latest state of the window and classifies it
func (s *Scorer) Evaluate(table *s1_normalize.Table, trends []contracts.Trend) Result {
	score := s.Score(table)
	flags := s.criticalFlags(table)

	res := Result{
		Score:           score,
		Status:          s.classify(score, flags, trends),
		ScoreBand:       s.bands.ScoreBand(score),
		AdherenceRating: contracts.AdherenceUnknown,
		VitalsStatus:    contracts.VitalsUnknown,
	}

	if adh, ok := table.LatestAdherence(); ok {
		res.AdherenceRating = s.bands.AdherenceRating(adh.Adherence)
	}
	if v, ok := table.LatestVitals(); ok {
		res.VitalsStatus = contracts.VitalsNormal
		if len(v.VitalsFindings) > 0 {
			res.VitalsStatus = contracts.VitalsAbnormal
		}
	}

	res.Recommendations = s.recommend(table, res, flags, trends)
	return res
}

// Score computes the 0..100 composite from the latest logged day.
// Without an adherence record in the window the adherence weight is
// spread proportionally over the other terms.
func (s *Scorer) Score(table *s1_normalize.Table) int {
	latest, ok := table.LatestLog()
	if !ok {
		return 0
	}

	w := s.scoring.Weights
	symptomFactor := math.Max(0, 1-latest.SymptomBurden/s.scoring.SymptomBurdenFloor)

	total := w.Wellness*latest.Wellness/10 +
		w.Mood*latest.MoodScore/3 +
		w.Symptom*symptomFactor

	if adh, ok := table.LatestAdherence(); ok {
		total += w.Adherence * adh.Adherence / 100
	} else {
		rest := w.Wellness + w.Mood + w.Symptom
		if rest <= 0 {
			return 0
		}
		total /= rest
	}

	return clamp(int(math.Round(100*total)), 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// criticalFlags are the overrides checked over the last RecentDays of the window
type criticalFlags struct {
	severeSymptom bool
	abnormalVital bool
}

func (s *Scorer) criticalFlags(table *s1_normalize.Table) criticalFlags {
	var f criticalFlags
	for _, d := range table.Recent(s.status.RecentDays) {
		if !d.HasLog {
			continue
		}
		if d.MaxSeverity >= s.status.CriticalSymptomSeverity && d.SymptomCount > 0 {
			f.severeSymptom = true
		}
		if len(d.VitalsFindings) > 0 {
			f.abnormalVital = true
		}
	}
	return f
}

// classify applies the status rules in order; first match wins
func (s *Scorer) classify(score int, flags criticalFlags, trends []contracts.Trend) contracts.Status {
	if score < s.status.CriticalScoreBelow || flags.severeSymptom || flags.abnormalVital {
		return contracts.StatusCritical
	}

	if score >= s.status.ImprovingScoreMin && !worsening(trends, contracts.MetricWellness) {
		return contracts.StatusImproving
	}

	if score >= s.status.ConcerningScoreMin && score <= s.status.ConcerningScoreMax {
		return contracts.StatusConcerning
	}
	for _, t := range trends {
		if t.SignificantlyWorse() {
			return contracts.StatusConcerning
		}
	}

	return contracts.StatusStable
}

func worsening(trends []contracts.Trend, m contracts.Metric) bool {
	for _, t := range trends {
		if t.Metric == m {
			return t.Direction == contracts.DirectionWorsening
		}
	}
	return false
}

func significantlyWorse(trends []contracts.Trend, m contracts.Metric) (contracts.Trend, bool) {
	for _, t := range trends {
		if t.Metric == m && t.SignificantlyWorse() {
			return t, true
		}
	}
	return contracts.Trend{}, false
}
