package s3_scoring

import (
	"fmt"
	"sort"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/s1_normalize"
)

const (
	RecContactPatient     = "Contact patient immediately to assess severe symptoms"
	RecReviewVitals       = "Review abnormal vital signs and consider in-person evaluation"
	RecEscalateCarePlan   = "Escalate care plan review with attending physician"
	RecReassessPain       = "Reassess pain management plan"
	RecScreenMood         = "Screen for mood changes and offer support resources"
	RecReviewMedication   = "Review medication schedule with patient"
	RecConsistentTiming   = "Encourage consistent medication timing"
	RecDailyLogs          = "Encourage daily health log submissions"
	RecContinuePlan       = "Continue current recovery plan"
	recWorseningSymptoms  = "Review worsening symptoms with patient"
	recNewSymptomsPattern = "Review worsening symptoms: %d more reported than at the start of the window"
)

type recommendation struct {
	severity contracts.Severity
	text     string
}

// recommend lists templated actions ordered by severity (critical first,
// declaration order within a severity) without duplicates
func (s *Scorer) recommend(table *s1_normalize.Table, res Result, flags criticalFlags, trends []contracts.Trend) []string {
	var recs []recommendation
	add := func(sev contracts.Severity, text string) {
		recs = append(recs, recommendation{sev, text})
	}

	if flags.severeSymptom {
		add(contracts.SeverityCritical, RecContactPatient)
	}
	if flags.abnormalVital {
		add(contracts.SeverityCritical, RecReviewVitals)
	}
	if res.Score < s.status.CriticalScoreBelow {
		add(contracts.SeverityCritical, RecEscalateCarePlan)
	}

	if _, ok := significantlyWorse(trends, contracts.MetricWellness); ok {
		add(contracts.SeverityWarning, RecReassessPain)
	}
	if _, ok := significantlyWorse(trends, contracts.MetricMood); ok {
		add(contracts.SeverityWarning, RecScreenMood)
	}
	if res.AdherenceRating == contracts.AdherenceNeedsImprovement {
		add(contracts.SeverityWarning, RecReviewMedication)
	}
	if _, ok := significantlyWorse(trends, contracts.MetricAdherence); ok {
		add(contracts.SeverityWarning, RecReviewMedication)
	}
	if t, ok := significantlyWorse(trends, contracts.MetricSymptomBurden); ok {
		if t.CountDelta > 0 {
			add(contracts.SeverityWarning, fmt.Sprintf(recNewSymptomsPattern, t.CountDelta))
		} else {
			add(contracts.SeverityWarning, recWorseningSymptoms)
		}
	}

	if res.AdherenceRating == contracts.AdherenceGood {
		add(contracts.SeverityInfo, RecConsistentTiming)
	}
	if len(table.Summary().MissingDays) > 0 {
		add(contracts.SeverityInfo, RecDailyLogs)
	}
	if len(recs) == 0 && res.Status == contracts.StatusImproving {
		add(contracts.SeverityInfo, RecContinuePlan)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].severity.Rank() > recs[j].severity.Rank()
	})

	out := make([]string, 0, len(recs))
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		if seen[r.text] {
			continue
		}
		seen[r.text] = true
		out = append(out, r.text)
	}
	return out
}
