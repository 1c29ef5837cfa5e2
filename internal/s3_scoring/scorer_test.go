package s3_scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engineconfig"
	"github.com/wonny/carewatch/internal/s1_normalize"
	"github.com/wonny/carewatch/internal/s2_trends"
)

func date(d int) time.Time {
	return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC)
}

func evaluate(t *testing.T, cfg *engineconfig.Config, entries []contracts.HealthLogEntry, adherence []contracts.AdherenceRecord) Result {
	t.Helper()

	table, err := s1_normalize.New(cfg).Normalize("p-1", entries, adherence)
	require.NoError(t, err)
	trends := s2_trends.New(cfg).Analyze(table)
	return New(cfg).Evaluate(table, trends)
}

func week(pain []int, mood contracts.Mood) []contracts.HealthLogEntry {
	entries := make([]contracts.HealthLogEntry, 0, len(pain))
	for i, p := range pain {
		entries = append(entries, contracts.HealthLogEntry{Date: date(i + 1), PainLevel: p, Mood: mood})
	}
	return entries
}

func adherenceOf(pcts ...float64) []contracts.AdherenceRecord {
	records := make([]contracts.AdherenceRecord, 0, len(pcts))
	for i, p := range pcts {
		records = append(records, contracts.AdherenceRecord{Date: date(i + 1), Percent: p})
	}
	return records
}

func TestEvaluate_ReferenceWeek(t *testing.T) {
	res := evaluate(t, engineconfig.Default(),
		week([]int{8, 7, 6, 5, 5, 4, 3}, contracts.MoodGood),
		adherenceOf(100, 75, 100, 75, 100, 100, 100),
	)

	// 100*(0.4*0.7 + 0.3*1 + 0.2*2/3 + 0.1*1) = 81.3
	assert.Equal(t, 81, res.Score)
	assert.Equal(t, contracts.StatusImproving, res.Status)
	assert.Equal(t, contracts.ScoreBandGood, res.ScoreBand)
	assert.Equal(t, contracts.AdherenceExcellent, res.AdherenceRating)
	assert.Equal(t, contracts.VitalsUnknown, res.VitalsStatus)
	assert.Equal(t, []string{RecContinuePlan}, res.Recommendations)
}

func TestScore_Bounds(t *testing.T) {
	cfg := engineconfig.Default()

	best := week([]int{0, 0}, contracts.MoodExcellent)
	assert.Equal(t, 100, evaluate(t, cfg, best, adherenceOf(100, 100)).Score)

	worst := week([]int{10, 10}, contracts.MoodPoor)
	worst[1].Symptoms = []contracts.Symptom{{Name: "pain", Severity: 10}, {Name: "nausea", Severity: 10}, {Name: "fever", Severity: 10}}
	assert.Equal(t, 0, evaluate(t, cfg, worst, adherenceOf(0, 0)).Score)
}

func TestScore_NoAdherenceRedistributes(t *testing.T) {
	// 0.4*0.7 + 0.2*2/3 + 0.1*1 = 0.5133 over 0.7 = 0.7333
	res := evaluate(t, engineconfig.Default(), week([]int{5, 3}, contracts.MoodGood), nil)
	assert.Equal(t, 73, res.Score)
	assert.Equal(t, contracts.AdherenceUnknown, res.AdherenceRating)
}

func TestClassify_CriticalSymptomOverride(t *testing.T) {
	entries := week([]int{1, 1, 1}, contracts.MoodExcellent)
	entries[1].Symptoms = []contracts.Symptom{{Name: "chest pain", Severity: 9}}

	res := evaluate(t, engineconfig.Default(), entries, adherenceOf(100, 100, 100))
	assert.Greater(t, res.Score, 75)
	assert.Equal(t, contracts.StatusCritical, res.Status)
	assert.Equal(t, RecContactPatient, res.Recommendations[0])
}

func TestClassify_OldSevereSymptomIsNotCritical(t *testing.T) {
	entries := week([]int{1, 1, 1, 1}, contracts.MoodExcellent)
	entries[0].Symptoms = []contracts.Symptom{{Name: "chest pain", Severity: 9}}

	res := evaluate(t, engineconfig.Default(), entries, adherenceOf(100, 100, 100, 100))
	assert.NotEqual(t, contracts.StatusCritical, res.Status)
}

func TestClassify_AbnormalVitals(t *testing.T) {
	entries := week([]int{2, 2}, contracts.MoodGood)
	entries[1].Vitals = &contracts.Vitals{OxygenSaturation: contracts.Float(89)}

	res := evaluate(t, engineconfig.Default(), entries, adherenceOf(100, 100))
	assert.Equal(t, contracts.StatusCritical, res.Status)
	assert.Equal(t, contracts.VitalsAbnormal, res.VitalsStatus)
	assert.Contains(t, res.Recommendations, RecReviewVitals)
}

func TestClassify_Bands(t *testing.T) {
	tests := []struct {
		name    string
		entries []contracts.HealthLogEntry
		adh     []contracts.AdherenceRecord
		want    contracts.Status
	}{
		{
			name:    "low score is critical",
			entries: week([]int{10, 10}, contracts.MoodPoor),
			adh:     adherenceOf(20, 20),
			want:    contracts.StatusCritical,
		},
		{
			// 0.4*0.3 + 0.3*0.6 + 0.2*1/3 + 0.1 = 0.4667
			name:    "concerning band",
			entries: week([]int{7, 7}, contracts.MoodFair),
			adh:     adherenceOf(60, 60),
			want:    contracts.StatusConcerning,
		},
		{
			// 0.4*0.5 + 0.3*0.8 + 0.2*2/3 + 0.1 = 0.6733
			name:    "stable",
			entries: week([]int{5, 5, 5}, contracts.MoodGood),
			adh:     adherenceOf(80, 80, 80),
			want:    contracts.StatusStable,
		},
		{
			// score 67 but wellness falls 9 -> 5
			name:    "significant worsening is concerning",
			entries: week([]int{1, 3, 5}, contracts.MoodGood),
			adh:     adherenceOf(80, 80, 80),
			want:    contracts.StatusConcerning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := evaluate(t, engineconfig.Default(), tt.entries, tt.adh)
			assert.Equal(t, tt.want, res.Status, "score=%d", res.Score)
		})
	}
}

func TestClassify_HighScoreButWorseningWellness(t *testing.T) {
	// score 92 but wellness worsens 10 -> 8
	res := evaluate(t, engineconfig.Default(), week([]int{0, 2}, contracts.MoodExcellent), adherenceOf(100, 100))
	assert.GreaterOrEqual(t, res.Score, 75)
	assert.Equal(t, contracts.StatusConcerning, res.Status)
	assert.Contains(t, res.Recommendations, RecReassessPain)
}

func TestRecommendations_OrderAndDedupe(t *testing.T) {
	entries := []contracts.HealthLogEntry{
		{Date: date(1), PainLevel: 1, Mood: contracts.MoodExcellent},
		{Date: date(4), PainLevel: 8, Mood: contracts.MoodPoor, Symptoms: []contracts.Symptom{
			{Name: "fever", Severity: 9}, {Name: "cough", Severity: 4},
		}},
	}

	res := evaluate(t, engineconfig.Default(), entries, adherenceOf(100, 90, 60, 40))

	assert.Equal(t, []string{
		RecContactPatient,
		RecEscalateCarePlan,
		RecReassessPain,
		RecScreenMood,
		RecReviewMedication,
		"Review worsening symptoms: 2 more reported than at the start of the window",
		RecDailyLogs,
	}, res.Recommendations)
}

func TestRecommendations_GoodAdherence(t *testing.T) {
	res := evaluate(t, engineconfig.Default(), week([]int{4, 4}, contracts.MoodGood), adherenceOf(80, 80))
	assert.Equal(t, contracts.AdherenceGood, res.AdherenceRating)
	assert.Contains(t, res.Recommendations, RecConsistentTiming)
}
