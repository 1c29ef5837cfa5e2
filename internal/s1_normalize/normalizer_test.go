package s1_normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engineconfig"
)

func date(d int) time.Time {
	return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC)
}

func entry(d, pain int) contracts.HealthLogEntry {
	return contracts.HealthLogEntry{
		ID:          "e-" + date(d).Format("0102"),
		Date:        date(d),
		SubmittedAt: date(d).Add(9 * time.Hour),
		PainLevel:   pain,
		Mood:        contracts.MoodGood,
	}
}

func TestNormalize_Window(t *testing.T) {
	n := New(engineconfig.Default())

	entries := []contracts.HealthLogEntry{entry(3, 6), entry(5, 4), entry(1, 9), entry(8, 2)}
	adherence := []contracts.AdherenceRecord{{Date: date(7), Percent: 80, MissedDoses: 1}}

	table, err := n.Normalize("p-1", entries, adherence)
	require.NoError(t, err)

	assert.Equal(t, date(8), table.AsOf)
	assert.Equal(t, date(2), table.Start)
	require.Len(t, table.Days, 7)

	// day 1 falls outside the 7-day window
	summary := table.Summary()
	assert.Equal(t, 3, summary.LoggedDays)
	assert.Equal(t, []time.Time{date(2), date(4), date(6), date(7)}, summary.MissingDays)

	latest, ok := table.LatestLog()
	require.True(t, ok)
	assert.Equal(t, 8.0, latest.Wellness)
	assert.Equal(t, 2.0, latest.MoodScore)

	gap := table.Days[0]
	assert.False(t, gap.HasLog)
	_, present := gap.Value(contracts.MetricWellness)
	assert.False(t, present)

	adh, ok := table.LatestAdherence()
	require.True(t, ok)
	assert.Equal(t, date(7), adh.Date)
	assert.Equal(t, 1, adh.MissedDoses)
}

func TestNormalize_AsOfFromAdherence(t *testing.T) {
	n := New(engineconfig.Default())

	table, err := n.Normalize("p-1",
		[]contracts.HealthLogEntry{entry(4, 5), entry(5, 5)},
		[]contracts.AdherenceRecord{{Date: date(6), Percent: 100}},
	)
	require.NoError(t, err)
	assert.Equal(t, date(6), table.AsOf)
}

func TestNormalize_SameDayCollapse(t *testing.T) {
	n := New(engineconfig.Default())

	morning := entry(5, 7)
	evening := entry(5, 3)
	evening.SubmittedAt = date(5).Add(20 * time.Hour)
	retry := entry(5, 1)
	retry.SubmittedAt = evening.SubmittedAt

	table, err := n.Normalize("p-1", []contracts.HealthLogEntry{evening, morning, entry(4, 5)}, nil)
	require.NoError(t, err)
	latest, _ := table.LatestLog()
	assert.Equal(t, 7.0, latest.Wellness, "latest submission wins regardless of input order")

	// equal SubmittedAt: later input wins
	table, err = n.Normalize("p-1", []contracts.HealthLogEntry{evening, retry, entry(4, 5)}, nil)
	require.NoError(t, err)
	latest, _ = table.LatestLog()
	assert.Equal(t, 9.0, latest.Wellness)
}

func TestNormalize_Symptoms(t *testing.T) {
	n := New(engineconfig.Default())

	e := entry(5, 4)
	e.Symptoms = []contracts.Symptom{
		{Name: "nausea", Severity: 3},
		{Name: "dizziness", Severity: 6},
		{Name: "fatigue", Severity: 6},
	}

	table, err := n.Normalize("p-1", []contracts.HealthLogEntry{entry(4, 4), e}, nil)
	require.NoError(t, err)

	latest, _ := table.LatestLog()
	assert.Equal(t, 15.0, latest.SymptomBurden)
	assert.Equal(t, 3, latest.SymptomCount)
	assert.Equal(t, 6, latest.MaxSeverity)
	assert.Equal(t, "dizziness", latest.TopSymptom)
}

func TestNormalize_MalformedEntries(t *testing.T) {
	n := New(engineconfig.Default())

	badPain := entry(5, 11)
	badMood := entry(6, 3)
	badMood.Mood = "meh"
	badSeverity := entry(7, 3)
	badSeverity.Symptoms = []contracts.Symptom{{Name: "cough", Severity: 12}}
	badVitals := entry(2, 3)
	badVitals.Vitals = &contracts.Vitals{HeartRate: contracts.Float(-4)}
	undated := entry(1, 3)
	undated.Date = time.Time{}
	foreign := entry(3, 3)
	foreign.PatientID = "p-2"

	entries := []contracts.HealthLogEntry{badPain, entry(8, 2), badMood, badSeverity, entry(9, 2), badVitals, undated, foreign}
	adherence := []contracts.AdherenceRecord{{Date: date(9), Percent: 140}}

	table, err := n.Normalize("p-1", entries, adherence)
	require.NoError(t, err)

	fields := make([]string, 0, len(table.Rejected))
	for _, r := range table.Rejected {
		fields = append(fields, r.Field)
	}
	assert.Equal(t, []string{
		"pain_level", "mood", "symptoms[0].severity", "vitals.heart_rate", "date", "patient_id", "adherence.percent",
	}, fields)

	assert.Equal(t, date(5), table.Rejected[0].Date)
	assert.Equal(t, "11", table.Rejected[0].Value)
	assert.Equal(t, 2, table.Summary().LoggedDays)
}

func TestNormalize_Insufficient(t *testing.T) {
	n := New(engineconfig.Default())

	tests := []struct {
		name    string
		entries []contracts.HealthLogEntry
		valid   int
	}{
		{"empty", nil, 0},
		{"single day", []contracts.HealthLogEntry{entry(5, 3)}, 1},
		{"duplicates of one day", []contracts.HealthLogEntry{entry(5, 3), entry(5, 4)}, 1},
		{"all malformed", []contracts.HealthLogEntry{entry(5, -1), entry(6, 11)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize("p-1", tt.entries, nil)
			require.Error(t, err)

			var insufficient *contracts.InsufficientDataError
			require.True(t, errors.As(err, &insufficient))
			assert.Equal(t, tt.valid, insufficient.ValidDays)
			assert.Equal(t, 2, insufficient.Required)
		})
	}
}

func TestNormalize_InsufficientCarriesRejected(t *testing.T) {
	n := New(engineconfig.Default())

	_, err := n.Normalize("p-1", []contracts.HealthLogEntry{entry(5, 3), entry(6, 42)}, nil)

	var insufficient *contracts.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Rejected, 1)
	assert.Equal(t, "pain_level", insufficient.Rejected[0].Field)
}

func TestNormalize_NonUTCDates(t *testing.T) {
	n := New(engineconfig.Default())
	loc := time.FixedZone("UTC-7", -7*3600)

	late := entry(5, 3)
	late.Date = time.Date(2025, 5, 5, 22, 0, 0, 0, loc)

	table, err := n.Normalize("p-1", []contracts.HealthLogEntry{entry(4, 3), late}, nil)
	require.NoError(t, err)
	assert.Equal(t, date(5), table.AsOf)
}

func TestCheckVitals(t *testing.T) {
	ranges := engineconfig.Default().Vitals

	v := &contracts.Vitals{
		OxygenSaturation: contracts.Float(89),
		HeartRate:        contracts.Float(88),
		BloodPressure:    &contracts.BloodPressure{Systolic: 185, Diastolic: 95},
		Weight:           contracts.Float(70),
	}

	findings := CheckVitals(v, ranges)
	require.Len(t, findings, 2)
	assert.Equal(t, "systolic", findings[0].Field)
	assert.Equal(t, "systolic 185 (max 180)", findings[0].String())
	assert.Equal(t, "oxygen_saturation 89 (min 92)", findings[1].String())

	assert.Empty(t, CheckVitals(nil, ranges))
	assert.Empty(t, CheckVitals(&contracts.Vitals{Temperature: contracts.Float(36.8)}, ranges))
}

func TestTable_Recent(t *testing.T) {
	n := New(engineconfig.Default())
	table, err := n.Normalize("p-1", []contracts.HealthLogEntry{entry(2, 3), entry(8, 3)}, nil)
	require.NoError(t, err)

	recent := table.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, date(7), recent[0].Date)
	assert.Equal(t, date(8), recent[1].Date)
	assert.Len(t, table.Recent(30), 7)
	assert.Empty(t, table.Recent(0))
}
