package s0_data

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/pkg/config"
	"github.com/wonny/carewatch/pkg/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, &config.Config{Database: config.DatabaseConfig{URL: url, MaxConns: 2, MinConns: 1}})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	repo := NewRepository(db.Pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func TestRepository_RoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	patientID := fmt.Sprintf("it-%d", time.Now().UnixNano())
	day := func(d int) time.Time { return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC) }

	window := contracts.PatientWindow{
		PatientID: patientID,
		Entries: []contracts.HealthLogEntry{
			{
				ID:          patientID + "-1",
				Date:        day(1),
				SubmittedAt: day(1).Add(9 * time.Hour),
				PainLevel:   6,
				Mood:        contracts.MoodFair,
				Symptoms:    []contracts.Symptom{{Name: "nausea", Severity: 4}, {Name: "fatigue", Severity: 2, Duration: "2 days"}},
			},
			{
				ID:          patientID + "-2",
				Date:        day(2),
				SubmittedAt: day(2).Add(9 * time.Hour),
				PainLevel:   4,
				Mood:        contracts.MoodGood,
				Vitals:      &contracts.Vitals{HeartRate: contracts.Float(82), BloodPressure: &contracts.BloodPressure{Systolic: 128, Diastolic: 84}},
			},
		},
		Adherence: []contracts.AdherenceRecord{
			{Date: day(1), Percent: 100},
			{Date: day(2), Percent: 66.7, MissedDoses: 1},
		},
	}

	require.NoError(t, repo.SaveWindow(ctx, window))

	patients, err := repo.ListPatients(ctx)
	require.NoError(t, err)
	assert.Contains(t, patients, patientID)

	entries, err := repo.ListEntries(ctx, patientID, day(1), day(7))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, day(1), entries[0].Date.UTC())
	assert.Equal(t, window.Entries[0].Symptoms, entries[0].Symptoms)
	require.NotNil(t, entries[1].Vitals)
	assert.Equal(t, 82.0, *entries[1].Vitals.HeartRate)
	assert.Equal(t, 128.0, entries[1].Vitals.BloodPressure.Systolic)

	records, err := repo.ListAdherence(ctx, patientID, day(1), day(7))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[1].MissedDoses)

	// re-saving replaces symptoms instead of duplicating them
	window.Entries[0].Symptoms = window.Entries[0].Symptoms[:1]
	require.NoError(t, repo.SaveEntries(ctx, patientID, window.Entries))
	entries, err = repo.ListEntries(ctx, patientID, day(1), day(1))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Symptoms, 1)
}

func TestRepository_EmptyRange(t *testing.T) {
	repo := newTestRepository(t)

	entries, err := repo.ListEntries(context.Background(), "nobody", time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
