package s5_ranking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carewatch/internal/contracts"
)

func date(d int) time.Time {
	return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC)
}

func member(id string, score int, status contracts.Status, criticalDays ...int) contracts.CohortMember {
	alerts := make([]contracts.Alert, 0, len(criticalDays))
	for _, d := range criticalDays {
		alerts = append(alerts, contracts.Alert{Severity: contracts.SeverityCritical, CreatedAt: date(d)})
	}
	return contracts.CohortMember{
		PatientID:  id,
		Assessment: &contracts.RecoveryAssessment{PatientID: id, Score: score, Status: status},
		Alerts:     alerts,
	}
}

func TestRank_Priority(t *testing.T) {
	members := []contracts.CohortMember{
		member("improving", 90, contracts.StatusImproving),
		member("stable-low", 55, contracts.StatusStable),
		member("concerning", 45, contracts.StatusConcerning),
		member("stable-high", 70, contracts.StatusStable),
		member("critical-old", 60, contracts.StatusCritical, 2),
		member("critical-new", 60, contracts.StatusCritical, 1, 6),
		member("alert-only", 80, contracts.StatusImproving, 4),
	}

	ranked, err := NewRanker().Rank(members)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"critical-new", "critical-old", "alert-only", "concerning", "stable-low", "stable-high", "improving",
	}, IDs(ranked))

	assert.Equal(t, 1, ranked[0].Rank)
	require.NotNil(t, ranked[0].LatestCritical)
	assert.Equal(t, date(6), *ranked[0].LatestCritical)
	assert.Nil(t, ranked[3].LatestCritical)
}

func TestRank_StableForTies(t *testing.T) {
	members := []contracts.CohortMember{
		member("a", 60, contracts.StatusStable),
		member("b", 60, contracts.StatusStable),
		member("c", 60, contracts.StatusStable),
	}

	ranked, err := NewRanker().Rank(members)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, IDs(ranked))
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	members := []contracts.CohortMember{
		member("a", 90, contracts.StatusImproving),
		member("b", 20, contracts.StatusCritical),
	}

	_, err := NewRanker().Rank(members)
	require.NoError(t, err)
	assert.Equal(t, "a", members[0].PatientID)
	assert.Equal(t, "b", members[1].PatientID)
}

func TestRank_FallsBackToAssessmentAlerts(t *testing.T) {
	m := member("a", 70, contracts.StatusStable)
	m.Alerts = nil
	m.Assessment.Alerts = []contracts.Alert{{Severity: contracts.SeverityCritical, CreatedAt: date(3)}}

	ranked, err := NewRanker().Rank([]contracts.CohortMember{member("b", 40, contracts.StatusConcerning), m})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, IDs(ranked))
	assert.True(t, ranked[0].HasCritical)
}

func TestRank_Empty(t *testing.T) {
	_, err := NewRanker().Rank(nil)
	require.Error(t, err)
	assert.True(t, errors.As(err, &contracts.EmptyCohortError{}))
}

func TestRank_MissingAssessment(t *testing.T) {
	_, err := NewRanker().Rank([]contracts.CohortMember{{PatientID: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing assessment")
}

func TestNeedsAttention(t *testing.T) {
	ranked, err := NewRanker().Rank([]contracts.CohortMember{
		member("improving", 90, contracts.StatusImproving),
		member("critical", 20, contracts.StatusCritical),
		member("stable", 60, contracts.StatusStable),
		member("concerning", 40, contracts.StatusConcerning),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"critical", "concerning"}, IDs(NeedsAttention(ranked)))
}
