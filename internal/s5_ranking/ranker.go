package s5_ranking

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/carewatch/internal/contracts"
)

// Ranker implements S5: orders a cohort for the monitoring view.
// Priority, highest first:
//  1. any critical alert
//  2. status rank (critical > concerning > stable > improving)
//  3. lower score
//  4. more recent critical alert
//
// Ties keep input order.
type Ranker struct{}

// NewRanker creates a new ranker
func NewRanker() *Ranker {
	return &Ranker{}
}

type candidate struct {
	patientID      string
	score          int
	status         contracts.Status
	hasCritical    bool
	latestCritical time.Time
}

// Rank returns the cohort in priority order. The input slice is not modified.
func (r *Ranker) Rank(members []contracts.CohortMember) ([]contracts.RankedPatient, error) {
	if len(members) == 0 {
		return nil, contracts.EmptyCohortError{}
	}

	candidates := make([]candidate, 0, len(members))
	for i, m := range members {
		if m.Assessment == nil {
			return nil, fmt.Errorf("cohort member %d (%s): missing assessment", i, m.PatientID)
		}

		alerts := m.Alerts
		if alerts == nil {
			alerts = m.Assessment.Alerts
		}
		latest, hasCritical := contracts.LatestCritical(alerts)

		id := m.PatientID
		if id == "" {
			id = m.Assessment.PatientID
		}

		candidates = append(candidates, candidate{
			patientID:      id,
			score:          m.Assessment.Score,
			status:         m.Assessment.Status,
			hasCritical:    hasCritical,
			latestCritical: latest,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.hasCritical != b.hasCritical {
			return a.hasCritical
		}
		if a.status.Rank() != b.status.Rank() {
			return a.status.Rank() > b.status.Rank()
		}
		if a.score != b.score {
			return a.score < b.score
		}
		return a.latestCritical.After(b.latestCritical)
	})

	ranked := make([]contracts.RankedPatient, len(candidates))
	for i, c := range candidates {
		ranked[i] = contracts.RankedPatient{
			Rank:        i + 1,
			PatientID:   c.patientID,
			Score:       c.score,
			Status:      c.status,
			HasCritical: c.hasCritical,
		}
		if c.hasCritical {
			latest := c.latestCritical
			ranked[i].LatestCritical = &latest
		}
	}

	return ranked, nil
}

// IDs projects a ranking onto patient ids
func IDs(ranked []contracts.RankedPatient) []string {
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.PatientID
	}
	return ids
}

// NeedsAttention keeps the concerning and critical rows, preserving order
func NeedsAttention(ranked []contracts.RankedPatient) []contracts.RankedPatient {
	out := make([]contracts.RankedPatient, 0, len(ranked))
	for _, r := range ranked {
		if r.Status.NeedsAttention() {
			out = append(out, r)
		}
	}
	return out
}
