package contracts

import (
	"sort"
	"time"
)

// AdherenceRecord is the daily medication adherence consumed by the engine
type AdherenceRecord struct {
	Date        time.Time `json:"date"`
	Percent     float64   `json:"percent"`                // 0-100 of scheduled doses taken
	MissedDoses int       `json:"missed_doses,omitempty"` // doses marked missed that day
}

// DoseStatus as reported by the medication-schedule service
type DoseStatus string

const (
	DoseTaken     DoseStatus = "taken"
	DoseScheduled DoseStatus = "scheduled"
	DoseMissed    DoseStatus = "missed"
)

// DoseEvent is one scheduled dose of one medication
type DoseEvent struct {
	MedicationID string     `json:"medication_id"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	Status       DoseStatus `json:"status"`
}

// AggregateDoses folds dose events into one AdherenceRecord per day, oldest first.
// Pending (scheduled) doses are not counted; a day with only pending doses
// produces no record. Unknown statuses are ignored.
func AggregateDoses(doses []DoseEvent) []AdherenceRecord {
	type tally struct{ taken, missed int }
	days := make(map[time.Time]*tally)

	for _, dose := range doses {
		if dose.Status != DoseTaken && dose.Status != DoseMissed {
			continue
		}
		day := Day(dose.ScheduledAt)
		t, ok := days[day]
		if !ok {
			t = &tally{}
			days[day] = t
		}
		if dose.Status == DoseTaken {
			t.taken++
		} else {
			t.missed++
		}
	}

	records := make([]AdherenceRecord, 0, len(days))
	for day, t := range days {
		records = append(records, AdherenceRecord{
			Date:        day,
			Percent:     100 * float64(t.taken) / float64(t.taken+t.missed),
			MissedDoses: t.missed,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	return records
}

// AdherenceRating is the coarse band shown next to the adherence percentage
type AdherenceRating string

const (
	AdherenceExcellent        AdherenceRating = "excellent"
	AdherenceGood             AdherenceRating = "good"
	AdherenceNeedsImprovement AdherenceRating = "needs_improvement"
	AdherenceUnknown          AdherenceRating = "unknown"
)
