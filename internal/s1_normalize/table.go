package s1_normalize

import (
	"time"

	"github.com/wonny/carewatch/internal/contracts"
)

// Day is one calendar day of the window after normalization.
// HasLog=false marks a gap; its log-derived fields are zero and must not be read.
type Day struct {
	Date   time.Time
	HasLog bool

	Wellness      float64 // 10 - pain
	MoodScore     float64 // 0..3
	SymptomBurden float64 // sum of severities
	SymptomCount  int
	MaxSeverity   int
	TopSymptom    string // name of the most severe symptom, first wins on ties

	Vitals         *contracts.Vitals
	VitalsFindings []VitalsFinding

	HasAdherence bool
	Adherence    float64
	MissedDoses  int

	Entry *contracts.HealthLogEntry // canonical entry of the day
}

// Value returns the day's value for metric m and whether it is present
func (d Day) Value(m contracts.Metric) (float64, bool) {
	switch m {
	case contracts.MetricWellness:
		return d.Wellness, d.HasLog
	case contracts.MetricMood:
		return d.MoodScore, d.HasLog
	case contracts.MetricSymptomBurden:
		return d.SymptomBurden, d.HasLog
	case contracts.MetricAdherence:
		return d.Adherence, d.HasAdherence
	default:
		return 0, false
	}
}

// Table is the normalized window of one patient, oldest day first
type Table struct {
	PatientID string
	AsOf      time.Time
	Start     time.Time
	Days      []Day
	Rejected  []contracts.MalformedEntryError
}

// Logged returns the days that carry a health log
func (t *Table) Logged() []Day {
	logged := make([]Day, 0, len(t.Days))
	for _, d := range t.Days {
		if d.HasLog {
			logged = append(logged, d)
		}
	}
	return logged
}

// LatestLog returns the most recent logged day
func (t *Table) LatestLog() (Day, bool) {
	for i := len(t.Days) - 1; i >= 0; i-- {
		if t.Days[i].HasLog {
			return t.Days[i], true
		}
	}
	return Day{}, false
}

// LatestAdherence returns the most recent day with an adherence record
func (t *Table) LatestAdherence() (Day, bool) {
	for i := len(t.Days) - 1; i >= 0; i-- {
		if t.Days[i].HasAdherence {
			return t.Days[i], true
		}
	}
	return Day{}, false
}

// LatestVitals returns the most recent logged day with at least one vital sign
func (t *Table) LatestVitals() (Day, bool) {
	for i := len(t.Days) - 1; i >= 0; i-- {
		if t.Days[i].HasLog && !t.Days[i].Vitals.IsEmpty() {
			return t.Days[i], true
		}
	}
	return Day{}, false
}

// Recent returns the last n calendar days of the window (gaps included)
func (t *Table) Recent(n int) []Day {
	if n >= len(t.Days) {
		return t.Days
	}
	if n <= 0 {
		return nil
	}
	return t.Days[len(t.Days)-n:]
}

// Summary describes the window for the assessment output
func (t *Table) Summary() contracts.WindowSummary {
	s := contracts.WindowSummary{
		Start: t.Start,
		End:   t.AsOf,
		Days:  len(t.Days),
	}
	for _, d := range t.Days {
		if d.HasLog {
			s.LoggedDays++
		} else {
			s.MissingDays = append(s.MissingDays, d.Date)
		}
	}
	return s
}
