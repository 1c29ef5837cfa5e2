package s1_normalize

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engineconfig"
)

const day = 24 * time.Hour

// Normalizer implements S1: validation, same-day collapse and windowing
type Normalizer struct {
	window engineconfig.Window
	vitals engineconfig.VitalsRanges
}

// New creates a normalizer for the given thresholds
func New(cfg *engineconfig.Config) *Normalizer {
	return &Normalizer{
		window: cfg.Window,
		vitals: cfg.Vitals,
	}
}

// Normalize turns raw history into a gap-aware daily table.
// Invalid records are excluded and reported in Table.Rejected; the call only
// fails with InsufficientDataError when too few logged days remain.
func (n *Normalizer) Normalize(patientID string, entries []contracts.HealthLogEntry, adherence []contracts.AdherenceRecord) (*Table, error) {
	var rejected []contracts.MalformedEntryError

	// 1. Validate and collapse entries by day
	byDay := make(map[time.Time]contracts.HealthLogEntry)
	for _, entry := range entries {
		if bad := validateEntry(patientID, entry); bad != nil {
			rejected = append(rejected, *bad)
			continue
		}
		d := contracts.Day(entry.Date)
		if cur, ok := byDay[d]; ok && cur.SubmittedAt.After(entry.SubmittedAt) {
			continue
		}
		byDay[d] = entry
	}

	// 2. Validate and collapse adherence by day (later record wins)
	adhByDay := make(map[time.Time]contracts.AdherenceRecord)
	for _, rec := range adherence {
		if bad := validateAdherence(rec); bad != nil {
			rejected = append(rejected, *bad)
			continue
		}
		adhByDay[contracts.Day(rec.Date)] = rec
	}

	if len(byDay) == 0 {
		return nil, &contracts.InsufficientDataError{
			PatientID: patientID,
			ValidDays: 0,
			Required:  n.window.MinDays,
			Rejected:  rejected,
		}
	}

	// 3. AsOf = latest valid date
	var asOf time.Time
	for d := range byDay {
		if d.After(asOf) {
			asOf = d
		}
	}
	for d := range adhByDay {
		if d.After(asOf) {
			asOf = d
		}
	}
	start := asOf.Add(-time.Duration(n.window.LookbackDays-1) * day)

	// 4. One row per calendar day
	table := &Table{
		PatientID: patientID,
		AsOf:      asOf,
		Start:     start,
		Days:      make([]Day, 0, n.window.LookbackDays),
		Rejected:  rejected,
	}

	logged := 0
	for d := start; !d.After(asOf); d = d.Add(day) {
		row := Day{Date: d}
		if entry, ok := byDay[d]; ok {
			n.fillLog(&row, entry)
			logged++
		}
		if rec, ok := adhByDay[d]; ok {
			row.HasAdherence = true
			row.Adherence = rec.Percent
			row.MissedDoses = rec.MissedDoses
		}
		table.Days = append(table.Days, row)
	}

	// 5. Enough history?
	if logged < n.window.MinDays {
		return nil, &contracts.InsufficientDataError{
			PatientID: patientID,
			ValidDays: logged,
			Required:  n.window.MinDays,
			Rejected:  rejected,
		}
	}

	return table, nil
}

func (n *Normalizer) fillLog(row *Day, entry contracts.HealthLogEntry) {
	mood, _ := entry.Mood.Score()

	row.HasLog = true
	row.Wellness = float64(10 - entry.PainLevel)
	row.MoodScore = mood
	row.SymptomCount = len(entry.Symptoms)
	for _, s := range entry.Symptoms {
		row.SymptomBurden += float64(s.Severity)
		if s.Severity > row.MaxSeverity || row.TopSymptom == "" {
			row.MaxSeverity = s.Severity
			row.TopSymptom = s.Name
		}
	}
	if !entry.Vitals.IsEmpty() {
		row.Vitals = entry.Vitals
		row.VitalsFindings = CheckVitals(entry.Vitals, n.vitals)
	}

	e := entry
	e.Date = row.Date
	row.Entry = &e
}

// validateEntry returns the first problem found in entry, or nil
func validateEntry(patientID string, entry contracts.HealthLogEntry) *contracts.MalformedEntryError {
	reject := func(field, value, reason string) *contracts.MalformedEntryError {
		bad := &contracts.MalformedEntryError{
			EntryID: entry.ID,
			Field:   field,
			Value:   value,
			Reason:  reason,
		}
		if !entry.Date.IsZero() {
			bad.Date = contracts.Day(entry.Date)
		}
		return bad
	}

	if entry.Date.IsZero() {
		return reject("date", "", "required")
	}
	if entry.PatientID != "" && entry.PatientID != patientID {
		return reject("patient_id", entry.PatientID, fmt.Sprintf("belongs to another patient than %q", patientID))
	}
	if entry.PainLevel < 0 || entry.PainLevel > 10 {
		return reject("pain_level", strconv.Itoa(entry.PainLevel), "must be within 0..10")
	}
	if _, ok := entry.Mood.Score(); !ok {
		return reject("mood", string(entry.Mood), "must be one of poor, fair, good, excellent")
	}
	for i, s := range entry.Symptoms {
		if s.Name == "" {
			return reject(fmt.Sprintf("symptoms[%d].name", i), "", "required")
		}
		if s.Severity < 0 || s.Severity > 10 {
			return reject(fmt.Sprintf("symptoms[%d].severity", i), strconv.Itoa(s.Severity), "must be within 0..10")
		}
	}

	if v := entry.Vitals; v != nil {
		var systolic, diastolic *float64
		if v.BloodPressure != nil {
			systolic = &v.BloodPressure.Systolic
			diastolic = &v.BloodPressure.Diastolic
		}
		checks := []struct {
			field string
			value *float64
		}{
			{"temperature", v.Temperature},
			{"systolic", systolic},
			{"diastolic", diastolic},
			{"heart_rate", v.HeartRate},
			{"respiratory_rate", v.RespiratoryRate},
			{"oxygen_saturation", v.OxygenSaturation},
			{"weight", v.Weight},
		}
		for _, c := range checks {
			if bad := checkPlausible(c.field, c.value); bad != nil {
				return reject(bad.Field, bad.Value, bad.Reason)
			}
		}
	}

	return nil
}

func validateAdherence(rec contracts.AdherenceRecord) *contracts.MalformedEntryError {
	if rec.Date.IsZero() {
		return &contracts.MalformedEntryError{Field: "adherence.date", Reason: "required"}
	}
	if math.IsNaN(rec.Percent) || rec.Percent < 0 || rec.Percent > 100 {
		return &contracts.MalformedEntryError{
			Date:   contracts.Day(rec.Date),
			Field:  "adherence.percent",
			Value:  formatNum(rec.Percent),
			Reason: "must be within 0..100",
		}
	}
	if rec.MissedDoses < 0 {
		return &contracts.MalformedEntryError{
			Date:   contracts.Day(rec.Date),
			Field:  "adherence.missed_doses",
			Value:  strconv.Itoa(rec.MissedDoses),
			Reason: "must be >= 0",
		}
	}
	return nil
}
