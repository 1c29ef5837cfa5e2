package contracts

import "time"

// Mood is the patient's self-reported mood, ordinal from poor to excellent
type Mood string

const (
	MoodPoor      Mood = "poor"
	MoodFair      Mood = "fair"
	MoodGood      Mood = "good"
	MoodExcellent Mood = "excellent"
)

// Score maps the mood onto 0..3. ok is false for an unknown label.
func (m Mood) Score() (score float64, ok bool) {
	switch m {
	case MoodPoor:
		return 0, true
	case MoodFair:
		return 1, true
	case MoodGood:
		return 2, true
	case MoodExcellent:
		return 3, true
	default:
		return 0, false
	}
}

// HealthLogEntry is one self-reported daily log.
// A patient has at most one canonical entry per Date.
type HealthLogEntry struct {
	ID          string    `json:"id,omitempty"`
	PatientID   string    `json:"patient_id,omitempty"`
	Date        time.Time `json:"date"`
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
	PainLevel   int       `json:"pain_level"` // 0-10
	Mood        Mood      `json:"mood"`
	Symptoms    []Symptom `json:"symptoms,omitempty"`
	Vitals      *Vitals   `json:"vitals,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// Symptom belongs to exactly one HealthLogEntry
type Symptom struct {
	Name     string `json:"name"`
	Severity int    `json:"severity"`           // 0-10
	Duration string `json:"duration,omitempty"` // informational only
}

// Vitals fields are all optional; nil means "not measured"
type Vitals struct {
	Temperature      *float64       `json:"temperature,omitempty"` // Celsius
	BloodPressure    *BloodPressure `json:"blood_pressure,omitempty"`
	HeartRate        *float64       `json:"heart_rate,omitempty"`
	RespiratoryRate  *float64       `json:"respiratory_rate,omitempty"`
	OxygenSaturation *float64       `json:"oxygen_saturation,omitempty"`
	Weight           *float64       `json:"weight,omitempty"`
}

// BloodPressure in mmHg
type BloodPressure struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// IsEmpty reports whether no vital sign was recorded
func (v *Vitals) IsEmpty() bool {
	return v == nil || (v.Temperature == nil && v.BloodPressure == nil && v.HeartRate == nil &&
		v.RespiratoryRate == nil && v.OxygenSaturation == nil && v.Weight == nil)
}

// SymptomLevel buckets a symptom severity the way the dashboard colours it
type SymptomLevel string

const (
	SymptomMild     SymptomLevel = "mild"
	SymptomModerate SymptomLevel = "moderate"
	SymptomSevere   SymptomLevel = "severe"
)

// LevelOf returns the bucket for a 0-10 severity
func LevelOf(severity int) SymptomLevel {
	switch {
	case severity <= 3:
		return SymptomMild
	case severity <= 6:
		return SymptomModerate
	default:
		return SymptomSevere
	}
}

// Day truncates t to its calendar day (in t's own location) expressed as UTC midnight
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Float is a helper for building optional vitals
func Float(v float64) *float64 {
	return &v
}
