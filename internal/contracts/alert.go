package contracts

import "time"

// Severity of an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities: critical 2, warning 1, info 0
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// SourceMetric names the signal that triggered an alert
type SourceMetric string

const (
	SourceSymptom   SourceMetric = "symptom"
	SourceVitals    SourceMetric = "vitals"
	SourceAdherence SourceMetric = "adherence"
)

// Alert is one discrete event for clinical staff.
// CreatedAt is the day of the triggering entry, not the evaluation time.
type Alert struct {
	ID           string       `json:"id"`
	PatientID    string       `json:"patient_id"`
	Severity     Severity     `json:"severity"`
	Message      string       `json:"message"`
	CreatedAt    time.Time    `json:"created_at"`
	SourceMetric SourceMetric `json:"source_metric"`
}

// LatestCritical returns the newest CreatedAt among critical alerts
func LatestCritical(alerts []Alert) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, a := range alerts {
		if a.Severity != SeverityCritical {
			continue
		}
		if !found || a.CreatedAt.After(latest) {
			latest = a.CreatedAt
			found = true
		}
	}
	return latest, found
}
