package contracts

import "time"

// CohortMember is one patient's finalized result handed to the ranker
type CohortMember struct {
	PatientID  string              `json:"patient_id"`
	Assessment *RecoveryAssessment `json:"assessment"`
	Alerts     []Alert             `json:"alerts"`
}

// RankedPatient is one row of the monitoring view, Rank is 1-based
type RankedPatient struct {
	Rank           int        `json:"rank"`
	PatientID      string     `json:"patient_id"`
	Score          int        `json:"score"`
	Status         Status     `json:"status"`
	HasCritical    bool       `json:"has_critical"`
	LatestCritical *time.Time `json:"latest_critical,omitempty"`
}

// PatientWindow is the raw history of one patient supplied to a cohort run
type PatientWindow struct {
	PatientID string            `json:"patient_id"`
	Entries   []HealthLogEntry  `json:"entries"`
	Adherence []AdherenceRecord `json:"adherence"`
}

// CohortResult pairs one patient with its assessment or the error that prevented it
type CohortResult struct {
	PatientID  string
	Assessment *RecoveryAssessment
	Err        error
}
