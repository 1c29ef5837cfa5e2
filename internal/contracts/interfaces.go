package contracts

import (
	"context"
	"time"
)

// LogStore supplies patients' health-log history.
// Implemented by the external log store adapter (s0_data).
type LogStore interface {
	ListPatients(ctx context.Context) ([]string, error)
	ListEntries(ctx context.Context, patientID string, from, to time.Time) ([]HealthLogEntry, error)
}

// AdherenceSource supplies daily adherence, either from the log store or
// from the medication-schedule service.
type AdherenceSource interface {
	ListAdherence(ctx context.Context, patientID string, from, to time.Time) ([]AdherenceRecord, error)
}
