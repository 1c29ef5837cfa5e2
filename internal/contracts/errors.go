package contracts

import (
	"fmt"
	"time"
)

// InsufficientDataError means the window holds too few valid logged days.
// The caller recovers by supplying more history.
type InsufficientDataError struct {
	PatientID string
	ValidDays int
	Required  int
	Rejected  []MalformedEntryError
}

func (e *InsufficientDataError) Error() string {
	msg := fmt.Sprintf("insufficient data for patient %q: %d valid logged day(s), need %d", e.PatientID, e.ValidDays, e.Required)
	if len(e.Rejected) > 0 {
		msg += fmt.Sprintf(" (%d entries rejected)", len(e.Rejected))
	}
	return msg
}

// MalformedEntryError describes one rejected input record.
// Rejected entries are excluded from the window; the computation continues.
type MalformedEntryError struct {
	EntryID string    `json:"entry_id,omitempty"`
	Date    time.Time `json:"date"`
	Field   string    `json:"field"`
	Value   string    `json:"value"`
	Reason  string    `json:"reason"`
}

func (e MalformedEntryError) Error() string {
	day := "undated"
	if !e.Date.IsZero() {
		day = e.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("malformed entry %s: %s=%s: %s", day, e.Field, e.Value, e.Reason)
}

// EmptyCohortError is returned when ranking receives no assessments
type EmptyCohortError struct{}

func (EmptyCohortError) Error() string {
	return "cannot rank an empty cohort"
}
