package s4_alerts

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engineconfig"
	"github.com/wonny/carewatch/internal/s1_normalize"
)

// alertNamespace roots the name-based alert IDs
var alertNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:carewatch:alert"))

// AlertID is the deterministic id of the alert for (patient, source, day)
func AlertID(patientID string, source contracts.SourceMetric, day time.Time) string {
	name := fmt.Sprintf("%s|%s|%s", patientID, source, day.Format("2006-01-02"))
	return uuid.NewSHA1(alertNamespace, []byte(name)).String()
}

// Generator implements S4. Rules run independently of the status.
type Generator struct {
	rules engineconfig.AlertRules
}

// New creates a generator for the given thresholds
func New(cfg *engineconfig.Config) *Generator {
	return &Generator{rules: cfg.Alerts}
}

type key struct {
	day    time.Time
	source contracts.SourceMetric
}

// Generate evaluates every day of the window. At most one alert is kept per
// (day, source), the most severe; output is newest first, then by severity
// and source.
func (g *Generator) Generate(table *s1_normalize.Table) []contracts.Alert {
	byKey := make(map[key]contracts.Alert)
	emit := func(a contracts.Alert) {
		a.PatientID = table.PatientID
		a.ID = AlertID(table.PatientID, a.SourceMetric, a.CreatedAt)
		k := key{a.CreatedAt, a.SourceMetric}
		if cur, ok := byKey[k]; ok && cur.Severity.Rank() >= a.Severity.Rank() {
			return
		}
		byKey[k] = a
	}

	for i, d := range table.Days {
		if d.HasLog {
			if a, ok := g.symptomAlert(d); ok {
				emit(a)
			}
			if a, ok := vitalsAlert(d); ok {
				emit(a)
			}
		}
		if i > 0 {
			if a, ok := g.adherenceDropAlert(table.Days[i-1], d); ok {
				emit(a)
			}
		}
		if d.Date.Equal(table.AsOf) {
			if a, ok := missedDoseAlert(d); ok {
				emit(a)
			}
		}
	}

	alerts := make([]contracts.Alert, 0, len(byKey))
	for _, a := range byKey {
		alerts = append(alerts, a)
	}
	sort.Slice(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		return a.SourceMetric < b.SourceMetric
	})

	return alerts
}

func (g *Generator) symptomAlert(d s1_normalize.Day) (contracts.Alert, bool) {
	if d.SymptomCount == 0 || d.MaxSeverity < g.rules.SymptomSeverityCritical {
		return contracts.Alert{}, false
	}

	severe := 0
	for _, s := range d.Entry.Symptoms {
		if s.Severity >= g.rules.SymptomSeverityCritical {
			severe++
		}
	}

	msg := fmt.Sprintf("Severe symptom reported: %s (severity %d/10, %s)", d.TopSymptom, d.MaxSeverity, contracts.LevelOf(d.MaxSeverity))
	if severe > 1 {
		msg += fmt.Sprintf(" and %d more", severe-1)
	}

	return contracts.Alert{
		Severity:     contracts.SeverityCritical,
		Message:      msg,
		CreatedAt:    d.Date,
		SourceMetric: contracts.SourceSymptom,
	}, true
}

func vitalsAlert(d s1_normalize.Day) (contracts.Alert, bool) {
	if len(d.VitalsFindings) == 0 {
		return contracts.Alert{}, false
	}

	parts := make([]string, 0, len(d.VitalsFindings))
	for _, f := range d.VitalsFindings {
		parts = append(parts, f.String())
	}

	return contracts.Alert{
		Severity:     contracts.SeverityCritical,
		Message:      "Vital signs out of range: " + strings.Join(parts, "; "),
		CreatedAt:    d.Date,
		SourceMetric: contracts.SourceVitals,
	}, true
}

// adherenceDropAlert compares against the previous calendar day only
func (g *Generator) adherenceDropAlert(prev, d s1_normalize.Day) (contracts.Alert, bool) {
	if !prev.HasAdherence || !d.HasAdherence {
		return contracts.Alert{}, false
	}
	drop := prev.Adherence - d.Adherence
	if drop <= g.rules.AdherenceDropPct {
		return contracts.Alert{}, false
	}

	return contracts.Alert{
		Severity:     contracts.SeverityWarning,
		Message:      fmt.Sprintf("Medication adherence dropped from %.0f%% to %.0f%%", prev.Adherence, d.Adherence),
		CreatedAt:    d.Date,
		SourceMetric: contracts.SourceAdherence,
	}, true
}

func missedDoseAlert(d s1_normalize.Day) (contracts.Alert, bool) {
	if !d.HasAdherence || d.MissedDoses == 0 {
		return contracts.Alert{}, false
	}

	return contracts.Alert{
		Severity:     contracts.SeverityInfo,
		Message:      fmt.Sprintf("%d missed dose(s) today", d.MissedDoses),
		CreatedAt:    d.Date,
		SourceMetric: contracts.SourceAdherence,
	}, true
}
