package engineconfig

import (
	"fmt"
	"math"
)

// ValidationError is a hard constraint violation; the config is unusable
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a recommended constraint violation
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.EngineID == "" {
		return ValidationError{"meta.engine_id", "required"}
	}

	// === Window ===
	if cfg.Window.MinDays < 2 {
		return ValidationError{"window.min_days", "must be >= 2 (a trend needs two points)"}
	}
	if cfg.Window.LookbackDays < cfg.Window.MinDays {
		return ValidationError{"window.lookback_days", fmt.Sprintf("must be >= min_days=%d", cfg.Window.MinDays)}
	}

	// === Trends ===
	th := cfg.Trends.Thresholds
	for _, t := range []struct {
		field string
		value float64
	}{
		{"trends.thresholds.wellness", th.Wellness},
		{"trends.thresholds.adherence", th.Adherence},
		{"trends.thresholds.mood", th.Mood},
		{"trends.thresholds.symptom_burden", th.SymptomBurden},
	} {
		if t.value < 0 {
			return ValidationError{t.field, "must be >= 0"}
		}
	}

	// === Scoring ===
	w := cfg.Scoring.Weights
	if w.Wellness < 0 || w.Adherence < 0 || w.Mood < 0 || w.Symptom < 0 {
		return ValidationError{"scoring.weights", "must all be >= 0"}
	}
	if math.Abs(w.Sum()-1.0) > 1e-6 {
		return ValidationError{"scoring.weights", fmt.Sprintf("must sum to 1.0, got %.6f", w.Sum())}
	}
	if cfg.Scoring.SymptomBurdenFloor <= 0 {
		return ValidationError{"scoring.symptom_burden_floor", "must be > 0"}
	}

	// === Status ===
	s := cfg.Status
	if s.CriticalScoreBelow < 0 || s.ImprovingScoreMin > 100 {
		return ValidationError{"status", "score bands must lie within 0..100"}
	}
	if s.ConcerningScoreMin > s.ConcerningScoreMax {
		return ValidationError{"status", "concerning_score_min must be <= concerning_score_max"}
	}
	if s.ConcerningScoreMax >= s.ImprovingScoreMin {
		return ValidationError{"status", "concerning_score_max must be < improving_score_min"}
	}
	if s.CriticalScoreBelow > s.ImprovingScoreMin {
		return ValidationError{"status", "critical_score_below must be <= improving_score_min"}
	}
	if s.CriticalSymptomSeverity < 0 || s.CriticalSymptomSeverity > 10 {
		return ValidationError{"status.critical_symptom_severity", "must be within 0..10"}
	}
	if s.RecentDays < 1 || s.RecentDays > cfg.Window.LookbackDays {
		return ValidationError{"status.recent_days", "must be within 1..window.lookback_days"}
	}

	// === Vitals ===
	for _, v := range []struct {
		field string
		safe  Range
	}{
		{"vitals.temperature", cfg.Vitals.Temperature},
		{"vitals.systolic", cfg.Vitals.Systolic},
		{"vitals.diastolic", cfg.Vitals.Diastolic},
		{"vitals.heart_rate", cfg.Vitals.HeartRate},
		{"vitals.respiratory_rate", cfg.Vitals.RespiratoryRate},
		{"vitals.oxygen_saturation", cfg.Vitals.OxygenSaturation},
	} {
		if v.safe.Min != nil && v.safe.Max != nil && *v.safe.Min > *v.safe.Max {
			return ValidationError{v.field, "min must be <= max"}
		}
	}

	// === Alerts ===
	if cfg.Alerts.SymptomSeverityCritical < 0 || cfg.Alerts.SymptomSeverityCritical > 10 {
		return ValidationError{"alerts.symptom_severity_critical", "must be within 0..10"}
	}
	if cfg.Alerts.AdherenceDropPct <= 0 || cfg.Alerts.AdherenceDropPct > 100 {
		return ValidationError{"alerts.adherence_drop_pct", "must be within (0, 100]"}
	}

	// === Bands ===
	b := cfg.Bands
	if b.ScoreFairMin > b.ScoreGoodMin {
		return ValidationError{"bands", "score_fair_min must be <= score_good_min"}
	}
	if b.AdherenceGoodAbove > b.AdherenceExcellentAbove {
		return ValidationError{"bands", "adherence_good_above must be <= adherence_excellent_above"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Alerts.SymptomSeverityCritical > cfg.Status.CriticalSymptomSeverity {
		warnings = append(warnings, Warning{
			Code:    "ALERT_LESS_SENSITIVE_THAN_STATUS",
			Message: "a symptom can make the status critical without raising a critical alert",
		})
	}

	if cfg.Window.LookbackDays > 30 {
		warnings = append(warnings, Warning{
			Code:    "LONG_LOOKBACK",
			Message: "lookback over 30 days dilutes endpoint trends",
		})
	}

	if cfg.Window.MinDays == cfg.Window.LookbackDays {
		warnings = append(warnings, Warning{
			Code:    "NO_GAP_TOLERANCE",
			Message: "min_days equals lookback_days: a single missed log makes the window insufficient",
		})
	}

	if cfg.Vitals.OxygenSaturation.Min == nil {
		warnings = append(warnings, Warning{
			Code:    "NO_SPO2_FLOOR",
			Message: "oxygen saturation has no lower bound",
		})
	}

	return warnings
}
