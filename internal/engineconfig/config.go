package engineconfig

import "github.com/wonny/carewatch/internal/contracts"

// Config holds every tunable threshold of the assessment engine.
// The numbers are operational defaults, not validated clinical cutoffs.
type Config struct {
	Meta    Meta         `yaml:"meta" json:"meta"`
	Window  Window       `yaml:"window" json:"window"`
	Trends  Trends       `yaml:"trends" json:"trends"`
	Scoring Scoring      `yaml:"scoring" json:"scoring"`
	Status  StatusRules  `yaml:"status" json:"status"`
	Vitals  VitalsRanges `yaml:"vitals" json:"vitals"`
	Alerts  AlertRules   `yaml:"alerts" json:"alerts"`
	Bands   Bands        `yaml:"bands" json:"bands"`
}

// Meta identifies the threshold set
type Meta struct {
	EngineID string `yaml:"engine_id" json:"engine_id"`
	Version  string `yaml:"version" json:"version"`
}

// Window S1: lookback span and the minimum number of logged days
type Window struct {
	LookbackDays int `yaml:"lookback_days" json:"lookback_days"`
	MinDays      int `yaml:"min_days" json:"min_days"`
}

// Trends S2: noise threshold per metric, in the metric's own units
type Trends struct {
	Thresholds TrendThresholds `yaml:"thresholds" json:"thresholds"`
}

type TrendThresholds struct {
	Wellness      float64 `yaml:"wellness" json:"wellness"`             // 0-10 scale
	Adherence     float64 `yaml:"adherence" json:"adherence"`           // percentage points
	Mood          float64 `yaml:"mood" json:"mood"`                     // 0-3 ordinal
	SymptomBurden float64 `yaml:"symptom_burden" json:"symptom_burden"` // severity points
}

// For returns the threshold of metric m
func (t TrendThresholds) For(m contracts.Metric) float64 {
	switch m {
	case contracts.MetricWellness:
		return t.Wellness
	case contracts.MetricAdherence:
		return t.Adherence
	case contracts.MetricMood:
		return t.Mood
	case contracts.MetricSymptomBurden:
		return t.SymptomBurden
	default:
		return 0
	}
}

// Scoring S3: composite weights
type Scoring struct {
	Weights            ScoreWeights `yaml:"weights" json:"weights"`
	SymptomBurdenFloor float64      `yaml:"symptom_burden_floor" json:"symptom_burden_floor"` // burden at which the symptom factor reaches 0
}

type ScoreWeights struct {
	Wellness  float64 `yaml:"wellness" json:"wellness"`
	Adherence float64 `yaml:"adherence" json:"adherence"`
	Mood      float64 `yaml:"mood" json:"mood"`
	Symptom   float64 `yaml:"symptom" json:"symptom"`
}

// Sum of all weights (must be 1.0)
func (w ScoreWeights) Sum() float64 {
	return w.Wellness + w.Adherence + w.Mood + w.Symptom
}

// StatusRules S3: score bands and critical overrides
type StatusRules struct {
	CriticalScoreBelow      int `yaml:"critical_score_below" json:"critical_score_below"`
	ImprovingScoreMin       int `yaml:"improving_score_min" json:"improving_score_min"`
	ConcerningScoreMin      int `yaml:"concerning_score_min" json:"concerning_score_min"`
	ConcerningScoreMax      int `yaml:"concerning_score_max" json:"concerning_score_max"`
	CriticalSymptomSeverity int `yaml:"critical_symptom_severity" json:"critical_symptom_severity"`
	RecentDays              int `yaml:"recent_days" json:"recent_days"` // override lookback, counted back from AsOf
}

// Range is a safe interval; a nil bound is unbounded
type Range struct {
	Min *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Contains reports whether v lies inside the safe interval (bounds inclusive)
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// VitalsRanges holds the safe range of each vital sign. Weight has none.
type VitalsRanges struct {
	Temperature      Range `yaml:"temperature" json:"temperature"`
	Systolic         Range `yaml:"systolic" json:"systolic"`
	Diastolic        Range `yaml:"diastolic" json:"diastolic"`
	HeartRate        Range `yaml:"heart_rate" json:"heart_rate"`
	RespiratoryRate  Range `yaml:"respiratory_rate" json:"respiratory_rate"`
	OxygenSaturation Range `yaml:"oxygen_saturation" json:"oxygen_saturation"`
}

// AlertRules S4
type AlertRules struct {
	SymptomSeverityCritical int     `yaml:"symptom_severity_critical" json:"symptom_severity_critical"`
	AdherenceDropPct        float64 `yaml:"adherence_drop_pct" json:"adherence_drop_pct"` // day-over-day drop strictly above this
}

// Bands are the display buckets carried on the assessment
type Bands struct {
	ScoreGoodMin            int     `yaml:"score_good_min" json:"score_good_min"`
	ScoreFairMin            int     `yaml:"score_fair_min" json:"score_fair_min"`
	AdherenceExcellentAbove float64 `yaml:"adherence_excellent_above" json:"adherence_excellent_above"`
	AdherenceGoodAbove      float64 `yaml:"adherence_good_above" json:"adherence_good_above"`
}

// ScoreBand buckets score
func (b Bands) ScoreBand(score int) contracts.ScoreBand {
	switch {
	case score >= b.ScoreGoodMin:
		return contracts.ScoreBandGood
	case score >= b.ScoreFairMin:
		return contracts.ScoreBandFair
	default:
		return contracts.ScoreBandPoor
	}
}

// AdherenceRating buckets an adherence percentage
func (b Bands) AdherenceRating(percent float64) contracts.AdherenceRating {
	switch {
	case percent > b.AdherenceExcellentAbove:
		return contracts.AdherenceExcellent
	case percent > b.AdherenceGoodAbove:
		return contracts.AdherenceGood
	default:
		return contracts.AdherenceNeedsImprovement
	}
}

func bound(v float64) *float64 {
	return &v
}

// Default returns the built-in threshold set
func Default() *Config {
	return &Config{
		Meta: Meta{
			EngineID: "recovery",
			Version:  "v1",
		},
		Window: Window{
			LookbackDays: 7,
			MinDays:      2,
		},
		Trends: Trends{
			Thresholds: TrendThresholds{
				Wellness:      1,
				Adherence:     10,
				Mood:          1,
				SymptomBurden: 2,
			},
		},
		Scoring: Scoring{
			Weights: ScoreWeights{
				Wellness:  0.4,
				Adherence: 0.3,
				Mood:      0.2,
				Symptom:   0.1,
			},
			SymptomBurdenFloor: 20,
		},
		Status: StatusRules{
			CriticalScoreBelow:      30,
			ImprovingScoreMin:       75,
			ConcerningScoreMin:      30,
			ConcerningScoreMax:      49,
			CriticalSymptomSeverity: 9,
			RecentDays:              2,
		},
		Vitals: VitalsRanges{
			Temperature:      Range{Min: bound(35.0), Max: bound(39.5)},
			Systolic:         Range{Min: bound(90), Max: bound(180)},
			Diastolic:        Range{Min: bound(50), Max: bound(120)},
			HeartRate:        Range{Min: bound(45), Max: bound(120)},
			RespiratoryRate:  Range{Min: bound(8), Max: bound(30)},
			OxygenSaturation: Range{Min: bound(92)},
		},
		Alerts: AlertRules{
			SymptomSeverityCritical: 8,
			AdherenceDropPct:        25,
		},
		Bands: Bands{
			ScoreGoodMin:            75,
			ScoreFairMin:            50,
			AdherenceExcellentAbove: 90,
			AdherenceGoodAbove:      70,
		},
	}
}
