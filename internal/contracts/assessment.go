package contracts

import "time"

// Status is the overall recovery classification
type Status string

const (
	StatusImproving  Status = "improving"
	StatusStable     Status = "stable"
	StatusConcerning Status = "concerning"
	StatusCritical   Status = "critical"
)

// Rank orders statuses by severity: critical 3, concerning 2, stable 1, improving 0
func (s Status) Rank() int {
	switch s {
	case StatusCritical:
		return 3
	case StatusConcerning:
		return 2
	case StatusStable:
		return 1
	default:
		return 0
	}
}

// NeedsAttention reports whether the patient belongs on the clinician's attention list
func (s Status) NeedsAttention() bool {
	return s == StatusConcerning || s == StatusCritical
}

// Metric names a normalized signal
type Metric string

const (
	MetricWellness      Metric = "wellness" // 10 - pain level
	MetricAdherence     Metric = "adherence"
	MetricMood          Metric = "mood"
	MetricSymptomBurden Metric = "symptom_burden"
)

// Metrics lists every trended metric in report order
var Metrics = []Metric{MetricWellness, MetricAdherence, MetricMood, MetricSymptomBurden}

// HigherIsBetter reports the improvement direction of the metric
func (m Metric) HigherIsBetter() bool {
	return m != MetricSymptomBurden
}

// Direction of a trend over the window
type Direction string

const (
	DirectionImproving Direction = "improving"
	DirectionStable    Direction = "stable"
	DirectionWorsening Direction = "worsening"
)

// Trend is the classified direction of one metric across the window
type Trend struct {
	Metric    Metric    `json:"metric"`
	Direction Direction `json:"direction"`
	First     float64   `json:"first"`
	Last      float64   `json:"last"`
	Delta     float64   `json:"delta"`     // last - first
	Magnitude float64   `json:"magnitude"` // |last - first|
	Range     float64   `json:"range"`     // max - min
	Threshold float64   `json:"threshold"`
	Points    int       `json:"points"` // present data points; gaps excluded

	// CountDelta is only set for symptom_burden: symptoms on the last logged
	// day minus symptoms on the first logged day.
	CountDelta int `json:"count_delta,omitempty"`
}

// SignificantlyWorse reports a worsening larger than the metric's noise threshold
func (t Trend) SignificantlyWorse() bool {
	return t.Direction == DirectionWorsening && t.Magnitude > t.Threshold
}

// ScoreBand buckets the score for display
type ScoreBand string

const (
	ScoreBandGood ScoreBand = "good"
	ScoreBandFair ScoreBand = "fair"
	ScoreBandPoor ScoreBand = "poor"
)

// VitalsStatus summarizes the most recent vitals in the window
type VitalsStatus string

const (
	VitalsNormal   VitalsStatus = "normal"
	VitalsAbnormal VitalsStatus = "abnormal"
	VitalsUnknown  VitalsStatus = "unknown"
)

// WindowSummary describes the span of history an assessment was computed from
type WindowSummary struct {
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Days        int         `json:"days"`
	LoggedDays  int         `json:"logged_days"`
	MissingDays []time.Time `json:"missing_days,omitempty"`
}

// RecoveryAssessment is the engine output for one patient.
// It is built once per invocation and never mutated afterwards.
type RecoveryAssessment struct {
	PatientID       string                `json:"patient_id"`
	AsOf            time.Time             `json:"as_of"`
	Score           int                   `json:"score"`
	Status          Status                `json:"status"`
	ScoreBand       ScoreBand             `json:"score_band"`
	AdherenceRating AdherenceRating       `json:"adherence_rating"`
	VitalsStatus    VitalsStatus          `json:"vitals_status"`
	Trends          []Trend               `json:"trends"`
	Alerts          []Alert               `json:"alerts"`
	Recommendations []string              `json:"recommendations"`
	Window          WindowSummary         `json:"window"`
	Rejected        []MalformedEntryError `json:"rejected,omitempty"`
	ConfigHash      string                `json:"config_hash"`
}

// Trend returns the trend for metric m
func (a *RecoveryAssessment) Trend(m Metric) (Trend, bool) {
	for _, t := range a.Trends {
		if t.Metric == m {
			return t, true
		}
	}
	return Trend{}, false
}
