package s1_normalize

import (
	"fmt"
	"math"
	"strconv"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engineconfig"
)

// VitalsFinding is one vital sign outside its safe range
type VitalsFinding struct {
	Field string
	Value float64
	Range engineconfig.Range
}

func (f VitalsFinding) String() string {
	switch {
	case f.Range.Min != nil && f.Value < *f.Range.Min:
		return fmt.Sprintf("%s %s (min %s)", f.Field, formatNum(f.Value), formatNum(*f.Range.Min))
	case f.Range.Max != nil:
		return fmt.Sprintf("%s %s (max %s)", f.Field, formatNum(f.Value), formatNum(*f.Range.Max))
	default:
		return fmt.Sprintf("%s %s", f.Field, formatNum(f.Value))
	}
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type vitalReading struct {
	field string
	value *float64
	safe  engineconfig.Range
}

func readings(v *contracts.Vitals, ranges engineconfig.VitalsRanges) []vitalReading {
	var systolic, diastolic *float64
	if v.BloodPressure != nil {
		systolic = &v.BloodPressure.Systolic
		diastolic = &v.BloodPressure.Diastolic
	}
	return []vitalReading{
		{"temperature", v.Temperature, ranges.Temperature},
		{"systolic", systolic, ranges.Systolic},
		{"diastolic", diastolic, ranges.Diastolic},
		{"heart_rate", v.HeartRate, ranges.HeartRate},
		{"respiratory_rate", v.RespiratoryRate, ranges.RespiratoryRate},
		{"oxygen_saturation", v.OxygenSaturation, ranges.OxygenSaturation},
	}
}

// CheckVitals lists the recorded vitals outside their safe range.
// Unrecorded fields are skipped.
func CheckVitals(v *contracts.Vitals, ranges engineconfig.VitalsRanges) []VitalsFinding {
	if v.IsEmpty() {
		return nil
	}

	var findings []VitalsFinding
	for _, r := range readings(v, ranges) {
		if r.value == nil || r.safe.Contains(*r.value) {
			continue
		}
		findings = append(findings, VitalsFinding{Field: r.field, Value: *r.value, Range: r.safe})
	}
	return findings
}

// physical limits; a reading beyond them is a data-entry error, not a finding
var plausible = map[string][2]float64{
	"temperature":       {25, 45},
	"systolic":          {0, 300},
	"diastolic":         {0, 250},
	"heart_rate":        {0, 300},
	"respiratory_rate":  {0, 100},
	"oxygen_saturation": {0, 100},
	"weight":            {1, 700},
}

func checkPlausible(field string, v *float64) *contracts.MalformedEntryError {
	if v == nil {
		return nil
	}
	lim := plausible[field]
	if math.IsNaN(*v) || *v < lim[0] || *v > lim[1] {
		return &contracts.MalformedEntryError{
			Field:  "vitals." + field,
			Value:  formatNum(*v),
			Reason: fmt.Sprintf("must be within %s..%s", formatNum(lim[0]), formatNum(lim[1])),
		}
	}
	return nil
}
