package s2_trends

import (
	"math"

	"github.com/wonny/carewatch/internal/contracts"
	"github.com/wonny/carewatch/internal/engineconfig"
	"github.com/wonny/carewatch/internal/s1_normalize"
)

// Analyzer implements S2: a range-gated endpoint comparison per metric.
// A metric whose range stays within its threshold is stable.
type Analyzer struct {
	thresholds engineconfig.TrendThresholds
}

// New creates an analyzer for the given thresholds
func New(cfg *engineconfig.Config) *Analyzer {
	return &Analyzer{thresholds: cfg.Trends.Thresholds}
}

// Analyze returns one trend per metric in contracts.Metrics order
func (a *Analyzer) Analyze(table *s1_normalize.Table) []contracts.Trend {
	trends := make([]contracts.Trend, 0, len(contracts.Metrics))
	for _, m := range contracts.Metrics {
		trend := a.analyzeMetric(m, table.Days)
		if m == contracts.MetricSymptomBurden {
			trend.CountDelta = countDelta(table.Logged())
		}
		trends = append(trends, trend)
	}
	return trends
}

func (a *Analyzer) analyzeMetric(m contracts.Metric, days []s1_normalize.Day) contracts.Trend {
	trend := contracts.Trend{
		Metric:    m,
		Direction: contracts.DirectionStable,
		Threshold: a.thresholds.For(m),
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range days {
		v, ok := d.Value(m)
		if !ok {
			continue
		}
		if trend.Points == 0 {
			trend.First = v
		}
		trend.Last = v
		trend.Points++
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if trend.Points < 2 {
		return trend
	}

	trend.Delta = trend.Last - trend.First
	trend.Magnitude = math.Abs(trend.Delta)
	trend.Range = hi - lo

	if trend.Range <= trend.Threshold {
		return trend
	}

	better := trend.Delta > 0
	if !m.HigherIsBetter() {
		better = trend.Delta < 0
	}

	switch {
	case trend.Delta == 0:
		// excursion inside the window, same endpoints
	case better:
		trend.Direction = contracts.DirectionImproving
	default:
		trend.Direction = contracts.DirectionWorsening
	}

	return trend
}

func countDelta(logged []s1_normalize.Day) int {
	if len(logged) < 2 {
		return 0
	}
	return logged[len(logged)-1].SymptomCount - logged[0].SymptomCount
}
