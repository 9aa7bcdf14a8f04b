package signal

import (
	"fmt"
	"sort"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"
)

// Evaluate classifies one observation against its indicator's rule.
// Pure: same inputs give the same signal, no clock, no store. History
// is only consulted by percentile-capable rules; passing nil is fine
// for fixed bands. Staleness is the caller's concern.
func Evaluate(indicator domain.Indicator, current domain.Observation, history []float64) domain.Signal {
	value := NormalizeValue(indicator, current)

	out := domain.Signal{
		IndicatorID: indicator.ID,
		Title:       indicator.Title,
		Class:       domain.SignalNeutral,
		Value:       value,
		Unit:        indicator.Unit,
		AsOf:        current.AsOf,
		Threshold:   describeRule(indicator.Rule),
	}

	rule := indicator.Rule
	switch classifyFixed(rule, value) {
	case domain.SignalTop:
		out.Class = domain.SignalTop
		out.Detail = fmt.Sprintf("%.2f crossed the top band", value)
	case domain.SignalBottom:
		out.Class = domain.SignalBottom
		out.Detail = fmt.Sprintf("%.2f crossed the bottom band", value)
	}

	if rule.Kind != domain.RuleFixedOrPercentile {
		return out
	}

	if len(history) < rule.MinHistory {
		if out.Class == domain.SignalNeutral {
			out.InsufficientHistory = true
			out.Detail = fmt.Sprintf("percentile band skipped: %d of %d required points", len(history), rule.MinHistory)
		}
		return out
	}

	pct := PercentileRank(history, value)
	out.Percentile = &pct
	if out.Class != domain.SignalNeutral {
		return out
	}

	if atOrAbove(pct, rule.TopPercentile, rule.Inclusive) {
		out.Class = domain.SignalTop
		out.Detail = fmt.Sprintf("%.2f sits at the %.0fth percentile of trailing history", value, pct*100)
	} else if atOrBelow(pct, rule.BottomPercentile, rule.Inclusive) {
		out.Class = domain.SignalBottom
		out.Detail = fmt.Sprintf("%.2f sits at the %.0fth percentile of trailing history", value, pct*100)
	}
	return out
}

// NormalizeValue converts an observation into the indicator's canonical
// unit before any comparison. Today that is only the percent-quoted
// credit spread, which moves to basis points.
func NormalizeValue(indicator domain.Indicator, obs domain.Observation) float64 {
	if !indicator.BasisPoints {
		return obs.Value
	}
	// Sources quote the spread either in percent (3.2) or already in bp
	// (320). Anything under 30 cannot be a bp reading for this series.
	if obs.Unit == "percent" || obs.Unit == "%" || obs.Value < 30 {
		return obs.Value * 100
	}
	return obs.Value
}

// PercentileRank is the inclusive rank of value within history:
// count(h <= value) / len(history). History order does not matter.
func PercentileRank(history []float64, value float64) float64 {
	if len(history) == 0 {
		return 0
	}
	n := 0
	for _, h := range history {
		if h <= value {
			n++
		}
	}
	return float64(n) / float64(len(history))
}

func classifyFixed(rule domain.ThresholdRule, value float64) domain.SignalClass {
	if rule.Inverted {
		// Low reading means overheated: top band is below, bottom above.
		if atOrBelow(value, rule.Top, rule.Inclusive) {
			return domain.SignalTop
		}
		if atOrAbove(value, rule.Bottom, rule.Inclusive) {
			return domain.SignalBottom
		}
		return domain.SignalNeutral
	}
	if atOrAbove(value, rule.Top, rule.Inclusive) {
		return domain.SignalTop
	}
	if atOrBelow(value, rule.Bottom, rule.Inclusive) {
		return domain.SignalBottom
	}
	return domain.SignalNeutral
}

func atOrAbove(v, bound float64, inclusive bool) bool {
	if inclusive {
		return v >= bound
	}
	return v > bound
}

func atOrBelow(v, bound float64, inclusive bool) bool {
	if inclusive {
		return v <= bound
	}
	return v < bound
}

func describeRule(rule domain.ThresholdRule) string {
	base := fmt.Sprintf("top >= %.2f, bottom <= %.2f", rule.Top, rule.Bottom)
	if rule.Inverted {
		base = fmt.Sprintf("top <= %.2f, bottom >= %.2f", rule.Top, rule.Bottom)
	}
	if rule.Kind == domain.RuleFixedOrPercentile {
		base += fmt.Sprintf(" or percentile >= %.2f / <= %.2f over %d+ points",
			rule.TopPercentile, rule.BottomPercentile, rule.MinHistory)
	}
	return base
}

// HistoryValues extracts normalized values from stored observations for
// percentile math, oldest first.
func HistoryValues(indicator domain.Indicator, observations []domain.Observation) []float64 {
	if len(observations) == 0 {
		return nil
	}
	sorted := make([]domain.Observation, len(observations))
	copy(sorted, observations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AsOf.Before(sorted[j].AsOf) })

	out := make([]float64, 0, len(sorted))
	for _, obs := range sorted {
		out = append(out, NormalizeValue(indicator, obs))
	}
	return out
}
