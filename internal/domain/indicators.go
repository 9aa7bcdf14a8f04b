package domain

import (
	"fmt"
	"time"
)

type RuleKind string

const (
	// RuleFixedBand classifies against two fixed numeric thresholds.
	RuleFixedBand RuleKind = "fixed"
	// RuleFixedOrPercentile triggers on the fixed band or on the value's
	// percentile rank within trailing stored history, whichever fires.
	RuleFixedOrPercentile RuleKind = "fixed_or_percentile"
)

// ThresholdRule is the declarative classification rule an indicator
// carries. Inverted flips the comparison direction for indicators where a
// low reading means overheating (VIX, put/call, credit spreads).
// Inclusive controls tie-breaks at exact boundaries; all nine catalog
// rules resolve ties toward the signal, but the flag is per rule so a
// single indicator can be tightened without touching the evaluator.
type ThresholdRule struct {
	Kind      RuleKind
	Top       float64
	Bottom    float64
	Inverted  bool
	Inclusive bool

	// Percentile band, used only by RuleFixedOrPercentile.
	TopPercentile    float64
	BottomPercentile float64
	MinHistory       int
}

func (r ThresholdRule) Validate() error {
	switch r.Kind {
	case RuleFixedBand:
	case RuleFixedOrPercentile:
		if r.TopPercentile <= r.BottomPercentile {
			return fmt.Errorf("%w: top percentile %.2f must exceed bottom %.2f",
				ErrInvalidThresholdRule, r.TopPercentile, r.BottomPercentile)
		}
		if r.TopPercentile > 1 || r.BottomPercentile < 0 {
			return fmt.Errorf("%w: percentiles must be within [0,1]", ErrInvalidThresholdRule)
		}
		if r.MinHistory <= 0 {
			return fmt.Errorf("%w: percentile rule needs a positive minimum history", ErrInvalidThresholdRule)
		}
	default:
		return fmt.Errorf("%w: unknown rule kind %q", ErrInvalidThresholdRule, r.Kind)
	}
	if !r.Inverted && r.Top <= r.Bottom {
		return fmt.Errorf("%w: top %.2f must exceed bottom %.2f", ErrInvalidThresholdRule, r.Top, r.Bottom)
	}
	if r.Inverted && r.Top >= r.Bottom {
		return fmt.Errorf("%w: inverted top %.2f must be below bottom %.2f", ErrInvalidThresholdRule, r.Top, r.Bottom)
	}
	return nil
}

// Indicator is a catalog entry: identity, display metadata, the
// classification rule, and the freshness window after which its latest
// observation is reported as stale.
type Indicator struct {
	ID         IndicatorID
	Title      string
	Unit       string
	Rule       ThresholdRule
	StaleAfter time.Duration
	// BasisPoints indicates values may arrive as percent and must be
	// normalized x100 before threshold comparison (HY OAS only).
	BasisPoints bool
}

const (
	dailyStale  = 5 * 24 * time.Hour
	weeklyStale = 10 * 24 * time.Hour
)

var indicatorCatalog = []Indicator{
	{
		ID:         IndicatorBullBearSpread,
		Title:      "Investor Sentiment Bull-Bear Spread",
		Unit:       "%",
		Rule:       ThresholdRule{Kind: RuleFixedBand, Top: 20, Bottom: -20, Inclusive: true},
		StaleAfter: weeklyStale,
	},
	{
		ID:         IndicatorFearGreed,
		Title:      "Fear & Greed Index",
		Unit:       "0-100",
		Rule:       ThresholdRule{Kind: RuleFixedBand, Top: 75, Bottom: 25, Inclusive: true},
		StaleAfter: dailyStale,
	},
	{
		ID:         IndicatorPutCall,
		Title:      "Put/Call Ratio (5-Day Average)",
		Unit:       "ratio",
		Rule:       ThresholdRule{Kind: RuleFixedBand, Top: 0.60, Bottom: 0.80, Inverted: true, Inclusive: true},
		StaleAfter: dailyStale,
	},
	{
		ID:         IndicatorVIX,
		Title:      "S&P 500 Volatility Index",
		Unit:       "index",
		Rule:       ThresholdRule{Kind: RuleFixedBand, Top: 14, Bottom: 25, Inverted: true, Inclusive: true},
		StaleAfter: dailyStale,
	},
	{
		ID:         IndicatorSP500RSI,
		Title:      "S&P 500 Relative Strength Index",
		Unit:       "0-100",
		Rule:       ThresholdRule{Kind: RuleFixedBand, Top: 70, Bottom: 30, Inclusive: true},
		StaleAfter: dailyStale,
	},
	{
		ID:    IndicatorSP500PE,
		Title: "S&P 500 Price-to-Earnings Ratio",
		Unit:  "x",
		Rule: ThresholdRule{
			Kind: RuleFixedOrPercentile, Top: 32, Bottom: 22, Inclusive: true,
			TopPercentile: 0.90, BottomPercentile: 0.10, MinHistory: 20,
		},
		StaleAfter: dailyStale,
	},
	{
		ID:         IndicatorNasdaq100PE,
		Title:      "Nasdaq 100 Price-to-Earnings Ratio",
		Unit:       "x",
		Rule:       ThresholdRule{Kind: RuleFixedBand, Top: 35, Bottom: 28, Inclusive: true},
		StaleAfter: dailyStale,
	},
	{
		ID:         IndicatorNasdaqBreadth,
		Title:      "Nasdaq 100 Stocks Above 20-Day Moving Average",
		Unit:       "%",
		Rule:       ThresholdRule{Kind: RuleFixedBand, Top: 80, Bottom: 20, Inclusive: true},
		StaleAfter: dailyStale,
	},
	{
		ID:          IndicatorHighYieldOAS,
		Title:       "US High Yield Option-Adjusted Spread",
		Unit:        "bp",
		Rule:        ThresholdRule{Kind: RuleFixedBand, Top: 280, Bottom: 450, Inverted: true, Inclusive: true},
		StaleAfter:  dailyStale,
		BasisPoints: true,
	},
}

var indicatorByID = func() map[IndicatorID]Indicator {
	m := make(map[IndicatorID]Indicator, len(indicatorCatalog))
	for _, ind := range indicatorCatalog {
		m[ind.ID] = ind
	}
	return m
}()

// Indicators returns the full catalog in display order.
func Indicators() []Indicator {
	out := make([]Indicator, len(indicatorCatalog))
	copy(out, indicatorCatalog)
	return out
}

func IndicatorByID(id IndicatorID) (Indicator, bool) {
	ind, ok := indicatorByID[id]
	return ind, ok
}

func KnownIndicator(id IndicatorID) bool {
	_, ok := indicatorByID[id]
	return ok
}

// ValidateCatalog is run once at startup; a malformed rule is fatal.
func ValidateCatalog() error {
	for _, ind := range indicatorCatalog {
		if err := ind.Rule.Validate(); err != nil {
			return fmt.Errorf("indicator %s: %w", ind.ID, err)
		}
	}
	return nil
}
