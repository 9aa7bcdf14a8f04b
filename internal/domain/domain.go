package domain

import (
	"time"
)

// IndicatorID names one tracked market indicator. Identities are immutable
// for the process lifetime; the catalog in indicators.go is the only source.
type IndicatorID string

const (
	IndicatorBullBearSpread IndicatorID = "bofa_bull_bear"
	IndicatorFearGreed      IndicatorID = "cnn_fear_greed_index"
	IndicatorPutCall        IndicatorID = "cnn_put_call_options"
	IndicatorVIX            IndicatorID = "vix"
	IndicatorSP500RSI       IndicatorID = "sp500_rsi"
	IndicatorSP500PE        IndicatorID = "sp500_pe_ratio"
	IndicatorNasdaq100PE    IndicatorID = "nasdaq100_pe_ratio"
	IndicatorNasdaqBreadth  IndicatorID = "nasdaq100_above_20d_ma"
	IndicatorHighYieldOAS   IndicatorID = "us_high_yield_spread"
)

// Observation is one stored data point for an indicator. AsOf is the date
// the value is valid for (a daily close fetched intraday keeps the close
// date); FetchedAt is when the provider call happened. (IndicatorID, AsOf)
// is the storage key: a later fetch for the same AsOf overwrites.
type Observation struct {
	IndicatorID IndicatorID       `json:"indicator_id"`
	AsOf        time.Time         `json:"as_of"`
	Value       float64           `json:"value"`
	Unit        string            `json:"unit"`
	Source      string            `json:"source"`
	Meta        map[string]string `json:"meta,omitempty"`
	FetchedAt   time.Time         `json:"fetched_at"`
}

type SignalClass string

const (
	SignalTop     SignalClass = "top"
	SignalBottom  SignalClass = "bottom"
	SignalNeutral SignalClass = "neutral"
)

// Signal is derived on read from the latest observation plus history.
// It is never stored as ground truth; the redis cache is invalidated on
// every successful ingestion commit.
type Signal struct {
	IndicatorID IndicatorID `json:"indicator_id"`
	Title       string      `json:"title"`
	Class       SignalClass `json:"class"`
	Value       float64     `json:"value"`
	Unit        string      `json:"unit"`
	AsOf        time.Time   `json:"as_of"`
	Threshold   string      `json:"threshold"`
	Detail      string      `json:"detail"`
	// Percentile is the inclusive rank of Value in trailing history,
	// present only for percentile-capable rules with enough history.
	Percentile *float64 `json:"percentile,omitempty"`
	// Stale marks a last-known-good value whose AsOf is older than the
	// indicator's freshness window. The indicator stays in the output.
	Stale bool `json:"stale"`
	// InsufficientHistory is set when a percentile rule could not run
	// because the trailing window is shorter than the rule minimum.
	InsufficientHistory bool `json:"insufficient_history,omitempty"`
}

// ProviderReport is one provider's outcome within an ingestion run.
type ProviderReport struct {
	Provider     string            `json:"provider"`
	Succeeded    bool              `json:"succeeded"`
	Observations int               `json:"observations"`
	Error        string            `json:"error,omitempty"`
	ErrorKind    ProviderErrorKind `json:"error_kind,omitempty"`
	Duration     time.Duration     `json:"duration"`
}

// IngestionReport summarizes one pipeline run. A failed provider never
// hides the others: every resolved provider gets exactly one entry.
type IngestionReport struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Providers  []ProviderReport `json:"providers"`
}

func (r IngestionReport) Succeeded() int {
	n := 0
	for _, p := range r.Providers {
		if p.Succeeded {
			n++
		}
	}
	return n
}

func (r IngestionReport) ObservationsWritten() int {
	n := 0
	for _, p := range r.Providers {
		if p.Succeeded {
			n += p.Observations
		}
	}
	return n
}
