package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Sign classifies a ratio for colouring
type Sign int

const (
	SignNeutral Sign = iota
	SignNegative
	SignPositive
)

func (s Sign) String() string {
	switch s {
	case SignNegative:
		return "negative"
	case SignPositive:
		return "positive"
	default:
		return "neutral"
	}
}

// Ratio is the result of a percent change or relative deviation.
// A ratio with a zero or missing denominator is undefined rather than infinite.
type Ratio struct {
	Value   float64
	Defined bool
}

// DefinedRatio wraps a finite value
func DefinedRatio(v float64) Ratio {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return UndefinedRatio()
	}
	return Ratio{Value: v, Defined: true}
}

// UndefinedRatio is the sentinel for a zero or missing baseline
func UndefinedRatio() Ratio {
	return Ratio{}
}

// Sign returns SignNegative for values strictly below zero,
// SignPositive for values strictly above zero and SignNeutral otherwise.
func (r Ratio) Sign() Sign {
	if !r.Defined {
		return SignNeutral
	}
	switch {
	case r.Value < 0:
		return SignNegative
	case r.Value > 0:
		return SignPositive
	default:
		return SignNeutral
	}
}

// MarshalJSON encodes an undefined ratio as null
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// MetricsSnapshot holds per-field medians over a trailing window.
// Count is zero when the window holds no records; Medians is then empty.
type MetricsSnapshot struct {
	AsOf         time.Time                `json:"as_of"`
	WindowStart  time.Time                `json:"window_start"`
	WindowMonths int                      `json:"window_months"`
	Count        int                      `json:"count"`
	Medians      map[NumericField]float64 `json:"-"`
}

// Empty reports whether the window held no records
func (s MetricsSnapshot) Empty() bool {
	return s.Count == 0
}

// Median returns the median of field, false when absent
func (s MetricsSnapshot) Median(field NumericField) (float64, bool) {
	v, ok := s.Medians[field]
	return v, ok
}

// MarshalJSON keys the medians by field key
func (s MetricsSnapshot) MarshalJSON() ([]byte, error) {
	type alias MetricsSnapshot
	medians := make(map[string]float64, len(s.Medians))
	for f, v := range s.Medians {
		medians[f.Key()] = v
	}
	return json.Marshal(struct {
		alias
		Medians map[string]float64 `json:"medians"`
	}{alias: alias(s), Medians: medians})
}

// MetricCard is one entry of the aggregate metrics panel
type MetricCard struct {
	Field    NumericField  `json:"field"`
	Label    string        `json:"label"`
	Format   DisplayFormat `json:"format"`
	Recent   float64       `json:"recent"`
	Baseline float64       `json:"baseline"`
	HasValue bool          `json:"has_value"`
	Change   Ratio         `json:"change"`
}

// DeviationCell is one field deviation of a deviation row
type DeviationCell struct {
	Field     NumericField `json:"field"`
	Value     float64      `json:"value"`
	Deviation Ratio        `json:"deviation"`
	Sign      string       `json:"sign"`
}

// DeviationRow is a record with its per-field relative deviations
type DeviationRow struct {
	RecordIdentity
	Cells []DeviationCell `json:"cells"`
}

// DeviationTable holds relative deviations of every record from baseline medians
type DeviationTable struct {
	Baseline MetricsSnapshot `json:"baseline"`
	Fields   []NumericField  `json:"fields"`
	Rows     []DeviationRow  `json:"rows"`
}
