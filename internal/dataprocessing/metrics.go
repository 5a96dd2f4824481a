package dataprocessing

import (
	"math"
	"sort"
	"time"

	"cardash/pkg/contracts/domain"
)

// Default window lengths of the metrics panel
const (
	RecentWindowMonths   = 1
	BaselineWindowMonths = 12
)

// MetricsPanel is the content of the aggregate metrics cards
type MetricsPanel struct {
	Recent   domain.MetricsSnapshot `json:"recent"`
	Baseline domain.MetricsSnapshot `json:"baseline"`
	Cards    []domain.MetricCard    `json:"cards"`
}

// LatestDate returns the maximum transaction date of records
func LatestDate(records []domain.TransactionRecord) (time.Time, bool) {
	var latest time.Time
	for _, r := range records {
		if r.TransactionDate.After(latest) {
			latest = r.TransactionDate
		}
	}
	return latest, len(records) > 0
}

// SubtractMonths moves t back n calendar months. When the target month is
// shorter the day is clamped to its last day, so March 31 minus one month
// is the last day of February.
func SubtractMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m-time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// FilterWindow returns the records dated within [asOf - windowMonths, asOf].
// The lower bound is inclusive.
func FilterWindow(records []domain.TransactionRecord, asOf time.Time, windowMonths int) []domain.TransactionRecord {
	start := SubtractMonths(asOf, windowMonths)
	window := make([]domain.TransactionRecord, 0, len(records))
	for _, r := range records {
		if r.TransactionDate.Before(start) || r.TransactionDate.After(asOf) {
			continue
		}
		window = append(window, r)
	}
	return window
}

// ComputeWindowedMedians returns the per-field medians of the records inside
// the trailing window ending at asOf. A zero asOf anchors the window at the
// latest transaction date. An empty window yields a snapshot with Count zero.
func ComputeWindowedMedians(records []domain.TransactionRecord, asOf time.Time, windowMonths int) domain.MetricsSnapshot {
	snapshot := domain.MetricsSnapshot{
		WindowMonths: windowMonths,
		Medians:      make(map[domain.NumericField]float64),
	}

	if asOf.IsZero() {
		latest, ok := LatestDate(records)
		if !ok {
			return snapshot
		}
		asOf = latest
	}
	snapshot.AsOf = asOf
	snapshot.WindowStart = SubtractMonths(asOf, windowMonths)

	window := FilterWindow(records, asOf, windowMonths)
	snapshot.Count = len(window)
	if len(window) == 0 {
		return snapshot
	}

	values := make([]float64, len(window))
	for _, field := range domain.NumericFields {
		for i, r := range window {
			values[i] = r.Value(field)
		}
		if m, ok := Median(values); ok {
			snapshot.Medians[field] = m
		}
	}
	return snapshot
}

// Median returns the median of values, averaging the two middle values
// for an even count. It reports false for an empty slice.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2, true
	}
	return sorted[n/2], true
}

// PercentChange returns (recent - baseline) / baseline. A zero or NaN
// baseline yields an undefined ratio.
func PercentChange(recent, baseline float64) domain.Ratio {
	if baseline == 0 || math.IsNaN(baseline) || math.IsNaN(recent) {
		return domain.UndefinedRatio()
	}
	return domain.DefinedRatio((recent - baseline) / baseline)
}

// SnapshotChange returns the percent change of field between two snapshots.
// It is undefined when either snapshot lacks the field.
func SnapshotChange(recent, baseline domain.MetricsSnapshot, field domain.NumericField) domain.Ratio {
	r, ok := recent.Median(field)
	if !ok {
		return domain.UndefinedRatio()
	}
	b, ok := baseline.Median(field)
	if !ok {
		return domain.UndefinedRatio()
	}
	return PercentChange(r, b)
}

// BuildMetricsPanel compares the recent window medians with the baseline
// window medians for every numeric field
func BuildMetricsPanel(records []domain.TransactionRecord, recentMonths, baselineMonths int) MetricsPanel {
	panel := MetricsPanel{
		Recent:   ComputeWindowedMedians(records, time.Time{}, recentMonths),
		Baseline: ComputeWindowedMedians(records, time.Time{}, baselineMonths),
		Cards:    make([]domain.MetricCard, 0, len(domain.NumericFields)),
	}

	for _, field := range domain.NumericFields {
		card := domain.MetricCard{
			Field:  field,
			Label:  field.Label(),
			Format: field.Format(),
			Change: SnapshotChange(panel.Recent, panel.Baseline, field),
		}
		if v, ok := panel.Recent.Median(field); ok {
			card.Recent = v
			card.HasValue = true
		}
		if v, ok := panel.Baseline.Median(field); ok {
			card.Baseline = v
		}
		panel.Cards = append(panel.Cards, card)
	}
	return panel
}
