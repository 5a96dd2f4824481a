package dataprocessing

import (
	"sort"
	"strings"
	"time"

	"cardash/pkg/contracts/domain"
)

// UnbucketedLabel is the engine bucket of displacements outside (0, 5000]
const UnbucketedLabel = "unbucketed"

type engineBucket struct {
	upper int
	label string
}

// engineBuckets are right-closed bins ordered by upper bound
var engineBuckets = []engineBucket{
	{800, "(0,800]"},
	{1000, "(800,1000]"},
	{1400, "(1000,1400]"},
	{1600, "(1400,1600]"},
	{2000, "(1600,2000]"},
	{3000, "(2000,3000]"},
	{5000, "(3000,5000]"},
}

// EngineBucketLabels returns the bucket labels in ascending order followed by
// UnbucketedLabel
func EngineBucketLabels() []string {
	labels := make([]string, 0, len(engineBuckets)+1)
	for _, b := range engineBuckets {
		labels = append(labels, b.label)
	}
	return append(labels, UnbucketedLabel)
}

// EngineSizeBucket returns the displacement bin of cc
func EngineSizeBucket(cc int) string {
	if cc <= 0 {
		return UnbucketedLabel
	}
	for _, b := range engineBuckets {
		if cc <= b.upper {
			return b.label
		}
	}
	return UnbucketedLabel
}

// BrandFrequency counts transactions per brand, ordered by descending count.
// Brands with equal counts keep the order in which they first appear.
func BrandFrequency(records []domain.TransactionRecord) []domain.BrandCount {
	index := make(map[string]int)
	var table []domain.BrandCount
	for _, r := range records {
		i, ok := index[r.CarBrand]
		if !ok {
			i = len(table)
			index[r.CarBrand] = i
			table = append(table, domain.BrandCount{Brand: r.CarBrand})
		}
		table[i].Count++
	}

	sort.SliceStable(table, func(i, j int) bool {
		return table[i].Count > table[j].Count
	})
	return table
}

// TopNBrands returns the first n entries of a frequency table. It returns
// every entry when the table is shorter and nothing for n <= 0.
func TopNBrands(table []domain.BrandCount, n int) []domain.BrandCount {
	if n <= 0 {
		return []domain.BrandCount{}
	}
	if n > len(table) {
		n = len(table)
	}
	top := make([]domain.BrandCount, n)
	copy(top, table[:n])
	return top
}

// FindBrand returns the canonical spelling of brand from records, matching
// case-insensitively
func FindBrand(records []domain.TransactionRecord, brand string) (string, bool) {
	brand = strings.TrimSpace(brand)
	for _, r := range records {
		if strings.EqualFold(r.CarBrand, brand) {
			return r.CarBrand, true
		}
	}
	return "", false
}

// FilterBrand returns the records of one brand
func FilterBrand(records []domain.TransactionRecord, brand string) []domain.TransactionRecord {
	var out []domain.TransactionRecord
	for _, r := range records {
		if r.CarBrand == brand {
			out = append(out, r)
		}
	}
	return out
}

// TransactionsPerMonth counts transactions per calendar month in
// chronological order. Months without transactions are omitted.
func TransactionsPerMonth(records []domain.TransactionRecord) []domain.MonthCount {
	counts := make(map[time.Time]int)
	for _, r := range records {
		y, m, _ := r.TransactionDate.Date()
		counts[time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)]++
	}

	months := make([]domain.MonthCount, 0, len(counts))
	for month, count := range counts {
		months = append(months, domain.MonthCount{Month: month, Count: count})
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Month.Before(months[j].Month)
	})
	return months
}

// ScatterPoints projects every record onto the age/mileage chart
func ScatterPoints(records []domain.TransactionRecord) []domain.ScatterPoint {
	points := make([]domain.ScatterPoint, 0, len(records))
	for _, r := range records {
		points = append(points, domain.ScatterPoint{
			Brand:          r.CarBrand,
			Age:            r.Age,
			MileageKM:      r.MileageKM,
			ReferencePrice: r.ReferencePrice,
			EngineBucket:   EngineSizeBucket(r.DisplacementCC),
		})
	}
	return points
}

// BucketCounts counts records per engine bucket in bucket order. Empty
// buckets are reported with a zero count.
func BucketCounts(records []domain.TransactionRecord) []domain.BucketCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[EngineSizeBucket(r.DisplacementCC)]++
	}

	labels := EngineBucketLabels()
	out := make([]domain.BucketCount, 0, len(labels))
	for _, label := range labels {
		out = append(out, domain.BucketCount{Bucket: label, Count: counts[label]})
	}
	return out
}

// ColorBreakdown returns the exterior colour distribution of one brand with
// shares normalised to the brand's transaction count. Colours are ordered by
// descending count, ties by first appearance.
func ColorBreakdown(records []domain.TransactionRecord, brand string) []domain.ColorShare {
	index := make(map[string]int)
	shares := []domain.ColorShare{}
	total := 0
	for _, r := range records {
		if r.CarBrand != brand {
			continue
		}
		total++
		i, ok := index[r.ExteriorColor]
		if !ok {
			i = len(shares)
			index[r.ExteriorColor] = i
			shares = append(shares, domain.ColorShare{Color: r.ExteriorColor})
		}
		shares[i].Count++
	}

	for i := range shares {
		shares[i].Share = float64(shares[i].Count) / float64(total)
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Count > shares[j].Count
	})
	return shares
}
