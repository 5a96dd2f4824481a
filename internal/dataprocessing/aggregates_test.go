package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardash/pkg/contracts/domain"
)

func TestEngineSizeBucket(t *testing.T) {
	tests := []struct {
		cc   int
		want string
	}{
		{0, UnbucketedLabel},
		{-100, UnbucketedLabel},
		{1, "(0,800]"},
		{800, "(0,800]"},
		{801, "(800,1000]"},
		{900, "(800,1000]"},
		{1000, "(800,1000]"},
		{1400, "(1000,1400]"},
		{1500, "(1400,1600]"},
		{2000, "(1600,2000]"},
		{2500, "(2000,3000]"},
		{5000, "(3000,5000]"},
		{5001, UnbucketedLabel},
		{6000, UnbucketedLabel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EngineSizeBucket(tt.cc), "cc=%d", tt.cc)
	}
}

func TestBrandFrequency(t *testing.T) {
	records := []domain.TransactionRecord{
		record(date(2023, 1, 1), "Honda", 1),
		record(date(2023, 1, 2), "Toyota", 1),
		record(date(2023, 1, 3), "BMW", 1),
		record(date(2023, 1, 4), "Toyota", 1),
		record(date(2023, 1, 5), "BMW", 1),
		record(date(2023, 1, 6), "Audi", 1),
	}

	got := BrandFrequency(records)

	// equal counts keep first-seen order
	assert.Equal(t, []domain.BrandCount{
		{Brand: "Toyota", Count: 2},
		{Brand: "BMW", Count: 2},
		{Brand: "Honda", Count: 1},
		{Brand: "Audi", Count: 1},
	}, got)

	assert.Empty(t, BrandFrequency(nil))
}

func TestTopNBrands(t *testing.T) {
	table := BrandFrequency(loadFixture(t).Records)
	require.Equal(t, []domain.BrandCount{
		{Brand: "Toyota", Count: 5},
		{Brand: "Honda", Count: 3},
		{Brand: "BMW", Count: 2},
		{Brand: "Mercedes-Benz", Count: 1},
	}, table)

	tests := []struct {
		name string
		n    int
		want int
	}{
		{"fewer than distinct", 2, 2},
		{"exact", 4, 4},
		{"more than distinct", 10, 4},
		{"zero", 0, 0},
		{"negative", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			top := TopNBrands(table, tt.n)
			assert.Len(t, top, tt.want)
			assert.Equal(t, table[:tt.want], top)
			for i := 1; i < len(top); i++ {
				assert.GreaterOrEqual(t, top[i-1].Count, top[i].Count)
			}
		})
	}

	top := TopNBrands(table, 1)
	top[0].Count = 100
	assert.Equal(t, 5, table[0].Count, "result must not alias the table")
}

func TestFindBrand(t *testing.T) {
	records := loadFixture(t).Records

	brand, ok := FindBrand(records, "  mercedes-benz ")
	assert.True(t, ok)
	assert.Equal(t, "Mercedes-Benz", brand)

	_, ok = FindBrand(records, "Tesla")
	assert.False(t, ok)

	assert.Len(t, FilterBrand(records, "Honda"), 3)
}

func TestTransactionsPerMonth(t *testing.T) {
	records := []domain.TransactionRecord{
		record(date(2023, 3, 15), "Toyota", 1),
		record(date(2023, 1, 2), "Toyota", 1),
		record(date(2023, 3, 1), "Honda", 1),
		record(date(2022, 12, 31), "BMW", 1),
	}

	assert.Equal(t, []domain.MonthCount{
		{Month: time.Date(2022, 12, 1, 0, 0, 0, 0, time.UTC), Count: 1},
		{Month: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Count: 1},
		{Month: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), Count: 2},
	}, TransactionsPerMonth(records))

	assert.Empty(t, TransactionsPerMonth(nil))
}

func TestScatterPointsAndBucketCounts(t *testing.T) {
	records := loadFixture(t).Records

	points := ScatterPoints(records)
	require.Len(t, points, len(records))
	assert.Equal(t, domain.ScatterPoint{
		Brand:          "Toyota",
		Age:            8,
		MileageKM:      85000,
		ReferencePrice: 88000,
		EngineBucket:   "(1400,1600]",
	}, points[0])

	counts := BucketCounts(records)
	labels := EngineBucketLabels()
	require.Len(t, counts, len(labels))

	total := 0
	for i, c := range counts {
		assert.Equal(t, labels[i], c.Bucket)
		total += c.Count
	}
	assert.Equal(t, len(records), total)

	byBucket := make(map[string]int)
	for _, c := range counts {
		byBucket[c.Bucket] = c.Count
	}
	assert.Equal(t, 1, byBucket["(800,1000]"])
	assert.Equal(t, 2, byBucket["(1000,1400]"])
	assert.Equal(t, 2, byBucket["(1400,1600]"])
	assert.Equal(t, 5, byBucket["(1600,2000]"])
	assert.Equal(t, 1, byBucket["(3000,5000]"])
	assert.Equal(t, 0, byBucket[UnbucketedLabel])
}

func TestColorBreakdown(t *testing.T) {
	records := loadFixture(t).Records

	shares := ColorBreakdown(records, "Toyota")
	require.Len(t, shares, 4)

	assert.Equal(t, "White", shares[0].Color)
	assert.Equal(t, 2, shares[0].Count)
	assert.InDelta(t, 0.4, shares[0].Share, 1e-9)

	assert.Equal(t, []string{"White", "Silver", "Black", "Red"}, []string{
		shares[0].Color, shares[1].Color, shares[2].Color, shares[3].Color,
	})

	var sum float64
	for _, s := range shares {
		sum += s.Share
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	assert.Empty(t, ColorBreakdown(records, "Tesla"))
}
