package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardash/pkg/contracts/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(d time.Time, brand string, price int64) domain.TransactionRecord {
	return domain.TransactionRecord{
		TransactionDate: d,
		CarBrand:        brand,
		CarModel:        "Model",
		ExteriorColor:   "White",
		DisplacementCC:  1600,
		ManufactureYear: d.Year() - 5,
		PreviousOwners:  1,
		MileageKM:       50000,
		ReferencePrice:  price,
		Age:             5,
	}
}

func TestSubtractMonths(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		n    int
		want time.Time
	}{
		{"same day", date(2023, 12, 20), 1, date(2023, 11, 20)},
		{"clamps to end of february", date(2023, 3, 31), 1, date(2023, 2, 28)},
		{"clamps to leap day", date(2024, 3, 31), 1, date(2024, 2, 29)},
		{"crosses year", date(2023, 1, 31), 1, date(2022, 12, 31)},
		{"twelve months", date(2024, 2, 29), 12, date(2023, 2, 28)},
		{"zero months", date(2023, 5, 5), 0, date(2023, 5, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubtractMonths(tt.in, tt.n))
		})
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
		ok     bool
	}{
		{"empty", nil, 0, false},
		{"single", []float64{7}, 7, true},
		{"odd", []float64{3, 1, 2}, 2, true},
		{"even averages middle values", []float64{4, 1, 3, 2}, 2.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Median(tt.values)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	values := []float64{3, 1, 2}
	Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values, "input must not be reordered")
}

func TestComputeWindowedMedians_FinalMonthOnly(t *testing.T) {
	var records []domain.TransactionRecord
	for m := time.January; m <= time.November; m++ {
		records = append(records, record(date(2023, m, 1), "Toyota", int64(m)*1000))
	}
	records = append(records, record(date(2023, 12, 20), "Honda", 999000))

	snapshot := ComputeWindowedMedians(records, time.Time{}, 1)

	assert.Equal(t, date(2023, 12, 20), snapshot.AsOf)
	assert.Equal(t, date(2023, 11, 20), snapshot.WindowStart)
	assert.Equal(t, 1, snapshot.Count)
	price, ok := snapshot.Median(domain.FieldReferencePrice)
	require.True(t, ok)
	assert.Equal(t, 999000.0, price)
}

func TestComputeWindowedMedians_SameDayEachMonth(t *testing.T) {
	var records []domain.TransactionRecord
	for m := time.January; m <= time.December; m++ {
		records = append(records, record(date(2023, m, 15), "Toyota", int64(m)*1000))
	}

	tests := []struct {
		name      string
		months    int
		wantStart time.Time
		wantCount int
		wantPrice float64
	}{
		{"one month keeps previous month boundary", 1, date(2023, 11, 15), 2, 11500},
		{"three months", 3, date(2023, 9, 15), 4, 10500},
		{"twelve months", 12, date(2022, 12, 15), 12, 6500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := ComputeWindowedMedians(records, time.Time{}, tt.months)

			assert.Equal(t, date(2023, 12, 15), snapshot.AsOf)
			assert.Equal(t, tt.wantStart, snapshot.WindowStart)
			assert.Equal(t, tt.wantCount, snapshot.Count)
			price, ok := snapshot.Median(domain.FieldReferencePrice)
			require.True(t, ok)
			assert.Equal(t, tt.wantPrice, price)
		})
	}
}

func TestComputeWindowedMedians_LowerBoundInclusive(t *testing.T) {
	records := []domain.TransactionRecord{
		record(date(2023, 11, 19), "Toyota", 1000),
		record(date(2023, 11, 20), "Toyota", 2000),
		record(date(2023, 12, 20), "Toyota", 4000),
	}

	snapshot := ComputeWindowedMedians(records, date(2023, 12, 20), 1)

	assert.Equal(t, 2, snapshot.Count)
	price, ok := snapshot.Median(domain.FieldReferencePrice)
	require.True(t, ok)
	assert.Equal(t, 3000.0, price)
}

func TestComputeWindowedMedians_EmptyWindow(t *testing.T) {
	t.Run("no records", func(t *testing.T) {
		snapshot := ComputeWindowedMedians(nil, time.Time{}, 12)
		assert.True(t, snapshot.Empty())
		assert.Equal(t, 0, snapshot.Count)
		assert.Empty(t, snapshot.Medians)
	})

	t.Run("window before all records", func(t *testing.T) {
		records := []domain.TransactionRecord{record(date(2023, 6, 1), "Toyota", 1000)}
		snapshot := ComputeWindowedMedians(records, date(2022, 1, 1), 1)
		assert.True(t, snapshot.Empty())
		_, ok := snapshot.Median(domain.FieldReferencePrice)
		assert.False(t, ok)
	})
}

func TestComputeWindowedMedians_Fixture(t *testing.T) {
	records := loadFixture(t).Records

	recent := ComputeWindowedMedians(records, time.Time{}, RecentWindowMonths)
	baseline := ComputeWindowedMedians(records, time.Time{}, BaselineWindowMonths)

	assert.Equal(t, 2, recent.Count)
	assert.Equal(t, 11, baseline.Count)

	recentPrice, _ := recent.Median(domain.FieldReferencePrice)
	baselinePrice, _ := baseline.Median(domain.FieldReferencePrice)
	assert.Equal(t, 127500.0, recentPrice)
	assert.Equal(t, 125000.0, baselinePrice)

	change := SnapshotChange(recent, baseline, domain.FieldReferencePrice)
	require.True(t, change.Defined)
	assert.InDelta(t, 0.02, change.Value, 1e-9)
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name     string
		recent   float64
		baseline float64
		want     domain.Ratio
	}{
		{"increase", 110, 100, domain.DefinedRatio(0.1)},
		{"decrease", 50, 100, domain.DefinedRatio(-0.5)},
		{"unchanged", 100, 100, domain.DefinedRatio(0)},
		{"zero baseline", 5, 0, domain.UndefinedRatio()},
		{"zero both", 0, 0, domain.UndefinedRatio()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentChange(tt.recent, tt.baseline)
			assert.Equal(t, tt.want.Defined, got.Defined)
			assert.InDelta(t, tt.want.Value, got.Value, 1e-9)
		})
	}
}

func TestBuildMetricsPanel(t *testing.T) {
	panel := BuildMetricsPanel(loadFixture(t).Records, RecentWindowMonths, BaselineWindowMonths)

	require.Len(t, panel.Cards, len(domain.NumericFields))
	for i, card := range panel.Cards {
		assert.Equal(t, domain.NumericFields[i], card.Field)
		assert.Equal(t, card.Field.Label(), card.Label)
		assert.True(t, card.HasValue)
	}

	price := panel.Cards[len(panel.Cards)-1]
	assert.Equal(t, domain.FieldReferencePrice, price.Field)
	assert.Equal(t, domain.FormatCurrency, price.Format)
	assert.Equal(t, 127500.0, price.Recent)
	assert.Equal(t, 125000.0, price.Baseline)

	empty := BuildMetricsPanel(nil, RecentWindowMonths, BaselineWindowMonths)
	for _, card := range empty.Cards {
		assert.False(t, card.HasValue)
		assert.False(t, card.Change.Defined)
	}
}

func TestComputeDeviationTable(t *testing.T) {
	records := []domain.TransactionRecord{
		record(date(2023, 1, 1), "Toyota", 80),
		record(date(2023, 2, 1), "Honda", 100),
		record(date(2023, 3, 1), "BMW", 150),
	}
	records[0].PreviousOwners = 0

	baseline := domain.MetricsSnapshot{
		Count: 3,
		Medians: map[domain.NumericField]float64{
			domain.FieldReferencePrice: 100,
			domain.FieldPreviousOwners: 0,
		},
	}

	table := ComputeDeviationTable(records, baseline)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, domain.NumericFields, table.Fields)

	priceCell := func(row domain.DeviationRow) domain.DeviationCell {
		for _, c := range row.Cells {
			if c.Field == domain.FieldReferencePrice {
				return c
			}
		}
		t.Fatalf("no price cell")
		return domain.DeviationCell{}
	}

	tests := []struct {
		brand     string
		deviation float64
		sign      string
	}{
		{"Toyota", -0.2, "negative"},
		{"Honda", 0, "neutral"},
		{"BMW", 0.5, "positive"},
	}
	for i, tt := range tests {
		row := table.Rows[i]
		assert.Equal(t, tt.brand, row.CarBrand)
		cell := priceCell(row)
		require.True(t, cell.Deviation.Defined)
		assert.InDelta(t, tt.deviation, cell.Deviation.Value, 1e-9)
		assert.Equal(t, tt.sign, cell.Sign)
	}

	for _, c := range table.Rows[0].Cells {
		switch c.Field {
		case domain.FieldPreviousOwners:
			assert.False(t, c.Deviation.Defined, "zero baseline")
		case domain.FieldMileage:
			assert.False(t, c.Deviation.Defined, "missing baseline")
		}
	}
}

func TestBaselineDeviationTable(t *testing.T) {
	records := loadFixture(t).Records
	table := BaselineDeviationTable(records, BaselineWindowMonths)

	assert.Equal(t, 11, table.Baseline.Count)
	require.Len(t, table.Rows, len(records))
	for i, row := range table.Rows {
		assert.Equal(t, records[i].Identity(), row.RecordIdentity)
		assert.Len(t, row.Cells, len(domain.NumericFields))
	}
}
