package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardash/pkg/contracts/domain"
)

func correlationRecords() []domain.TransactionRecord {
	var records []domain.TransactionRecord
	for i, year := range []int{2015, 2017, 2018, 2020} {
		r := record(date(2023, 6, i+1), "Toyota", int64(100000+i*25000))
		r.ManufactureYear = year
		r.Age = 2023 - year
		r.MileageKM = float64(40000 + i*10000)
		r.DisplacementCC = []int{1600, 1000, 2000, 1300}[i]
		records = append(records, r)
	}
	return records
}

func findCell(cells []domain.CorrelationCell, a, b domain.NumericField) (domain.CorrelationCell, bool) {
	for _, c := range cells {
		if c.FieldA == a && c.FieldB == b {
			return c, true
		}
	}
	return domain.CorrelationCell{}, false
}

func TestCorrelationMatrix(t *testing.T) {
	cells := CorrelationMatrix(correlationRecords())
	n := len(domain.NumericFields)
	require.Len(t, cells, n*n)

	tests := []struct {
		name    string
		a, b    domain.NumericField
		want    float64
		defined bool
	}{
		{"self", domain.FieldMileage, domain.FieldMileage, 1, true},
		{"perfect positive", domain.FieldMileage, domain.FieldReferencePrice, 1, true},
		{"perfect negative", domain.FieldAge, domain.FieldManufactureYear, -1, true},
		{"zero variance", domain.FieldPreviousOwners, domain.FieldAge, 0, false},
		{"zero variance self", domain.FieldPreviousOwners, domain.FieldPreviousOwners, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell, ok := findCell(cells, tt.a, tt.b)
			require.True(t, ok)
			assert.Equal(t, tt.defined, cell.Defined)
			assert.InDelta(t, tt.want, cell.Correlation, 1e-9)
		})
	}

	// symmetric
	for _, c := range cells {
		mirror, ok := findCell(cells, c.FieldB, c.FieldA)
		require.True(t, ok)
		assert.Equal(t, c.Defined, mirror.Defined)
		assert.InDelta(t, c.Correlation, mirror.Correlation, 1e-12)
	}
}

func TestCorrelationMatrix_TooFewRecords(t *testing.T) {
	cells := CorrelationMatrix(correlationRecords()[:1])
	for _, c := range cells {
		assert.False(t, c.Defined)
	}
}

func TestUpperTriangle(t *testing.T) {
	upper := UpperTriangle(CorrelationMatrix(correlationRecords()))

	n := len(domain.NumericFields)
	assert.Len(t, upper, n*(n-1)/2)
	for _, c := range upper {
		assert.NotEqual(t, c.FieldA, c.FieldB)
		assert.Less(t, c.FieldA.Label(), c.FieldB.Label())
	}

	// "Age" sorts before "Manufacture Year"
	_, ok := findCell(upper, domain.FieldAge, domain.FieldManufactureYear)
	assert.True(t, ok)
	_, ok = findCell(upper, domain.FieldManufactureYear, domain.FieldAge)
	assert.False(t, ok)
}

func TestPearson(t *testing.T) {
	r, ok := Pearson([]float64{1, 2, 3}, []float64{2, 4, 7})
	require.True(t, ok)
	assert.InDelta(t, 0.9933992677987828, r, 1e-9)

	_, ok = Pearson([]float64{1, 2}, []float64{1})
	assert.False(t, ok)
}
