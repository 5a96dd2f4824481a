package dataprocessing

import (
	"math"

	"cardash/pkg/contracts/domain"
)

// CorrelationMatrix computes the Pearson correlation of every ordered pair of
// numeric fields, self pairs included. A pair is undefined when either field
// has zero variance or there are fewer than two records.
func CorrelationMatrix(records []domain.TransactionRecord) []domain.CorrelationCell {
	columns := make(map[domain.NumericField][]float64, len(domain.NumericFields))
	for _, field := range domain.NumericFields {
		values := make([]float64, len(records))
		for i, r := range records {
			values[i] = r.Value(field)
		}
		columns[field] = values
	}

	cells := make([]domain.CorrelationCell, 0, len(domain.NumericFields)*len(domain.NumericFields))
	for _, a := range domain.NumericFields {
		for _, b := range domain.NumericFields {
			r, ok := Pearson(columns[a], columns[b])
			cells = append(cells, domain.CorrelationCell{
				FieldA:      a,
				FieldB:      b,
				Correlation: r,
				Defined:     ok,
			})
		}
	}
	return cells
}

// UpperTriangle keeps the cells whose first column label sorts strictly
// before the second
func UpperTriangle(cells []domain.CorrelationCell) []domain.CorrelationCell {
	out := make([]domain.CorrelationCell, 0, len(cells)/2)
	for _, c := range cells {
		if c.FieldA.Label() < c.FieldB.Label() {
			out = append(out, c)
		}
	}
	return out
}

// Pearson returns the sample correlation coefficient of x and y
func Pearson(x, y []float64) (float64, bool) {
	n := len(x)
	if n < 2 || n != len(y) {
		return 0, false
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/float64(n), sumY/float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-meanX, y[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}

	r := cov / math.Sqrt(varX*varY)
	// clamp rounding drift
	return math.Max(-1, math.Min(1, r)), true
}
