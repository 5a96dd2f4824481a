package dataprocessing

import (
	"time"

	"cardash/pkg/contracts/domain"
)

// ComputeDeviationTable expresses every numeric field of every record as a
// relative deviation from the baseline median. Cells whose baseline median
// is zero or absent are undefined. Record order is preserved.
func ComputeDeviationTable(records []domain.TransactionRecord, baseline domain.MetricsSnapshot) domain.DeviationTable {
	table := domain.DeviationTable{
		Baseline: baseline,
		Fields:   append([]domain.NumericField(nil), domain.NumericFields...),
		Rows:     make([]domain.DeviationRow, 0, len(records)),
	}

	for _, r := range records {
		row := domain.DeviationRow{
			RecordIdentity: r.Identity(),
			Cells:          make([]domain.DeviationCell, 0, len(table.Fields)),
		}
		for _, field := range table.Fields {
			value := r.Value(field)
			deviation := domain.UndefinedRatio()
			if median, ok := baseline.Median(field); ok {
				deviation = PercentChange(value, median)
			}
			row.Cells = append(row.Cells, domain.DeviationCell{
				Field:     field,
				Value:     value,
				Deviation: deviation,
				Sign:      deviation.Sign().String(),
			})
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// BaselineDeviationTable computes the deviation table against the medians of
// the trailing baselineMonths window ending at the latest transaction
func BaselineDeviationTable(records []domain.TransactionRecord, baselineMonths int) domain.DeviationTable {
	baseline := ComputeWindowedMedians(records, time.Time{}, baselineMonths)
	return ComputeDeviationTable(records, baseline)
}
