package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"cardash/pkg/contracts/domain"
)

// DeviationHeaders returns the CSV header row for a deviation table: the
// descriptive columns, then a value and a deviation column per field
func DeviationHeaders(fields []domain.NumericField) []string {
	headers := []string{
		domain.ColumnTransactionDate,
		domain.ColumnCarBrand,
		domain.ColumnCarModel,
		domain.ColumnExteriorColor,
	}
	for _, f := range fields {
		headers = append(headers, f.Label(), f.Label()+" Deviation (%)")
	}
	return headers
}

// DeviationRecord converts one deviation row to CSV fields
func DeviationRecord(row domain.DeviationRow) []string {
	record := make([]string, 0, 4+2*len(row.Cells))
	record = append(record,
		formatDate(row.TransactionDate),
		row.CarBrand,
		row.CarModel,
		row.ExteriorColor,
	)
	for _, c := range row.Cells {
		record = append(record, formatValue(c.Field, c.Value), formatRatio(c.Deviation))
	}
	return record
}

// WriteDeviations streams table to out as CSV and returns the number of
// data rows written
func (w *CSVWriter) WriteDeviations(out io.Writer, table domain.DeviationTable) (int, error) {
	stream, err := NewStreamWriter(out, DeviationHeaders(table.Fields))
	if err != nil {
		return 0, err
	}

	n, err := writeDeviationRows(stream, table)
	if err != nil {
		return n, err
	}
	if err := stream.Flush(); err != nil {
		return n, err
	}

	w.logger.Debug("deviation table exported", slog.Int("rows", n))
	return n, nil
}

// SaveDeviations writes table to the CSV file at path, creating parent
// directories, and returns the number of data rows written
func (w *CSVWriter) SaveDeviations(path string, table domain.DeviationTable) (int, error) {
	stream, err := w.CreateStreamWriter(path, DeviationHeaders(table.Fields))
	if err != nil {
		return 0, err
	}

	n, err := writeDeviationRows(stream, table)
	if cerr := stream.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}

	w.logger.Info("deviation table saved",
		slog.String("file_path", w.resolvePath(path)),
		slog.Int("rows", n))
	return n, nil
}

func writeDeviationRows(stream *StreamWriter, table domain.DeviationTable) (int, error) {
	for i, row := range table.Rows {
		if err := stream.WriteRecord(DeviationRecord(row)); err != nil {
			return i, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	return len(table.Rows), nil
}
