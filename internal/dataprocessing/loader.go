package dataprocessing

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"cardash/pkg/contracts/domain"
)

var (
	// ErrSourceNotFound is returned when the export file does not exist
	ErrSourceNotFound = errors.New("source file not found")
	// ErrMalformedSource is returned when the export cannot be parsed as a table
	ErrMalformedSource = errors.New("malformed source file")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadError is the fatal error of a dataset load
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadResult is a cleaned dataset together with its cleaning report
type LoadResult struct {
	Source  string
	Records []domain.TransactionRecord
	Report  domain.CleanReport
}

// rawTable is the header-mapped content of a source file
type rawTable struct {
	columns map[string]int
	width   int
	rows    [][]string
}

// Loader reads transaction exports from disk
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger: logger.With(slog.String("component", "loader")),
	}
}

// Load reads and cleans the export at path. Files ending in .xlsx are read
// with excelize, everything else is treated as CSV.
func Load(path string) ([]domain.TransactionRecord, error) {
	result, err := NewLoader(nil).Load(context.Background(), path)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// Load reads and cleans the export at path
func (l *Loader) Load(ctx context.Context, path string) (*LoadResult, error) {
	l.logger.InfoContext(ctx, "loading transaction export", slog.String("path", path))

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Path: path, Err: ErrSourceNotFound}
		}
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %v", ErrMalformedSource, err)}
	}

	var (
		table *rawTable
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, err = readXLSX(path)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		if err == nil {
			table, err = readCSV(bytes.NewReader(data))
		}
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	result, err := l.clean(ctx, table)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	result.Source = path
	return result, nil
}

// LoadReader reads and cleans a CSV export from r
func (l *Loader) LoadReader(ctx context.Context, r io.Reader) (*LoadResult, error) {
	table, err := readCSV(r)
	if err != nil {
		return nil, &LoadError{Path: "<reader>", Err: err}
	}
	result, err := l.clean(ctx, table)
	if err != nil {
		return nil, &LoadError{Path: "<reader>", Err: err}
	}
	result.Source = "<reader>"
	return result, nil
}

func (l *Loader) clean(ctx context.Context, table *rawTable) (*LoadResult, error) {
	records, report, err := newCleaner(l.logger).clean(ctx, table)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "transaction export loaded",
		slog.Int("rows_read", report.RowsRead),
		slog.Int("kept", report.Kept),
		slog.Int("dropped_missing", report.DroppedMissing),
		slog.Int("dropped_invalid_price", report.DroppedInvalidPrice),
		slog.Int("dropped_invalid_owners", report.DroppedInvalidOwner),
		slog.Int("dropped_invalid_other", report.DroppedInvalidOther))

	return &LoadResult{Records: records, Report: report}, nil
}

// readCSV parses a CSV stream, stripping a UTF-8 BOM when present
func readCSV(r io.Reader) (*rawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	return newRawTable(rows)
}

// readXLSX parses the first sheet that carries the required header
func readXLSX(path string) (*rawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	defer f.Close()

	var lastErr error
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			lastErr = err
			continue
		}
		table, err := newRawTable(rows)
		if err == nil {
			return table, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: workbook has no sheets", ErrMalformedSource)
	}
	return nil, lastErr
}

// newRawTable locates the header row and maps the required columns.
// Trailing blank header cells do not count towards the table width.
func newRawTable(rows [][]string) (*rawTable, error) {
	headerRow := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerRow = i
			break
		}
	}
	if headerRow == -1 {
		return nil, fmt.Errorf("%w: no header row", ErrMalformedSource)
	}

	header := rows[headerRow]
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}

	columns := findColumns(header)
	var missing []string
	for _, name := range domain.RequiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrMalformedSource, strings.Join(missing, ", "))
	}

	var data [][]string
	for _, row := range rows[headerRow+1:] {
		if isBlankRow(row) {
			continue
		}
		data = append(data, row)
	}

	return &rawTable{columns: columns, width: len(header), rows: data}, nil
}

// findColumns maps each required column to its index, matching headers
// case-insensitively after trimming
func findColumns(header []string) map[string]int {
	normalized := make(map[string]string, len(domain.RequiredColumns))
	for _, name := range domain.RequiredColumns {
		normalized[normalizeHeader(name)] = name
	}

	columns := make(map[string]int)
	for i, cell := range header {
		if name, ok := normalized[normalizeHeader(cell)]; ok {
			if _, seen := columns[name]; !seen {
				columns[name] = i
			}
		}
	}
	return columns
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, string(utf8BOM))
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cell returns the trimmed value of column in row, or "" when the row is short
func (t *rawTable) cell(row []string, column string) string {
	idx, ok := t.columns[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
