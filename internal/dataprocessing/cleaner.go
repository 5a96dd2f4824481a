package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cardash/pkg/contracts/domain"
)

var (
	errInvalidPrice  = errors.New("invalid reference price")
	errInvalidOwners = errors.New("invalid previous owner count")
	errInvalidNumber = errors.New("invalid numeric value")
)

// missingTokens are the cell values treated as missing, matching the
// defaults of common dataframe readers
var missingTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// dateLayouts are tried in order. Slash dates are month first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"01-02-06",
	"1/2/06",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01",
}

// cleaner applies the row-level cleaning steps in order:
// drop missing → parse price → parse owners → parse numerics → derive age
type cleaner struct {
	logger *slog.Logger
}

func newCleaner(logger *slog.Logger) *cleaner {
	return &cleaner{logger: logger}
}

func (c *cleaner) clean(ctx context.Context, table *rawTable) ([]domain.TransactionRecord, domain.CleanReport, error) {
	report := domain.CleanReport{RowsRead: len(table.rows)}

	// Dates are converted for the whole table before the drop, so a single
	// unparseable date fails the load.
	dates := make([]time.Time, len(table.rows))
	for i, row := range table.rows {
		raw := table.cell(row, domain.ColumnTransactionDate)
		if isMissing(raw) {
			continue
		}
		d, err := ParseTransactionDate(raw)
		if err != nil {
			return nil, report, fmt.Errorf("%w: row %d: %v", ErrMalformedSource, i+2, err)
		}
		dates[i] = d
	}

	records := make([]domain.TransactionRecord, 0, len(table.rows))
	for i, row := range table.rows {
		if c.hasMissing(table, row) {
			report.DroppedMissing++
			continue
		}

		record, err := c.parseRow(table, row, dates[i])
		if err != nil {
			switch {
			case errors.Is(err, errInvalidPrice):
				report.DroppedInvalidPrice++
			case errors.Is(err, errInvalidOwners):
				report.DroppedInvalidOwner++
			default:
				report.DroppedInvalidOther++
			}
			c.logger.DebugContext(ctx, "row excluded",
				slog.Int("row", i+2),
				slog.String("reason", err.Error()))
			continue
		}
		records = append(records, record)
	}

	report.Kept = len(records)
	return records, report, nil
}

// hasMissing reports whether any column of the header, required or not,
// is missing in row. Short rows are missing their trailing columns.
func (c *cleaner) hasMissing(table *rawTable, row []string) bool {
	if len(row) < table.width {
		return true
	}
	for _, cell := range row[:table.width] {
		if isMissing(cell) {
			return true
		}
	}
	return false
}

func (c *cleaner) parseRow(table *rawTable, row []string, date time.Time) (domain.TransactionRecord, error) {
	price, err := ParseReferencePrice(table.cell(row, domain.ColumnReferencePrice))
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	owners, err := ParsePreviousOwners(table.cell(row, domain.ColumnPreviousOwners))
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	displacement, err := parseWholeNumber(table.cell(row, domain.ColumnDisplacement))
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("displacement: %w", err)
	}

	year, err := parseWholeNumber(table.cell(row, domain.ColumnManufactureYear))
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("manufacture year: %w", err)
	}

	mileage, err := parseNumber(table.cell(row, domain.ColumnMileage))
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("mileage: %w", err)
	}

	return domain.TransactionRecord{
		TransactionDate: date,
		CarBrand:        table.cell(row, domain.ColumnCarBrand),
		CarModel:        table.cell(row, domain.ColumnCarModel),
		ExteriorColor:   table.cell(row, domain.ColumnExteriorColor),
		DisplacementCC:  displacement,
		ManufactureYear: year,
		PreviousOwners:  owners,
		MileageKM:       mileage,
		ReferencePrice:  price,
		Age:             date.Year() - year,
	}, nil
}

func isMissing(s string) bool {
	return missingTokens[strings.TrimSpace(s)]
}

// ParseTransactionDate parses a transaction date in any supported layout
func ParseTransactionDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", s)
}

// ParseReferencePrice strips currency symbols, thousands separators and
// spaces, then parses a whole HKD amount
func ParseReferencePrice(s string) (int64, error) {
	cleaned := strings.TrimSpace(s)
	for _, token := range []string{"HK$", "HKD", "$", ",", " "} {
		cleaned = strings.ReplaceAll(cleaned, token, "")
	}
	if cleaned == "" {
		return 0, fmt.Errorf("%w: %q", errInvalidPrice, s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidPrice, s)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: %q is not a whole amount", errInvalidPrice, s)
	}
	return d.IntPart(), nil
}

// ParsePreviousOwners coerces the raw owner count and adds one for the
// current owner. Negative or fractional counts are rejected.
func ParsePreviousOwners(s string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", errInvalidOwners, s)
	}
	if v < 0 || v != math.Trunc(v) || v >= float64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %q", errInvalidOwners, s)
	}
	return int(v) + 1, nil
}

func parseNumber(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	cleaned = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(cleaned), "km"))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", errInvalidNumber, s)
	}
	return v, nil
}

func parseWholeNumber(s string) (int, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %q is not a whole number", errInvalidNumber, s)
	}
	if v >= float64(math.MaxInt) || v < float64(math.MinInt) {
		return 0, fmt.Errorf("%w: %q is out of range", errInvalidNumber, s)
	}
	return int(v), nil
}
