package exporter

import (
	"fmt"
	"strconv"
	"time"

	"cardash/pkg/contracts/domain"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatDate formats a transaction date as ISO 8601
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// formatRatio formats a ratio as a percentage with one decimal. Undefined
// ratios are left empty so spreadsheets treat them as blanks.
func formatRatio(r domain.Ratio) string {
	if !r.Defined {
		return ""
	}
	return fmt.Sprintf("%.1f", r.Value*100)
}

// formatValue formats a raw field value according to its display format
func formatValue(field domain.NumericField, v float64) string {
	if field.Format() == domain.FormatCount || field.Format() == domain.FormatCurrency {
		if v == float64(int64(v)) {
			return formatInt(int64(v))
		}
	}
	return formatFloat(v)
}
