package renderer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"cardash/pkg/contracts/domain"
)

// NotAvailable is shown for undefined ratios and empty windows
const NotAvailable = "n/a"

// FormatCardValue formats a metric card median. Currency values are shown in
// whole thousands with a K suffix, everything else as a truncated integer.
func FormatCardValue(format domain.DisplayFormat, value float64, ok bool) string {
	if !ok || math.IsNaN(value) {
		return NotAvailable
	}
	switch format {
	case domain.FormatCurrency:
		return strconv.FormatInt(int64(value/1000), 10) + "K"
	case domain.FormatPercent:
		return fmt.Sprintf("%.1f%%", value*100)
	default:
		return strconv.FormatInt(int64(value), 10)
	}
}

// FormatMoney formats amount in currency units, e.g. HK$127,500.00 for HKD.
// Unknown currency codes fall back to "<code> <amount>".
func FormatMoney(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%s %.0f", currency, amount)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// FormatRatio formats r as a percentage with the given decimals
func FormatRatio(r domain.Ratio, decimals int) string {
	if !r.Defined {
		return NotAvailable
	}
	return strconv.FormatFloat(r.Value*100, 'f', decimals, 64) + "%"
}

// FormatChange formats a metric card delta, two decimals
func FormatChange(r domain.Ratio) string {
	return FormatRatio(r, 2)
}

// FormatDeviation formats a deviation table cell, one decimal
func FormatDeviation(r domain.Ratio) string {
	return FormatRatio(r, 1)
}

// FormatCorrelation formats a correlation coefficient with two decimals
func FormatCorrelation(c domain.CorrelationCell) string {
	if !c.Defined {
		return NotAvailable
	}
	return strconv.FormatFloat(c.Correlation, 'f', 2, 64)
}

// FormatNumber formats a raw table value as a truncated integer
func FormatNumber(v float64) string {
	return decimal.NewFromFloat(v).Truncate(0).StringFixed(0)
}

// SignClass returns the CSS class of a signed value: "neg", "pos" or ""
func SignClass(s domain.Sign) string {
	switch s {
	case domain.SignNegative:
		return "neg"
	case domain.SignPositive:
		return "pos"
	default:
		return ""
	}
}

// Bar draws count as a block bar scaled so that max spans width cells
func Bar(count, max, width int) string {
	if count <= 0 || max <= 0 || width <= 0 {
		return ""
	}
	n := int(math.Round(float64(count) / float64(max) * float64(width)))
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}
