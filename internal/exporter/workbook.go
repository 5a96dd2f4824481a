package exporter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"cardash/internal/services"
	"cardash/pkg/contracts/domain"
)

// Workbook sheet names
const (
	SheetMetrics    = "Metrics"
	SheetDeviations = "Deviations"
	SheetBrands     = "Top Brands"
	SheetMonthly    = "Monthly Transactions"
	SheetEngine     = "Engine Size"
)

// Deviation font colours
const (
	ColorNegative = "FF0000"
	ColorPositive = "008000"
)

const percentFormat = "0.0%"

// XLSXContentType is the MIME type of the workbook
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WorkbookWriter builds the dashboard workbook
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger.With(slog.String("component", "workbook_writer"))}
}

type workbookStyles struct {
	header   int
	percent  int
	negative int
	positive int
}

// Write builds the workbook and writes it to out. graphic may be nil, in
// which case only the metrics and deviation sheets are written.
func (w *WorkbookWriter) Write(out io.Writer, metrics *services.AggregateMetricsView, graphic *services.AggregateGraphicView) error {
	if metrics == nil {
		return errors.New("metrics view is required")
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newWorkbookStyles(f)
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", SheetMetrics); err != nil {
		return err
	}
	if err := writeMetricsSheet(f, styles, metrics); err != nil {
		return fmt.Errorf("metrics sheet: %w", err)
	}
	if err := writeDeviationSheet(f, styles, metrics.Deviations); err != nil {
		return fmt.Errorf("deviation sheet: %w", err)
	}

	if graphic != nil {
		if err := writeCountSheet(f, styles, SheetBrands, []string{domain.ColumnCarBrand, "Transactions"}, len(graphic.TopBrands), func(i int) []interface{} {
			return []interface{}{graphic.TopBrands[i].Brand, graphic.TopBrands[i].Count}
		}); err != nil {
			return fmt.Errorf("brand sheet: %w", err)
		}
		if err := writeCountSheet(f, styles, SheetMonthly, []string{"Month", "Transactions"}, len(graphic.MonthlyTransactions), func(i int) []interface{} {
			m := graphic.MonthlyTransactions[i]
			return []interface{}{m.Month.Format("2006-01"), m.Count}
		}); err != nil {
			return fmt.Errorf("monthly sheet: %w", err)
		}
		if err := writeCountSheet(f, styles, SheetEngine, []string{domain.ColumnDisplacement, "Transactions"}, len(graphic.EngineBuckets), func(i int) []interface{} {
			return []interface{}{graphic.EngineBuckets[i].Bucket, graphic.EngineBuckets[i].Count}
		}); err != nil {
			return fmt.Errorf("engine sheet: %w", err)
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	w.logger.Debug("workbook exported",
		slog.Int("deviation_rows", len(metrics.Deviations.Rows)),
		slog.Bool("graphics", graphic != nil))
	return nil
}

// SaveAs writes the workbook to path
func (w *WorkbookWriter) SaveAs(path string, metrics *services.AggregateMetricsView, graphic *services.AggregateGraphicView) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	if err := w.Write(file, metrics, graphic); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func newWorkbookStyles(f *excelize.File) (workbookStyles, error) {
	var (
		s   workbookStyles
		err error
	)
	pct := percentFormat

	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F4F1E8"}},
	}); err != nil {
		return s, err
	}
	if s.percent, err = f.NewStyle(&excelize.Style{CustomNumFmt: &pct}); err != nil {
		return s, err
	}
	if s.negative, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Color: ColorNegative},
		CustomNumFmt: &pct,
	}); err != nil {
		return s, err
	}
	if s.positive, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Color: ColorPositive},
		CustomNumFmt: &pct,
	}); err != nil {
		return s, err
	}
	return s, nil
}

func (s workbookStyles) forSign(sign domain.Sign) int {
	switch sign {
	case domain.SignNegative:
		return s.negative
	case domain.SignPositive:
		return s.positive
	default:
		return s.percent
	}
}

func writeHeader(f *excelize.File, styles workbookStyles, sheet string, headers []string) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 18)
}

// setRatio writes a ratio cell styled by sign; undefined ratios stay blank
func setRatio(f *excelize.File, styles workbookStyles, sheet string, col, row int, r domain.Ratio) error {
	if !r.Defined {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, r.Value); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, styles.forSign(r.Sign()))
}

func writeMetricsSheet(f *excelize.File, styles workbookStyles, view *services.AggregateMetricsView) error {
	headers := []string{
		"Metric",
		windowLabel(view.Recent.WindowMonths),
		windowLabel(view.Baseline.WindowMonths),
		"Change",
	}
	if err := writeHeader(f, styles, SheetMetrics, headers); err != nil {
		return err
	}

	for i, card := range view.Cards {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []interface{}{card.Label, nil, nil}
		if card.HasValue {
			values = []interface{}{card.Label, card.Recent, card.Baseline}
		}
		if err := f.SetSheetRow(SheetMetrics, cell, &values); err != nil {
			return err
		}
		if err := setRatio(f, styles, SheetMetrics, 4, row, card.Change); err != nil {
			return err
		}
	}
	return nil
}

func windowLabel(months int) string {
	if months == 1 {
		return "Median last month"
	}
	return fmt.Sprintf("Median last %d months", months)
}

func writeDeviationSheet(f *excelize.File, styles workbookStyles, table domain.DeviationTable) error {
	if _, err := f.NewSheet(SheetDeviations); err != nil {
		return err
	}

	headers := []string{
		domain.ColumnTransactionDate,
		domain.ColumnCarBrand,
		domain.ColumnCarModel,
		domain.ColumnExteriorColor,
	}
	for _, field := range table.Fields {
		headers = append(headers, field.Label())
	}
	if err := writeHeader(f, styles, SheetDeviations, headers); err != nil {
		return err
	}

	for i, r := range table.Rows {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		identity := []interface{}{formatDate(r.TransactionDate), r.CarBrand, r.CarModel, r.ExteriorColor}
		if err := f.SetSheetRow(SheetDeviations, cell, &identity); err != nil {
			return err
		}
		for j, c := range r.Cells {
			if err := setRatio(f, styles, SheetDeviations, 5+j, row, c.Deviation); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCountSheet(f *excelize.File, styles workbookStyles, sheet string, headers []string, n int, row func(i int) []interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := writeHeader(f, styles, sheet, headers); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
