// Package exporter writes dashboard tables as downloadable files.
//
// StreamWriter writes a UTF-8 BOM and then records one at a time to any
// io.Writer, which is how the deviation table is streamed to HTTP clients.
// CSVWriter wraps it with file creation for the command-line exports.
//
// WorkbookWriter builds a styled .xlsx workbook with excelize, one sheet per
// table, colouring deviations red or green by sign.
//
// Example usage:
//
//	w := exporter.NewCSVWriter("exports", logger)
//	if _, err := w.WriteDeviations(rw, metricsView.Deviations); err != nil {
//		return err
//	}
//	n, err := w.SaveDeviations("deviations.csv", metricsView.Deviations)
//
//	wb := exporter.NewWorkbookWriter(logger)
//	err := wb.Write(rw, metricsView, graphicView)
package exporter
