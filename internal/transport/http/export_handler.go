package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "cardash/internal/errors"
	"cardash/internal/exporter"
	"cardash/internal/infrastructure"
	"cardash/internal/services"
)

// Download file names
const (
	DeviationsFile = "deviations.csv"
	WorkbookFile   = "dashboard.xlsx"
)

// ExportHandler serves the dashboard downloads
type ExportHandler struct {
	dashboard    services.Dashboard
	topBrands    int
	csv          *exporter.CSVWriter
	workbook     *exporter.WorkbookWriter
	metrics      *infrastructure.DashboardMetrics
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewExportHandler creates the handler. metrics may be nil.
func NewExportHandler(dashboard services.Dashboard, topBrands int, metrics *infrastructure.DashboardMetrics, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		dashboard:    dashboard,
		topBrands:    topBrands,
		csv:          exporter.NewCSVWriter("", logger),
		workbook:     exporter.NewWorkbookWriter(logger),
		metrics:      metrics,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "export_handler")),
	}
}

// Routes returns the export routes mounted under /api/export
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/"+DeviationsFile, h.Deviations)
	r.Get("/"+WorkbookFile, h.Workbook)
	return r
}

// Deviations handles GET /api/export/deviations.csv
func (h *ExportHandler) Deviations(w http.ResponseWriter, r *http.Request) {
	view, err := h.dashboard.AggregateMetrics(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, services.ToAPIError(err))
		return
	}

	var buf bytes.Buffer
	rows, err := h.csv.WriteDeviations(&buf, view.Deviations)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrInternalServer)
		return
	}

	h.send(w, r, "text/csv; charset=utf-8", DeviationsFile, buf.Bytes())
	infrastructure.RecordExport(r.Context(), h.metrics, "csv")
	h.logger.InfoContext(r.Context(), "deviation table exported",
		slog.Int("rows", rows),
		slog.Int("bytes", buf.Len()))
}

// Workbook handles GET /api/export/dashboard.xlsx
func (h *ExportHandler) Workbook(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.dashboard.AggregateMetrics(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, services.ToAPIError(err))
		return
	}
	graphic, err := h.dashboard.AggregateGraphic(r.Context(), h.topBrands)
	if err != nil {
		h.errorHandler.HandleError(w, r, services.ToAPIError(err))
		return
	}

	var buf bytes.Buffer
	if err := h.workbook.Write(&buf, metrics, graphic); err != nil {
		h.logger.ErrorContext(r.Context(), "workbook export failed",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrInternalServer)
		return
	}

	h.send(w, r, exporter.XLSXContentType, WorkbookFile, buf.Bytes())
	infrastructure.RecordExport(r.Context(), h.metrics, "xlsx")
	h.logger.InfoContext(r.Context(), "workbook exported",
		slog.Int("bytes", buf.Len()))
}

// send writes a fully built download so a failed export never produces a
// truncated file
func (h *ExportHandler) send(w http.ResponseWriter, r *http.Request, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.WarnContext(r.Context(), "download interrupted",
			slog.String("file", filename),
			slog.String("error", err.Error()))
	}
}
