package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cardash/internal/config"
	"cardash/internal/dataprocessing"
	"cardash/internal/infrastructure"
	"cardash/pkg/contracts/domain"
)

// RenderedView is the data behind one dashboard view. It is implemented by
// *AggregateMetricsView, *AggregateGraphicView and *IndividualBrandView.
type RenderedView interface {
	ViewKind() domain.ViewKind
}

// AggregateMetricsView holds the metric cards and the deviation table
type AggregateMetricsView struct {
	Dataset    DatasetInfo            `json:"dataset"`
	Recent     domain.MetricsSnapshot `json:"recent"`
	Baseline   domain.MetricsSnapshot `json:"baseline"`
	Cards      []domain.MetricCard    `json:"cards"`
	Deviations domain.DeviationTable  `json:"deviations"`
}

// AggregateGraphicView holds the chart series of the whole dataset
type AggregateGraphicView struct {
	Dataset             DatasetInfo              `json:"dataset"`
	MonthlyTransactions []domain.MonthCount      `json:"monthly_transactions"`
	TopBrands           []domain.BrandCount      `json:"top_brands"`
	Correlations        []domain.CorrelationCell `json:"correlations"`
	Scatter             []domain.ScatterPoint    `json:"scatter"`
	EngineBuckets       []domain.BucketCount     `json:"engine_buckets"`
}

// IndividualBrandView holds the breakdown of one brand
type IndividualBrandView struct {
	Dataset      DatasetInfo         `json:"dataset"`
	Brand        string              `json:"brand"`
	Transactions int                 `json:"transactions"`
	Colors       []domain.ColorShare `json:"colors"`
	Picker       []domain.BrandCount `json:"picker"`
}

func (*AggregateMetricsView) ViewKind() domain.ViewKind { return domain.ViewAggregateMetrics }
func (*AggregateGraphicView) ViewKind() domain.ViewKind { return domain.ViewAggregateGraphic }
func (*IndividualBrandView) ViewKind() domain.ViewKind  { return domain.ViewIndividualBrand }

// Dashboard is the view layer consumed by the HTTP, websocket and CLI fronts
type Dashboard interface {
	Render(ctx context.Context, view domain.View) (RenderedView, error)
	AggregateMetrics(ctx context.Context) (*AggregateMetricsView, error)
	AggregateGraphic(ctx context.Context, top int) (*AggregateGraphicView, error)
	IndividualBrand(ctx context.Context, brand string) (*IndividualBrandView, error)
	Brands(ctx context.Context, top int) ([]domain.BrandCount, error)
	Info(ctx context.Context) (DatasetInfo, error)
}

// DashboardService computes the views from the cached dataset
type DashboardService struct {
	cache    *DatasetCache
	settings config.DatasetConfig
	metrics  *infrastructure.DashboardMetrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

var _ Dashboard = (*DashboardService)(nil)

// NewDashboardService creates the service. Zero window or top settings fall
// back to the defaults; metrics may be nil.
func NewDashboardService(cache *DatasetCache, settings config.DatasetConfig, metrics *infrastructure.DashboardMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.RecentMonths <= 0 {
		settings.RecentMonths = config.DefaultRecentMonths
	}
	if settings.BaselineMonths <= 0 {
		settings.BaselineMonths = config.DefaultBaselineMonths
	}
	if settings.TopBrands <= 0 {
		settings.TopBrands = config.DefaultTopBrands
	}

	return &DashboardService{
		cache:    cache,
		settings: settings,
		metrics:  metrics,
		tracer:   otel.Tracer(infrastructure.MeterName + ".dashboard"),
		logger:   logger.With(slog.String("component", "dashboard_service")),
	}
}

// Settings returns the effective dataset settings
func (s *DashboardService) Settings() config.DatasetConfig {
	return s.settings
}

// Render dispatches view to its render function
func (s *DashboardService) Render(ctx context.Context, view domain.View) (RenderedView, error) {
	switch v := view.(type) {
	case domain.AggregateMetrics:
		return s.AggregateMetrics(ctx)
	case domain.AggregateGraphic:
		return s.AggregateGraphic(ctx, s.settings.TopBrands)
	case domain.IndividualBrand:
		return s.IndividualBrand(ctx, v.Brand)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedView, view)
	}
}

// AggregateMetrics computes the metric cards and the deviation table
func (s *DashboardService) AggregateMetrics(ctx context.Context) (*AggregateMetricsView, error) {
	var out *AggregateMetricsView
	err := s.observe(ctx, domain.ViewAggregateMetrics, func(ctx context.Context, ds *Dataset) error {
		panel := dataprocessing.BuildMetricsPanel(ds.records, s.settings.RecentMonths, s.settings.BaselineMonths)
		out = &AggregateMetricsView{
			Dataset:    ds.Info(),
			Recent:     panel.Recent,
			Baseline:   panel.Baseline,
			Cards:      panel.Cards,
			Deviations: dataprocessing.ComputeDeviationTable(ds.records, panel.Baseline),
		}
		return nil
	})
	return out, err
}

// AggregateGraphic computes the chart series; top bounds the brand ranking
func (s *DashboardService) AggregateGraphic(ctx context.Context, top int) (*AggregateGraphicView, error) {
	var out *AggregateGraphicView
	err := s.observe(ctx, domain.ViewAggregateGraphic, func(ctx context.Context, ds *Dataset) error {
		out = &AggregateGraphicView{
			Dataset:             ds.Info(),
			MonthlyTransactions: dataprocessing.TransactionsPerMonth(ds.records),
			TopBrands:           dataprocessing.TopNBrands(dataprocessing.BrandFrequency(ds.records), top),
			Correlations:        dataprocessing.UpperTriangle(dataprocessing.CorrelationMatrix(ds.records)),
			Scatter:             dataprocessing.ScatterPoints(ds.records),
			EngineBuckets:       dataprocessing.BucketCounts(ds.records),
		}
		return nil
	})
	return out, err
}

// IndividualBrand computes the colour breakdown of brand. The lookup ignores
// case and surrounding spaces; unknown brands yield an *UnknownBrandError.
func (s *DashboardService) IndividualBrand(ctx context.Context, brand string) (*IndividualBrandView, error) {
	var out *IndividualBrandView
	err := s.observe(ctx, domain.ViewIndividualBrand, func(ctx context.Context, ds *Dataset) error {
		name, ok := dataprocessing.FindBrand(ds.records, brand)
		if !ok {
			return &UnknownBrandError{Brand: brand}
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("brand", name))

		out = &IndividualBrandView{
			Dataset:      ds.Info(),
			Brand:        name,
			Transactions: len(dataprocessing.FilterBrand(ds.records, name)),
			Colors:       dataprocessing.ColorBreakdown(ds.records, name),
			Picker:       dataprocessing.TopNBrands(dataprocessing.BrandFrequency(ds.records), s.settings.TopBrands),
		}
		return nil
	})
	return out, err
}

// Brands returns the top brands by transaction count
func (s *DashboardService) Brands(ctx context.Context, top int) ([]domain.BrandCount, error) {
	ds, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return dataprocessing.TopNBrands(dataprocessing.BrandFrequency(ds.records), top), nil
}

// Info describes the loaded dataset
func (s *DashboardService) Info(ctx context.Context) (DatasetInfo, error) {
	ds, err := s.cache.Get(ctx)
	if err != nil {
		return DatasetInfo{}, err
	}
	return ds.Info(), nil
}

// observe runs fn inside a span with the dataset loaded and records the
// render metrics
func (s *DashboardService) observe(ctx context.Context, kind domain.ViewKind, fn func(context.Context, *Dataset) error) error {
	ctx, span := s.tracer.Start(ctx, "dashboard.render",
		trace.WithAttributes(attribute.String("view", string(kind))))
	defer span.End()

	start := time.Now()
	ds, err := s.cache.Get(ctx)
	if err == nil {
		err = fn(ctx, ds)
	}
	duration := time.Since(start)

	infrastructure.RecordViewRender(ctx, s.metrics, string(kind), duration, err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "view render failed",
			slog.String("view", string(kind)),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.logger.DebugContext(ctx, "view rendered",
		slog.String("view", string(kind)),
		slog.Int("records", ds.Len()),
		slog.Duration("duration", duration),
	)
	return nil
}
