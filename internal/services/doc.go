// Package services implements the business logic layer of the dashboard.
// It sits between the transport fronts (HTTP, websocket, CLI) and the
// dataprocessing package, so every front sees the same numbers.
//
// # Dataset Cache
//
// DatasetCache loads the transaction export on first use and keeps the
// cleaned snapshot for the life of the process:
//
//	cache := services.NewDatasetCache(cfg.Dataset.Path, nil, metrics, logger)
//	ds, err := cache.Get(ctx)
//
// Concurrent first calls share one load. Failures are wrapped in
// ErrDatasetUnavailable and are not cached.
//
// # Available Services
//
//   - DashboardService: computes the three dashboard views
//   - HealthService: liveness, readiness and version reporting
//
// # Views
//
// DashboardService.Render takes a domain.View and returns one of
// *AggregateMetricsView, *AggregateGraphicView or *IndividualBrandView:
//
//	view, err := dashboard.Render(ctx, domain.IndividualBrand{Brand: "Toyota"})
//	if errors.Is(err, services.ErrBrandNotFound) {
//	    // 404
//	}
//
// # Testing
//
// Services are tested against the sample export in internal/shared/testutil
// or with MockDatasetLoader.
package services
