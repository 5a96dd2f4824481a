package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cardash/internal/config"
	apierrors "cardash/internal/errors"
	appmiddleware "cardash/internal/middleware"
	"cardash/internal/services"
	"cardash/internal/shared/testutil"
	"cardash/pkg/contracts/domain"
)

// MockDashboard is a testify mock of services.Dashboard
type MockDashboard struct {
	mock.Mock
}

func (m *MockDashboard) Render(ctx context.Context, view domain.View) (services.RenderedView, error) {
	args := m.Called(view)
	rendered, _ := args.Get(0).(services.RenderedView)
	return rendered, args.Error(1)
}

func (m *MockDashboard) AggregateMetrics(ctx context.Context) (*services.AggregateMetricsView, error) {
	args := m.Called()
	view, _ := args.Get(0).(*services.AggregateMetricsView)
	return view, args.Error(1)
}

func (m *MockDashboard) AggregateGraphic(ctx context.Context, top int) (*services.AggregateGraphicView, error) {
	args := m.Called(top)
	view, _ := args.Get(0).(*services.AggregateGraphicView)
	return view, args.Error(1)
}

func (m *MockDashboard) IndividualBrand(ctx context.Context, brand string) (*services.IndividualBrandView, error) {
	args := m.Called(brand)
	view, _ := args.Get(0).(*services.IndividualBrandView)
	return view, args.Error(1)
}

func (m *MockDashboard) Brands(ctx context.Context, top int) ([]domain.BrandCount, error) {
	args := m.Called(top)
	brands, _ := args.Get(0).([]domain.BrandCount)
	return brands, args.Error(1)
}

func (m *MockDashboard) Info(ctx context.Context) (services.DatasetInfo, error) {
	args := m.Called()
	info, _ := args.Get(0).(services.DatasetInfo)
	return info, args.Error(1)
}

var _ services.Dashboard = (*MockDashboard)(nil)

func testHandlers(t *testing.T) (*slog.Logger, *apierrors.ErrorHandler, *appmiddleware.ValidationMiddleware) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	return logger, errorHandler, appmiddleware.NewValidationMiddleware(logger)
}

// sampleDashboard is a real dashboard over the sample export
func sampleDashboard(t *testing.T) *services.DashboardService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	cache := services.NewDatasetCache(testutil.WriteSampleDataset(t), nil, nil, logger)
	return services.NewDashboardService(cache, config.DatasetConfig{}, nil, logger)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem), rec.Body.String())
	return problem
}
