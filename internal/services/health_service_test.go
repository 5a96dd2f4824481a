package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardash/internal/shared/testutil"
)

func TestHealthService_HealthAndLiveness(t *testing.T) {
	hs := NewHealthService("1.2.3", nil, nil, nil)

	health := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")
	assert.Contains(t, live.Runtime, "go_version")
}

func TestHealthService_ReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		path       func(t *testing.T) string
		wantStatus string
	}{
		{"dataset loads", testutil.WriteSampleDataset, "ready"},
		{"dataset missing", func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "missing.csv")
		}, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			clients := new(MockClientCounter)
			clients.On("ClientCount").Return(3)

			cache := NewDatasetCache(tt.path(t), nil, nil, logger)
			hs := NewHealthService("1.0.0", cache, clients, logger)

			status := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.wantStatus, status.Status)

			dataset, ok := status.Services["dataset"].(ServiceHealth)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, dataset.Status)

			ws, ok := status.Services["websocket"].(ServiceHealth)
			require.True(t, ok)
			assert.Equal(t, "3 clients connected", ws.Message)
		})
	}
}

func TestHealthService_ReadinessWithoutCache(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	hs := NewHealthService("1.0.0", nil, nil, logger)

	status := hs.ReadinessCheck(context.Background())
	assert.Equal(t, "not_ready", status.Status)
	assert.True(t, handler.ContainsMessage("readiness check failed"))
}

func TestHealthService_Version(t *testing.T) {
	hs := NewHealthServiceWithBuildInfo("2.0.0", "2026-01-01T00:00:00Z", "abc123", nil, nil, nil)

	info := hs.Version()
	assert.Equal(t, "2.0.0", info["version"])
	assert.Equal(t, "2026-01-01T00:00:00Z", info["build_time"])
	assert.Equal(t, "abc123", info["build_id"])

	plain := NewHealthService("2.0.0", nil, nil, nil).Version()
	assert.NotContains(t, plain, "build_time")
	assert.NotContains(t, plain, "build_id")
}
