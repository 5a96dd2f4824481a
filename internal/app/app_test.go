package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardash/internal/config"
	"cardash/internal/shared/testutil"
	ws "cardash/internal/websocket"
)

// discardLogger is used because background goroutines may log after a test ends
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, datasetPath string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Dataset.Path = datasetPath
	cfg.Security.RateLimit.Enabled = false
	cfg.Telemetry.Environment = "test"
	return cfg
}

func newTestApp(t *testing.T, datasetPath string) (*Application, *httptest.Server) {
	t.Helper()
	application, err := New(testConfig(t, datasetPath), discardLogger())
	require.NoError(t, err)

	application.Services.WebSocket.Start()
	srv := httptest.NewServer(application.Router)
	t.Cleanup(func() {
		application.Services.WebSocket.Stop()
		srv.Close()
	})
	return application, srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestNew_Wiring(t *testing.T) {
	application, err := New(testConfig(t, testutil.WriteSampleDataset(t)), discardLogger())
	require.NoError(t, err)

	require.NotNil(t, application.Router)
	require.NotNil(t, application.Server)
	require.NotNil(t, application.Services)
	assert.NotNil(t, application.Services.Dashboard)
	assert.NotNil(t, application.Services.WebSocket)
	assert.NotNil(t, application.OTelProviders.PrometheusHTTP)
	assert.Equal(t, ":8080", application.Server.Addr)
	assert.Equal(t, 1<<20, application.Server.MaxHeaderBytes)
}

func TestApplication_Routes(t *testing.T) {
	_, srv := newTestApp(t, testutil.WriteSampleDataset(t))

	tests := []struct {
		name        string
		path        string
		status      int
		contentType string
		contains    string
	}{
		{"readiness", "/api/health/ready", http.StatusOK, "application/json", `"status":"ready"`},
		{"version", "/api/version", http.StatusOK, "application/json", `"version"`},
		{"metric cards", "/api/views/aggregate-metrics", http.StatusOK, "application/json", `"cards"`},
		{"brand picker", "/api/views/brands?top=1", http.StatusOK, "application/json", `"Toyota"`},
		{"unknown brand", "/api/views/brands/Tesla", http.StatusNotFound, "application/json", "/errors/brand/not-found"},
		{"csv export", "/api/export/deviations.csv", http.StatusOK, "text/csv", "Car Brand"},
		{"index page", "/", http.StatusOK, "text/html", config.AppName},
		{"brand page", "/views/individual-brand?brand=BMW", http.StatusOK, "text/html", "Individual Brand: BMW"},
		{"unknown route", "/nowhere", http.StatusNotFound, "application/json", "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path)

			assert.Equal(t, tt.status, resp.StatusCode, body)
			assert.Contains(t, resp.Header.Get("Content-Type"), tt.contentType)
			assert.Contains(t, body, tt.contains)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}

func TestApplication_SecurityHeaders(t *testing.T) {
	_, srv := newTestApp(t, testutil.WriteSampleDataset(t))

	resp, _ := get(t, srv.URL+"/views/aggregate-graphic")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "connect-src 'self' ws: wss:")
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
}

func TestApplication_MissingDataset(t *testing.T) {
	_, srv := newTestApp(t, filepath.Join(t.TempDir(), "export_car_df.csv"))

	resp, body := get(t, srv.URL+"/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, `"not_ready"`)

	resp, body = get(t, srv.URL+"/api/views/aggregate-graphic")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "/errors/data/unavailable")

	// liveness does not depend on the dataset
	resp, _ = get(t, srv.URL+"/api/health/live")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApplication_Metrics(t *testing.T) {
	_, srv := newTestApp(t, testutil.WriteSampleDataset(t))

	resp, _ := get(t, srv.URL+"/api/views/aggregate-metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "http_requests")
	assert.Contains(t, body, "view_renders")
}

func TestApplication_WebSocket(t *testing.T) {
	_, srv := newTestApp(t, testutil.WriteSampleDataset(t))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var hello ws.Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, ws.TypeConnection, hello.Type)

	require.NoError(t, conn.WriteJSON(ws.Selection{View: "aggregate-graphic"}))
	var reply struct {
		Type string          `json:"type"`
		View string          `json:"view"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, ws.TypeView, reply.Type)
	assert.Equal(t, "aggregate-graphic", reply.View)
	assert.Contains(t, string(reply.Data), "Toyota")
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestApplication_StartStop(t *testing.T) {
	cfg := testConfig(t, testutil.WriteSampleDataset(t))
	cfg.Server.Port = freePort(t)
	cfg.Server.ShutdownTimeout = 5 * time.Second

	application, err := New(cfg, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, application.Start(ctx, cancel))

	liveURL := fmt.Sprintf("http://127.0.0.1:%d/api/health/live", cfg.Server.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(liveURL)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, application.Stop(context.Background()))
	assert.NoError(t, ctx.Err(), "a clean shutdown does not cancel the run context")
	assert.Equal(t, 0, application.Services.WebSocket.ClientCount())

	_, err = http.Get(liveURL)
	assert.Error(t, err)
}
