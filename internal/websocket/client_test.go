package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cardash/internal/config"
	"cardash/internal/infrastructure"
	"cardash/internal/services"
	"cardash/internal/shared/testutil"
	"cardash/pkg/contracts/domain"
)

type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) Render(ctx context.Context, view domain.View) (services.RenderedView, error) {
	args := m.Called(ctx, view)
	rendered, _ := args.Get(0).(services.RenderedView)
	return rendered, args.Error(1)
}

type reply struct {
	Type      string                 `json:"type"`
	View      string                 `json:"view"`
	RequestID string                 `json:"request_id"`
	TraceID   string                 `json:"trace_id"`
	Timestamp string                 `json:"timestamp"`
	Data      json.RawMessage        `json:"data"`
	Error     map[string]interface{} `json:"error"`
}

func decodeReply(t *testing.T, data []byte) reply {
	t.Helper()
	var r reply
	require.NoError(t, json.Unmarshal(data, &r))
	return r
}

// nextReply takes the next queued frame off the client's send queue
func nextReply(t *testing.T, c *Client) reply {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send queue closed")
		return decodeReply(t, data)
	case <-time.After(time.Second):
		t.Fatal("no reply queued")
		return reply{}
	}
}

func upgradeRequest() *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	return r.WithContext(infrastructure.WithTraceID(r.Context(), "trace-ws-1"))
}

func newTestClient(t *testing.T, views ViewRenderer) (*Client, *MockConnection) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(views, config.WebSocketConfig{}, nil, logger)
	conn := NewMockConnection()
	return NewClient(hub, conn, upgradeRequest(), logger), conn
}

func TestNewClient(t *testing.T) {
	client, conn := newTestClient(t, &mockRenderer{})

	assert.NotEmpty(t, client.ID())
	assert.Equal(t, "trace-ws-1", client.traceID)
	assert.Equal(t, conn.RemoteAddress, client.remoteAddr)
	assert.Equal(t, sendBuffer, cap(client.send))
}

func TestNewClient_GeneratesTraceID(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(&mockRenderer{}, config.WebSocketConfig{}, nil, logger)
	client := NewClient(hub, NewMockConnection(), httptest.NewRequest(http.MethodGet, "/ws", nil), logger)
	assert.NotEmpty(t, client.traceID)
}

func TestClient_HandleSelection(t *testing.T) {
	graphic := &services.AggregateGraphicView{
		TopBrands: []domain.BrandCount{{Brand: "Toyota", Count: 4}},
	}

	tests := []struct {
		name      string
		message   string
		setup     func(m *mockRenderer)
		wantType  string
		wantView  string
		status    float64
		errorCode string
	}{
		{
			name:    "aggregate graphic",
			message: `{"view":"aggregate-graphic","request_id":"r1"}`,
			setup: func(m *mockRenderer) {
				m.On("Render", mock.Anything, domain.AggregateGraphic{}).Return(graphic, nil)
			},
			wantType: TypeView,
			wantView: "aggregate-graphic",
		},
		{
			name:    "menu title",
			message: `{"view":"Individual Car Brand Analysis","brand":"Toyota","request_id":"r1"}`,
			setup: func(m *mockRenderer) {
				m.On("Render", mock.Anything, domain.IndividualBrand{Brand: "Toyota"}).
					Return(&services.IndividualBrandView{Brand: "Toyota"}, nil)
			},
			wantType: TypeView,
			wantView: "individual-brand",
		},
		{
			name:     "brand missing",
			message:  `{"view":"individual-brand","request_id":"r1"}`,
			wantType: TypeError,
			status:   http.StatusBadRequest,
		},
		{
			name:     "unknown view",
			message:  `{"view":"sales-forecast","request_id":"r1"}`,
			wantType: TypeError,
			status:   http.StatusNotFound,
		},
		{
			name:    "brand not found",
			message: `{"view":"individual-brand","brand":"Tesla","request_id":"r1"}`,
			setup: func(m *mockRenderer) {
				m.On("Render", mock.Anything, domain.IndividualBrand{Brand: "Tesla"}).
					Return(nil, &services.UnknownBrandError{Brand: "Tesla"})
			},
			wantType:  TypeError,
			status:    http.StatusNotFound,
			errorCode: "BRAND_NOT_FOUND",
		},
		{
			name:    "dataset unavailable",
			message: `{"view":"aggregate-metrics","request_id":"r1"}`,
			setup: func(m *mockRenderer) {
				m.On("Render", mock.Anything, domain.AggregateMetrics{}).
					Return(nil, fmt.Errorf("%w: missing file", services.ErrDatasetUnavailable))
			},
			wantType:  TypeError,
			status:    http.StatusServiceUnavailable,
			errorCode: "DATA_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := &mockRenderer{}
			if tt.setup != nil {
				tt.setup(renderer)
			}
			client, _ := newTestClient(t, renderer)

			client.handle(context.Background(), []byte(tt.message))
			got := nextReply(t, client)

			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, "r1", got.RequestID)
			assert.Equal(t, "trace-ws-1", got.TraceID)
			assert.NotEmpty(t, got.Timestamp)

			if tt.wantType == TypeView {
				assert.Equal(t, tt.wantView, got.View)
				assert.NotEmpty(t, got.Data)
				assert.Nil(t, got.Error)
			} else {
				require.NotNil(t, got.Error)
				assert.Equal(t, tt.status, got.Error["status"])
				assert.Equal(t, "/ws", got.Error["instance"])
				if tt.errorCode != "" {
					assert.Equal(t, tt.errorCode, got.Error["error_code"])
				}
			}
			renderer.AssertExpectations(t)
		})
	}
}

func TestClient_HandleRenderedPayload(t *testing.T) {
	renderer := &mockRenderer{}
	renderer.On("Render", mock.Anything, domain.AggregateGraphic{}).Return(&services.AggregateGraphicView{
		TopBrands: []domain.BrandCount{{Brand: "Toyota", Count: 4}, {Brand: "Honda", Count: 2}},
	}, nil)
	client, _ := newTestClient(t, renderer)

	client.handle(context.Background(), []byte(`{"view":"aggregate-graphic"}`))
	got := nextReply(t, client)

	var data struct {
		TopBrands []domain.BrandCount `json:"top_brands"`
	}
	require.NoError(t, json.Unmarshal(got.Data, &data))
	assert.Equal(t, []domain.BrandCount{{Brand: "Toyota", Count: 4}, {Brand: "Honda", Count: 2}}, data.TopBrands)
}

func TestClient_HandleInvalidJSON(t *testing.T) {
	client, _ := newTestClient(t, &mockRenderer{})

	client.handle(context.Background(), []byte(`{"view":`))
	got := nextReply(t, client)

	assert.Equal(t, TypeError, got.Type)
	require.NotNil(t, got.Error)
	assert.Equal(t, float64(http.StatusBadRequest), got.Error["status"])
	assert.Equal(t, "INVALID_REQUEST", got.Error["error_code"])
}

func TestClient_HandleHeartbeat(t *testing.T) {
	renderer := &mockRenderer{}
	client, _ := newTestClient(t, renderer)

	client.handle(context.Background(), []byte(`{"type":"heartbeat"}`))

	assert.Empty(t, client.send)
	renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestClient_EnqueueAfterClose(t *testing.T) {
	client, _ := newTestClient(t, &mockRenderer{})

	assert.True(t, client.enqueue([]byte("one")))
	client.closeSend()
	client.closeSend()
	assert.False(t, client.enqueue([]byte("two")))
}

func TestClient_EnqueueFullQueue(t *testing.T) {
	client, _ := newTestClient(t, &mockRenderer{})

	for i := 0; i < sendBuffer; i++ {
		require.True(t, client.enqueue([]byte("x")))
	}
	assert.False(t, client.enqueue([]byte("overflow")))
}
