package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cardash/internal/config"
	apperrors "cardash/internal/errors"
	"cardash/internal/infrastructure"
	"cardash/internal/services"
	"cardash/pkg/contracts/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = config.WebSocketWriteWait

	// Time allowed to render one selection
	renderTimeout = config.DefaultRequestTimeout

	// Maximum size of a selection sent by the peer
	maxMessageSize = 4096

	// Outbound queue length per client
	sendBuffer = 64
)

// Client is a middleman between one websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection

	// upgrade request, used as the instance of problem documents
	request *http.Request

	// Buffered channel of outbound messages
	send   chan []byte
	sendMu sync.Mutex
	closed bool

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger

	messagesSent     int64
	messagesReceived int64
}

// NewClient creates a client for conn. r is the upgrade request.
func NewClient(hub *Hub, conn Connection, r *http.Request, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	traceID := infrastructure.GetTraceID(r.Context())
	if traceID == "" {
		traceID = infrastructure.GenerateTraceID()
	}

	id := uuid.New().String()
	return &Client{
		hub:         hub,
		conn:        conn,
		request:     r,
		send:        make(chan []byte, sendBuffer),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// ID returns the client identifier announced in the connection message
func (c *Client) ID() string {
	return c.id
}

// context detaches from the upgrade request, which ends once the
// connection is hijacked, but keeps its trace ID
func (c *Client) context() context.Context {
	return infrastructure.WithTraceID(context.Background(), c.traceID)
}

// enqueue queues message without blocking. It reports false when the
// queue is full or already closed.
func (c *Client) enqueue(message []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) reply(ctx context.Context, msg Message) {
	msg.TraceID = c.traceID
	data, err := encode(msg)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to encode reply",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()))
		return
	}
	if !c.enqueue(data) {
		c.logger.WarnContext(ctx, "reply dropped",
			slog.String("type", msg.Type),
			slog.Int("message_size", len(data)))
	}
}

// ReadPump reads menu selections until the connection fails and answers
// each one with the rendered view or a problem document
func (c *Client) ReadPump() {
	ctx := c.context()
	defer func() {
		c.logger.InfoContext(ctx, "websocket client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived))
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	pongWait := c.hub.settings.PongWait
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.ErrorContext(ctx, "unexpected websocket close",
					slog.String("error", err.Error()))
			}
			return
		}
		c.messagesReceived++
		c.handle(ctx, bytes.TrimSpace(message))
	}
}

func (c *Client) handle(ctx context.Context, message []byte) {
	var sel Selection
	if err := json.Unmarshal(message, &sel); err != nil {
		infrastructure.RecordWebSocketMessage(ctx, c.hub.metrics, "inbound", "invalid")
		c.fail(ctx, "", apperrors.InvalidRequestWithError(err))
		return
	}
	if sel.Type == TypeHeartbeat {
		return
	}
	infrastructure.RecordWebSocketMessage(ctx, c.hub.metrics, "inbound", "selection")

	view, err := domain.ParseView(sel.View, sel.Brand)
	if err != nil {
		c.fail(ctx, sel.RequestID, err)
		return
	}

	renderCtx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	rendered, err := c.hub.views.Render(renderCtx, view)
	if err != nil {
		c.fail(ctx, sel.RequestID, err)
		return
	}

	c.logger.DebugContext(ctx, "selection rendered",
		slog.String("view", string(view.Kind())),
		slog.String("request_id", sel.RequestID))
	c.reply(ctx, Message{
		Type:      TypeView,
		View:      view.Kind(),
		Data:      rendered,
		RequestID: sel.RequestID,
	})
}

func (c *Client) fail(ctx context.Context, requestID string, err error) {
	problem := c.hub.problems.ErrorToProblem(services.ToAPIError(err), c.request)
	c.logger.WarnContext(ctx, "selection failed",
		slog.Int("status", problem.Status),
		slog.String("error", err.Error()))
	c.reply(ctx, Message{
		Type:      TypeError,
		Error:     problem,
		RequestID: requestID,
	})
}

// WritePump writes queued messages and keeps the connection alive with pings
func (c *Client) WritePump() {
	ctx := c.context()
	ticker := time.NewTicker(c.hub.settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.DebugContext(ctx, "websocket write pump stopped",
			slog.Int64("messages_sent", c.messagesSent))
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub closed the queue
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(ctx, "websocket write failed",
					slog.String("error", err.Error()))
				return
			}
			c.messagesSent++
			infrastructure.RecordWebSocketMessage(ctx, c.hub.metrics, "outbound", "message")

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(ctx, "websocket ping failed",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// ServeWS registers an upgraded connection with hub and starts its pumps.
// The connection is closed straight away when the hub has stopped.
func ServeWS(hub *Hub, conn *websocket.Conn, r *http.Request, logger *slog.Logger) {
	client := NewClient(hub, NewConnectionWrapper(conn), r, logger)
	if !hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
