package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cardash/internal/config"
	apperrors "cardash/internal/errors"
	"cardash/internal/infrastructure"
)

// Hub maintains the set of active clients, answers their menu selections
// and broadcasts status messages to all of them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	views    ViewRenderer
	problems *apperrors.ErrorHandler
	metrics  *infrastructure.DashboardMetrics
	settings config.WebSocketConfig
	logger   *slog.Logger

	quit    chan struct{}
	running bool
	stopped bool
}

// NewHub creates a hub that renders selections with views. Zero settings
// fall back to the package defaults; metrics may be nil.
func NewHub(views ViewRenderer, settings config.WebSocketConfig, metrics *infrastructure.DashboardMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if settings.PongWait <= 0 {
		settings.PongWait = config.WebSocketPongWait
	}
	if settings.PingPeriod <= 0 || settings.PingPeriod >= settings.PongWait {
		settings.PingPeriod = (settings.PongWait * 9) / 10
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		views:      views,
		problems:   apperrors.NewErrorHandler(logger, false),
		metrics:    metrics,
		settings:   settings,
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
	}
}

// Start runs the hub loop in the background. It is a no-op once started
// or after Stop.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running || h.stopped {
		return
	}
	h.running = true
	go h.Run()
}

// Run is the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "closed")

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			failed := 0
			for _, client := range clients {
				if !client.enqueue(message) {
					failed++
					h.removeClient(client, "send buffer full")
				}
			}

			h.logger.Debug("broadcast delivered",
				slog.Int("client_count", len(clients)),
				slog.Int("failed", failed),
				slog.Int("message_size", len(message)))
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		client.closeSend()
		return
	}
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	infrastructure.RecordWebSocketConnection(ctx, h.metrics, 1)
	h.logger.InfoContext(ctx, "client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	client.reply(ctx, Message{
		Type: TypeConnection,
		Data: ConnectionInfo{
			Status:   "connected",
			ClientID: client.id,
			Views:    menuOptions(),
		},
	})
}

func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()

	client.closeSend()

	ctx := client.context()
	infrastructure.RecordWebSocketConnection(ctx, h.metrics, -1)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client and closes its send queue
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Broadcast sends message to every connected client
func (h *Hub) Broadcast(message Message) {
	data, err := encode(message)
	if err != nil {
		h.logger.Error("failed to encode broadcast",
			slog.String("type", message.Type),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.quit:
	}
}

// BroadcastStatus tells every client about a server state change
func (h *Hub) BroadcastStatus(status, message string) {
	h.Broadcast(Message{
		Type: TypeStatus,
		Data: StatusInfo{Status: status, Message: message},
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop ends the hub loop and closes every client's send queue, which makes
// the write pumps send a close frame
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.running = false
	close(h.quit)

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.closeSend()
		infrastructure.RecordWebSocketConnection(context.Background(), h.metrics, -1)
	}
	h.logger.Info("hub stopped", slog.Int("closed_clients", len(clients)))
}
