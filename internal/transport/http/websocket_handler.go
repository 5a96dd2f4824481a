package http

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"cardash/internal/config"
	ws "cardash/internal/websocket"
)

// WebSocketHandler upgrades /ws requests and hands the connection to the hub
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// handed to clients, which add their own component
	clientLogger *slog.Logger
}

// NewWebSocketHandler creates the handler. Browsers are accepted from
// allowedOrigins, or from any origin when devMode is set. Requests without
// an Origin header are always accepted.
func NewWebSocketHandler(hub *ws.Hub, settings config.WebSocketConfig, allowedOrigins []string, devMode bool, logger *slog.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:          hub,
		logger:       logger.With(slog.String("component", "websocket_handler")),
		clientLogger: logger,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  settings.ReadBufferSize,
		WriteBufferSize: settings.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || devMode || slices.Contains(allowedOrigins, "*") {
				return true
			}
			if slices.Contains(allowedOrigins, origin) {
				return true
			}
			h.logger.WarnContext(r.Context(), "websocket origin not allowed",
				slog.String("origin", origin),
				slog.Any("allowed_origins", allowedOrigins))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.ErrorContext(r.Context(), "websocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			http.Error(w, http.StatusText(status), status)
		},
	}
	return h
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered the request
		return
	}

	h.logger.InfoContext(r.Context(), "websocket connection established",
		slog.String("remote_addr", r.RemoteAddr))
	ws.ServeWS(h.hub, conn, r, h.clientLogger)
}
