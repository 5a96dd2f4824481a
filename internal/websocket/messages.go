package websocket

import (
	"encoding/json"
	"time"

	apperrors "cardash/internal/errors"
	"cardash/pkg/contracts/domain"
)

// Message types sent to clients
const (
	TypeConnection = "connection"
	TypeView       = "view"
	TypeError      = "error"
	TypeStatus     = "status"

	// TypeHeartbeat is sent by the browser to keep the socket open
	TypeHeartbeat = "heartbeat"
)

// Message is the envelope of every frame the server writes
type Message struct {
	Type      string                    `json:"type"`
	View      domain.ViewKind           `json:"view,omitempty"`
	Data      interface{}               `json:"data,omitempty"`
	Error     *apperrors.ProblemDetails `json:"error,omitempty"`
	RequestID string                    `json:"request_id,omitempty"`
	Timestamp string                    `json:"timestamp"`
	TraceID   string                    `json:"trace_id,omitempty"`
}

// Selection is a menu choice sent by a client
type Selection struct {
	Type      string `json:"type,omitempty"`
	View      string `json:"view"`
	Brand     string `json:"brand,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ViewOption is one menu entry announced on connect
type ViewOption struct {
	Name  domain.ViewKind `json:"name"`
	Title string          `json:"title"`
}

// ConnectionInfo is the payload of the connection message
type ConnectionInfo struct {
	Status   string       `json:"status"`
	ClientID string       `json:"client_id"`
	Views    []ViewOption `json:"views"`
}

// StatusInfo is the payload of a status broadcast
type StatusInfo struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func menuOptions() []ViewOption {
	options := make([]ViewOption, 0, len(domain.ViewKinds))
	for _, kind := range domain.ViewKinds {
		options = append(options, ViewOption{Name: kind, Title: kind.Title()})
	}
	return options
}

func encode(msg Message) ([]byte, error) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().Format(time.RFC3339)
	}
	return json.Marshal(msg)
}
