package websocket

import (
	"context"
	"time"

	"cardash/internal/services"
	"cardash/pkg/contracts/domain"
)

// Connection is the part of a websocket connection the client pumps use.
// It allows the pumps to run against a mock in tests.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error

	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)

	RemoteAddr() string
}

// ViewRenderer renders the view selected from the menu
type ViewRenderer interface {
	Render(ctx context.Context, view domain.View) (services.RenderedView, error)
}
