package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errMockClosed = errors.New("connection closed")

// MockConnection is an in-memory Connection. Reads block until a frame
// is sent with Send, the peer hangs up or the connection is closed.
type MockConnection struct {
	mu sync.Mutex

	incoming chan MockMessage
	done     chan struct{}
	closed   bool
	hungUp   bool

	written []MockMessage

	ReadDeadline  time.Time
	WriteDeadline time.Time
	ReadLimit     int64
	PongHandler   func(string) error
	RemoteAddress string
}

// MockMessage is a frame read from or written to a MockConnection
type MockMessage struct {
	Type int
	Data []byte
}

func NewMockConnection() *MockConnection {
	return &MockConnection{
		incoming:      make(chan MockMessage, 16),
		done:          make(chan struct{}),
		RemoteAddress: "127.0.0.1:50000",
	}
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errMockClosed
	}
	m.written = append(m.written, MockMessage{Type: messageType, Data: data})
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg, ok := <-m.incoming:
		if !ok {
			return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
		}
		return msg.Type, msg.Data, nil
	case <-m.done:
		return 0, nil, errMockClosed
	}
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

func (m *MockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadDeadline = t
	return nil
}

func (m *MockConnection) SetWriteDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteDeadline = t
	return nil
}

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PongHandler = h
}

func (m *MockConnection) RemoteAddr() string {
	return m.RemoteAddress
}

// Send queues a text frame for the next ReadMessage
func (m *MockConnection) Send(data string) {
	m.incoming <- MockMessage{Type: websocket.TextMessage, Data: []byte(data)}
}

// HangUp makes further reads fail with a normal close
func (m *MockConnection) HangUp() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hungUp {
		m.hungUp = true
		close(m.incoming)
	}
}

// Written returns the frames written so far
func (m *MockConnection) Written() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockMessage(nil), m.written...)
}

// TextFrames returns the payloads of the text frames written so far
func (m *MockConnection) TextFrames() [][]byte {
	var frames [][]byte
	for _, msg := range m.Written() {
		if msg.Type == websocket.TextMessage {
			frames = append(frames, msg.Data)
		}
	}
	return frames
}

func (m *MockConnection) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
