package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1 << 20
)

// ErrClosed is returned by WriteFrame once the connection is closed.
var ErrClosed = errors.New("connection closed")

// Conn wraps a websocket connection. Reads must come from a single
// goroutine and writes from a single goroutine; Close may be called from
// either.
type Conn struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

// NewConn wraps an established websocket connection.
func NewConn(conn *websocket.Conn) *Conn {
	conn.SetReadLimit(maxMessageSize)
	return &Conn{conn: conn}
}

// ReadFrame blocks until the next data frame arrives.
// Any read error marks the connection closed.
func (c *Conn) ReadFrame() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.markClosed()
			return nil, err
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// WriteFrame sends data as a single text frame.
func (c *Conn) WriteFrame(data []byte) error {
	if c.IsClosed() {
		return ErrClosed
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Close sends a normal close frame when possible and releases the
// underlying connection. It is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	wasClosed := c.closed
	c.closed = true
	c.mu.Unlock()

	if !wasClosed {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	}
	return c.conn.Close()
}

// IsClosed returns true if the connection has been closed by either side.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// IsNormalClose reports whether err is a clean close initiated by the peer.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
