package session

import (
	"context"

	"github.com/remote-agent-terminal/ttyclient/internal/ws"
)

// Conn is a frame-oriented connection. ReadFrame is called from a single
// reader goroutine; WriteFrame and Close from the controller. WriteFrame
// returns ws.ErrClosed once the connection is closed.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
}

// Dialer opens a Conn to url.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}

// NewWebSocketDialer adapts a websocket dialer to Dialer.
func NewWebSocketDialer(d *ws.Dialer) Dialer {
	return DialerFunc(func(ctx context.Context, url string) (Conn, error) {
		conn, err := d.Dial(ctx, url)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}
