package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultHandshakeTimeout bounds the opening handshake.
const DefaultHandshakeTimeout = 10 * time.Second

// Dialer opens websocket connections to a terminal endpoint.
type Dialer struct {
	dialer *websocket.Dialer
	header http.Header
}

// NewDialer creates a Dialer with the given handshake timeout.
// A non-positive timeout uses DefaultHandshakeTimeout.
func NewDialer(handshakeTimeout time.Duration) *Dialer {
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	return &Dialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
		header: make(http.Header),
	}
}

// SetHeader sets a header sent with every handshake request.
func (d *Dialer) SetHeader(key, value string) {
	d.header.Set(key, value)
}

// Dial connects to url.
func (d *Dialer) Dial(ctx context.Context, url string) (*Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return NewConn(conn), nil
}
