package wstest

import (
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/remote-agent-terminal/ttyclient/internal/protocol"
)

// PeerConn is the server side of one client connection.
type PeerConn struct {
	ID    string
	Query string

	conn     *websocket.Conn
	autoPong bool
	messages chan protocol.Message

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Next returns the next message sent by the client.
func (c *PeerConn) Next(t testing.TB) protocol.Message {
	t.Helper()
	select {
	case msg := <-c.messages:
		return msg
	case <-time.After(DefaultTimeout):
		t.Fatal("timed out waiting for a client message")
		return protocol.Message{}
	}
}

// Expect returns the next message and fails unless it has type mt.
func (c *PeerConn) Expect(t testing.TB, mt protocol.MessageType) protocol.Message {
	t.Helper()
	msg := c.Next(t)
	if msg.Type != mt {
		t.Fatalf("expected %s message, got %s (%q)", mt, msg.Type, msg.Content)
	}
	return msg
}

// ExpectNone fails the test if the client sends anything within d.
func (c *PeerConn) ExpectNone(t testing.TB, d time.Duration) {
	t.Helper()
	select {
	case msg := <-c.messages:
		t.Fatalf("unexpected %s message (%q)", msg.Type, msg.Content)
	case <-time.After(d):
	}
}

// Send writes a protocol message to the client.
func (c *PeerConn) Send(t testing.TB, mt protocol.MessageType, content string) {
	t.Helper()
	data, err := protocol.Encode(mt, content)
	if err != nil {
		t.Fatalf("encode %s: %v", mt, err)
	}
	c.SendRaw(t, data)
}

// SendOutput writes text as a base64 output message.
func (c *PeerConn) SendOutput(t testing.TB, text string) {
	t.Helper()
	c.Send(t, protocol.MessageTypeOutput, protocol.EncodeOutput(text))
}

// SendRaw writes an arbitrary text frame.
func (c *PeerConn) SendRaw(t testing.TB, data []byte) {
	t.Helper()
	if err := c.write(data); err != nil {
		t.Fatalf("write to client: %v", err)
	}
}

// Done is closed once the client connection has gone away.
func (c *PeerConn) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection from the server side.
func (c *PeerConn) Close() {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()
	c.conn.Close()
}

func (c *PeerConn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(DefaultTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *PeerConn) readPump() {
	defer c.closeOnce.Do(func() { close(c.done) })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			continue
		}

		if msg.Type == protocol.MessageTypePing && c.autoPong {
			if pong, err := protocol.Encode(protocol.MessageTypePong, ""); err == nil {
				c.write(pong)
			}
		}

		select {
		case c.messages <- msg:
		default:
		}
	}
}
