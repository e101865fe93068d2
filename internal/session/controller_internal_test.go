package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remote-agent-terminal/ttyclient/internal/bridge"
	"github.com/remote-agent-terminal/ttyclient/internal/protocol"
	"github.com/remote-agent-terminal/ttyclient/internal/terminal"
	"github.com/remote-agent-terminal/ttyclient/internal/ws"
)

// recordingConn records every write, including writes after Close.
type recordingConn struct {
	written chan protocol.Message
	closed  chan struct{}
}

func (c *recordingConn) ReadFrame() ([]byte, error) {
	<-c.closed
	return nil, ws.ErrClosed
}

func (c *recordingConn) WriteFrame(data []byte) error {
	msg, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	c.written <- msg
	return nil
}

func (c *recordingConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return nil
}

// activeHook hands out the Session each time one becomes active.
type activeHook struct {
	active chan *Session
}

func (h activeHook) OnActive(out bridge.Outbound) {
	h.active <- out.(outbound).s
}

func (h activeHook) OnClosed() {}

func TestControllerDropsPingQueuedBehindClose(t *testing.T) {
	conn := &recordingConn{
		written: make(chan protocol.Message, 16),
		closed:  make(chan struct{}),
	}
	dials := 0
	dialer := DialerFunc(func(ctx context.Context, url string) (Conn, error) {
		dials++
		if dials == 1 {
			return conn, nil
		}
		return nil, io.ErrUnexpectedEOF
	})

	clock := clockwork.NewFakeClock()
	hook := activeHook{active: make(chan *Session, 4)}
	states := make(chan Info, 64)
	c := NewController(Config{URL: "ws://localhost/terminal/abc/ws"}, dialer, terminal.NewMemory(), hook,
		WithClock(clock),
		WithObserver(ObserverFunc(func(info Info) { states <- info })),
	)
	c.policy.Set(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	var s *Session
	select {
	case s = <-hook.active:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not become active")
	}
	first := <-conn.written
	require.Equal(t, protocol.MessageTypeInit, first.Type)

	// A heartbeat tick already on its way when the peer goes away.
	c.events <- closedEvent{s: s, err: io.EOF}
	c.events <- pingEvent{s: s}

	// The reconnect event queues behind the ping, so once the second
	// attempt starts the ping has been handled.
	waitFor := func(state State, attempt int) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case info := <-states:
				if info.State == state && info.Attempt == attempt {
					return
				}
			case <-deadline:
				t.Fatalf("timed out waiting for attempt %d to be %s", attempt, state)
			}
		}
	}
	waitFor(StateClosed, 1)
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitFor(StateConnecting, 2)

	select {
	case msg := <-conn.written:
		t.Fatalf("unexpected %s message after close", msg.Type)
	default:
	}
	assert.True(t, s.heartbeat != nil && !s.heartbeat.Running())
}
