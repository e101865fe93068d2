package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/remote-agent-terminal/ttyclient/internal/bridge"
	"github.com/remote-agent-terminal/ttyclient/internal/heartbeat"
	"github.com/remote-agent-terminal/ttyclient/internal/logging"
	"github.com/remote-agent-terminal/ttyclient/internal/protocol"
	"github.com/remote-agent-terminal/ttyclient/internal/ws"
)

const eventQueueSize = 256

// Config holds the per-controller connection settings.
type Config struct {
	// URL is the websocket endpoint.
	URL string

	// Arguments is the page query string sent in the init message.
	Arguments string

	// AuthToken is sent in the init message; empty unless supplied.
	AuthToken string

	// HeartbeatInterval is the ping period; 0 means heartbeat.DefaultInterval.
	HeartbeatInterval time.Duration
}

// Lifecycle receives the two terminal lifecycle hooks. *bridge.Adapter
// implements it.
type Lifecycle interface {
	OnActive(out bridge.Outbound)
	OnClosed()
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for heartbeats and reconnect delays.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithObserver adds an observer of Session state changes.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// Controller drives Sessions against a terminal.
type Controller struct {
	cfg       Config
	dialer    Dialer
	sink      bridge.Sink
	lifecycle Lifecycle
	clock     clockwork.Clock
	log       logging.Logger
	observers []Observer

	policy   ReconnectPolicy
	events   chan any
	quit     chan struct{}
	current  *Session
	attempts int

	// At most one reconnect is pending; reconnectSeq identifies it so a
	// timer that fires after being replaced is ignored.
	reconnect    clockwork.Timer
	reconnectSeq uint64
}

// NewController creates a Controller. sink receives decoded output and
// directives; lifecycle is told when a Session becomes active or closes.
func NewController(cfg Config, dialer Dialer, sink bridge.Sink, lifecycle Lifecycle, opts ...Option) *Controller {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = heartbeat.DefaultInterval
	}

	c := &Controller{
		cfg:       cfg,
		dialer:    dialer,
		sink:      sink,
		lifecycle: lifecycle,
		clock:     clockwork.NewRealClock(),
		log:       logging.Nop(),
		events:    make(chan any, eventQueueSize),
		quit:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logging.Field{Key: "component", Value: "session"})
	return c
}

// Event types posted to the controller loop.
type (
	dialedEvent struct {
		s    *Session
		conn Conn
		err  error
	}
	frameEvent struct {
		s    *Session
		data []byte
	}
	closedEvent struct {
		s   *Session
		err error
	}
	pingEvent struct {
		s *Session
	}
	inputEvent struct {
		s    *Session
		text string
	}
	resizeEvent struct {
		s             *Session
		columns, rows int
	}
	reconnectEvent struct {
		seq uint64
	}
)

// Run starts the first Session and processes events until the context is
// done or a Session closes with reconnecting disabled. It returns an error
// only when that last Session never became active.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.quit)

	c.startSession(ctx)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case ev := <-c.events:
			finished, err := c.handle(ctx, ev)
			if finished {
				return err
			}
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev any) (bool, error) {
	switch ev := ev.(type) {
	case dialedEvent:
		return c.handleDialed(ctx, ev)
	case frameEvent:
		if c.isActive(ev.s) {
			c.dispatch(ev.data)
		}
	case closedEvent:
		if c.isLive(ev.s) {
			return c.finishSession(ctx, ev.s, ev.err)
		}
	case pingEvent:
		c.send(ev.s, protocol.MessageTypePing, protocol.PingContent)
	case inputEvent:
		c.send(ev.s, protocol.MessageTypeInput, ev.text)
	case resizeEvent:
		content, err := protocol.EncodeResize(ev.columns, ev.rows)
		if err != nil {
			c.log.Warn("dropping resize", logging.Err(err))
			break
		}
		c.send(ev.s, protocol.MessageTypeResize, content)
	case reconnectEvent:
		if c.reconnect != nil && ev.seq == c.reconnectSeq {
			c.reconnect = nil
			c.startSession(ctx)
		}
	}
	return false, nil
}

func (c *Controller) handleDialed(ctx context.Context, ev dialedEvent) (bool, error) {
	s := ev.s
	if s != c.current || s.state != StateConnecting {
		if ev.conn != nil {
			ev.conn.Close()
		}
		return false, nil
	}
	if ev.err != nil {
		return c.finishSession(ctx, s, ev.err)
	}

	s.conn = ev.conn
	s.state = StateActive
	s.activeAt = c.clock.Now()
	c.log.Info("session active", logging.Field{Key: "session", Value: s.ID}, logging.Field{Key: "url", Value: s.URL})

	c.sendInit(s)
	s.heartbeat.Start(c.cfg.HeartbeatInterval, func() {
		c.post(s, pingEvent{s: s})
	})
	go c.readLoop(s, ev.conn)
	c.lifecycle.OnActive(outbound{c: c, s: s})

	c.notify(s)
	return false, nil
}

func (c *Controller) sendInit(s *Session) {
	content, err := protocol.EncodeInit(c.cfg.Arguments, c.cfg.AuthToken)
	if err != nil {
		c.log.Error("failed to build init message", logging.Err(err))
		return
	}
	c.send(s, protocol.MessageTypeInit, content)
}

func (c *Controller) startSession(ctx context.Context) {
	c.attempts++
	s := newSession(c.attempts, c.cfg.URL, heartbeat.New(c.clock), c.clock.Now())
	c.current = s

	c.log.Debug("connecting", logging.Field{Key: "session", Value: s.ID}, logging.Field{Key: "attempt", Value: s.Attempt})
	c.notify(s)

	go func() {
		conn, err := c.dialer.Dial(ctx, s.URL)
		select {
		case c.events <- dialedEvent{s: s, conn: conn, err: err}:
		case <-s.done:
			if conn != nil {
				conn.Close()
			}
		}
	}()
}

// finishSession tears s down, then consults the reconnect policy.
func (c *Controller) finishSession(ctx context.Context, s *Session, cause error) (bool, error) {
	wasActive := s.state == StateActive
	c.teardown(s, cause)

	if c.policy.Enabled() {
		c.scheduleReconnect(c.policy.Delay())
		return false, nil
	}

	if !wasActive && cause != nil {
		return true, fmt.Errorf("attempt %d: %w", s.Attempt, cause)
	}
	return true, nil
}

// teardown moves s to Closed and releases everything it owns. The heartbeat
// is stopped and local input detached before it returns. A failed dial
// closes the terminal the same way a dropped connection does.
func (c *Controller) teardown(s *Session, cause error) {
	if s.state == StateClosed {
		return
	}

	s.state = StateClosed
	s.closedAt = c.clock.Now()
	s.cause = cause
	close(s.done)

	s.heartbeat.Stop()
	if s.conn != nil {
		s.conn.Close()
	}
	c.lifecycle.OnClosed()

	if cause != nil && !ws.IsNormalClose(cause) {
		c.log.Warn("session closed", logging.Field{Key: "session", Value: s.ID}, logging.Err(cause))
	} else {
		c.log.Info("session closed", logging.Field{Key: "session", Value: s.ID})
	}
	c.notify(s)
}

func (c *Controller) shutdown() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.current != nil {
		c.teardown(c.current, nil)
	}
}

func (c *Controller) scheduleReconnect(delay time.Duration) {
	if c.reconnect != nil {
		c.reconnect.Stop()
	}

	c.reconnectSeq++
	seq := c.reconnectSeq
	c.log.Info("reconnect scheduled", logging.Field{Key: "delay", Value: delay.String()})

	c.reconnect = c.clock.AfterFunc(delay, func() {
		select {
		case c.events <- reconnectEvent{seq: seq}:
		case <-c.quit:
		}
	})
}

func (c *Controller) readLoop(s *Session, conn Conn) {
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			c.post(s, closedEvent{s: s, err: err})
			return
		}
		c.post(s, frameEvent{s: s, data: data})
	}
}

// post queues ev unless s has started tearing down.
func (c *Controller) post(s *Session, ev any) {
	select {
	case c.events <- ev:
	case <-s.done:
	}
}

// send writes one message on s. Sends on a Session that is no longer
// active, or whose connection has closed underneath it, are dropped.
func (c *Controller) send(s *Session, t protocol.MessageType, content string) {
	if !c.isActive(s) {
		return
	}

	data, err := protocol.Encode(t, content)
	if err != nil {
		c.log.Warn("failed to encode message", logging.Field{Key: "type", Value: string(t)}, logging.Err(err))
		return
	}

	if err := s.conn.WriteFrame(data); err != nil {
		if errors.Is(err, ws.ErrClosed) {
			return
		}
		c.log.Warn("failed to send message", logging.Field{Key: "type", Value: string(t)}, logging.Err(err))
	}
}

func (c *Controller) isLive(s *Session) bool {
	return s == c.current && s.state != StateClosed
}

func (c *Controller) isActive(s *Session) bool {
	return s == c.current && s.state == StateActive
}

func (c *Controller) notify(s *Session) {
	info := s.info(c.policy.Delay())
	for _, o := range c.observers {
		o.OnStateChange(info)
	}
}

// outbound is the bridge.Outbound handed to the terminal for one Session.
type outbound struct {
	c *Controller
	s *Session
}

func (o outbound) SendInput(text string) {
	o.c.post(o.s, inputEvent{s: o.s, text: text})
}

func (o outbound) SendResize(columns, rows int) {
	o.c.post(o.s, resizeEvent{s: o.s, columns: columns, rows: rows})
}
