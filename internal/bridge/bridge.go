// Package bridge defines the contract between the session protocol and the
// terminal that renders it.
//
// A terminal collaborator exposes a Sink for decoded output and control
// directives, and a stream of local input Events plus a ready signal. The
// Adapter wires that stream to a session's outbound path while the session
// is active and detaches it when the session closes.
package bridge

import "sync"

// OverlayConnectionClosed is shown when a session closes.
const OverlayConnectionClosed = "Connection Closed"

// Sink accepts decoded output and control directives.
type Sink interface {
	// WriteUTF8 renders text received from the remote process.
	WriteUTF8(text string)
	// SetWindowTitle sets the window or tab title.
	SetWindowTitle(title string)
	// SetPreference merges a single preference into the terminal's state.
	SetPreference(key string, value any)
	// ShowOverlay displays a banner over the terminal.
	ShowOverlay(message string)
}

// Terminal is the full collaborator: a Sink plus its local input source.
type Terminal interface {
	Sink
	InstallKeyboard()
	UninstallKeyboard()
	Events() <-chan Event
	Ready() <-chan struct{}
}

// EventKind identifies a local input event.
type EventKind int

const (
	EventInput EventKind = iota
	EventResize
)

// Event is a local input event: keystroke text or a new terminal size.
type Event struct {
	Kind    EventKind
	Text    string
	Columns int
	Rows    int
}

// InputEvent returns a keystroke event.
func InputEvent(text string) Event {
	return Event{Kind: EventInput, Text: text}
}

// ResizeEvent returns a resize event.
func ResizeEvent(columns, rows int) Event {
	return Event{Kind: EventResize, Columns: columns, Rows: rows}
}

// Outbound is the session's outbound path. Implementations must not block
// once the session is closing.
type Outbound interface {
	SendInput(text string)
	SendResize(columns, rows int)
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithEventTap registers fn to observe every event forwarded to a session.
func WithEventTap(fn func(ev Event)) Option {
	return func(a *Adapter) {
		a.tap = fn
	}
}

// Adapter translates between a session and a Terminal. It exposes exactly
// two lifecycle hooks, OnActive and OnClosed.
type Adapter struct {
	term Terminal
	tap  func(Event)

	mu     sync.Mutex
	cancel chan struct{}
	done   chan struct{}
}

// NewAdapter creates an Adapter for term.
func NewAdapter(term Terminal, opts ...Option) *Adapter {
	a := &Adapter{term: term}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OnActive wires the terminal's events to out and enables keyboard capture
// once the terminal is ready. A previous attachment is detached first.
func (a *Adapter) OnActive(out Outbound) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.detachLocked()

	cancel := make(chan struct{})
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done

	go a.pump(out, cancel, done)
}

// OnClosed stops event delivery, disables keyboard capture and shows the
// connection-closed overlay. Delivery has fully stopped when it returns.
func (a *Adapter) OnClosed() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.detachLocked()
	a.term.UninstallKeyboard()
	a.term.ShowOverlay(OverlayConnectionClosed)
}

func (a *Adapter) detachLocked() {
	if a.cancel == nil {
		return
	}
	close(a.cancel)
	<-a.done
	a.cancel = nil
	a.done = nil
}

func (a *Adapter) pump(out Outbound, cancel <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	select {
	case <-a.term.Ready():
	case <-cancel:
		return
	}
	a.term.InstallKeyboard()

	events := a.term.Events()
	for {
		select {
		case <-cancel:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.forward(out, ev)
		}
	}
}

func (a *Adapter) forward(out Outbound, ev Event) {
	if a.tap != nil {
		a.tap(ev)
	}

	switch ev.Kind {
	case EventInput:
		out.SendInput(ev.Text)
	case EventResize:
		out.SendResize(ev.Columns, ev.Rows)
	}
}
