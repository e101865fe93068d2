package session

import (
	"time"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateConnecting State = iota
	StateActive
	StateClosed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Info is a snapshot of a Session taken at a state change.
type Info struct {
	ID        string
	Attempt   int
	URL       string
	State     State
	StartedAt time.Time
	ActiveAt  time.Time
	ClosedAt  time.Time

	// Err is the close cause; nil unless State is StateClosed, and nil for
	// a close requested by the local side.
	Err error

	// ReconnectDelay is the policy in force when the Session closed.
	ReconnectDelay time.Duration
}

// Observer is notified on every Session state change. It is called on the
// controller's goroutine and must not block.
type Observer interface {
	OnStateChange(info Info)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(info Info)

// OnStateChange implements Observer.
func (f ObserverFunc) OnStateChange(info Info) {
	f(info)
}

// ReconnectPolicy is the server-controlled reconnect delay. A non-positive
// delay means reconnecting is disabled, which is the default.
type ReconnectPolicy struct {
	delay time.Duration
}

// Set replaces the delay.
func (p *ReconnectPolicy) Set(delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	p.delay = delay
}

// Delay returns the current delay, 0 when disabled.
func (p *ReconnectPolicy) Delay() time.Duration {
	return p.delay
}

// Enabled reports whether a closed Session schedules a successor.
func (p *ReconnectPolicy) Enabled() bool {
	return p.delay > 0
}
