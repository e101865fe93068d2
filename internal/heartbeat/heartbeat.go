// Package heartbeat issues periodic liveness probes on an open connection.
//
// The monitor only keeps intermediaries from treating the connection as
// idle. It does not count acknowledgements or declare the peer dead; that is
// left to the transport's own close and error signals.
package heartbeat

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the probe period used by the terminal protocol.
const DefaultInterval = 30 * time.Second

// Monitor owns a single recurring timer.
type Monitor struct {
	clock clockwork.Clock

	mu     sync.Mutex
	ticker clockwork.Ticker
	stop   chan struct{}
	done   chan struct{}
}

// New creates a stopped Monitor driven by clock.
func New(clock clockwork.Clock) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Monitor{clock: clock}
}

// Start begins calling probe every interval. A running monitor is restarted,
// so at most one timer exists at a time. probe must not call Start or Stop.
func (m *Monitor) Start(interval time.Duration, probe func()) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	ticker := m.clock.NewTicker(interval)
	stop := make(chan struct{})
	done := make(chan struct{})
	m.ticker = ticker
	m.stop = stop
	m.done = done

	go m.run(ticker, stop, done, probe)
}

// Stop cancels the timer and waits for a probe in progress to return, so no
// probe runs once Stop has returned. Calling Stop on a stopped monitor is a
// no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Running reports whether the monitor has an active timer.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticker != nil
}

func (m *Monitor) stopLocked() {
	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	close(m.stop)
	<-m.done
	m.ticker = nil
	m.stop = nil
	m.done = nil
}

func (m *Monitor) run(ticker clockwork.Ticker, stop <-chan struct{}, done chan<- struct{}, probe func()) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			// A tick that raced with Stop must not probe.
			select {
			case <-stop:
				return
			default:
			}
			probe()
		}
	}
}
