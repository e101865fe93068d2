package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/remote-agent-terminal/ttyclient/internal/heartbeat"
)

// Session is one connection attempt, from dial to teardown.
type Session struct {
	ID      string
	Attempt int
	URL     string

	state     State
	conn      Conn
	heartbeat *heartbeat.Monitor

	// done is closed when teardown begins; goroutines posting on behalf of
	// this Session give up once it is closed.
	done chan struct{}

	startedAt time.Time
	activeAt  time.Time
	closedAt  time.Time
	cause     error
}

func newSession(attempt int, url string, hb *heartbeat.Monitor, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Attempt:   attempt,
		URL:       url,
		state:     StateConnecting,
		heartbeat: hb,
		done:      make(chan struct{}),
		startedAt: now,
	}
}

func (s *Session) info(reconnectDelay time.Duration) Info {
	return Info{
		ID:             s.ID,
		Attempt:        s.Attempt,
		URL:            s.URL,
		State:          s.state,
		StartedAt:      s.startedAt,
		ActiveAt:       s.activeAt,
		ClosedAt:       s.closedAt,
		Err:            s.cause,
		ReconnectDelay: reconnectDelay,
	}
}
