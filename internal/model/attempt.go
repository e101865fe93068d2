package model

import (
	"time"
)

// AttemptState mirrors the session state recorded in the journal.
type AttemptState string

const (
	AttemptStateConnecting AttemptState = "connecting"
	AttemptStateActive     AttemptState = "active"
	AttemptStateClosed     AttemptState = "closed"
)

// Attempt is one journaled connection attempt.
type Attempt struct {
	ID             string        `json:"id"`
	Attempt        int           `json:"attempt"`
	URL            string        `json:"url"`
	State          AttemptState  `json:"state"`
	StartedAt      time.Time     `json:"startedAt"`
	ActiveAt       *time.Time    `json:"activeAt,omitempty"`
	ClosedAt       *time.Time    `json:"closedAt,omitempty"`
	CloseReason    string        `json:"closeReason,omitempty"`
	ReconnectDelay time.Duration `json:"reconnectDelay,omitempty"`
	PreviewLine    string        `json:"previewLine,omitempty"`
}

// Connected reports whether the attempt ever became active.
func (a *Attempt) Connected() bool {
	return a.ActiveAt != nil
}

// Duration returns how long the attempt was active, up to now if it still is.
func (a *Attempt) Duration(now time.Time) time.Duration {
	if a.ActiveAt == nil {
		return 0
	}
	end := now
	if a.ClosedAt != nil {
		end = *a.ClosedAt
	}
	return end.Sub(*a.ActiveAt)
}
