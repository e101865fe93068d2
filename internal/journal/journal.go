// Package journal records every connection attempt in the sqlite store.
//
// A Journal is a session.Observer. State changes are queued and written by a
// single goroutine so the session loop never waits on the database.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/remote-agent-terminal/ttyclient/internal/logging"
	"github.com/remote-agent-terminal/ttyclient/internal/model"
	"github.com/remote-agent-terminal/ttyclient/internal/repository"
	"github.com/remote-agent-terminal/ttyclient/internal/session"
)

const (
	queueSize    = 64
	writeTimeout = 5 * time.Second
)

// Option configures a Journal.
type Option func(*Journal)

// WithPreview sets the function that supplies the preview line recorded
// when an attempt closes.
func WithPreview(fn func() string) Option {
	return func(j *Journal) {
		j.preview = fn
	}
}

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(j *Journal) {
		j.log = log
	}
}

type entry struct {
	info    session.Info
	preview string
}

// Journal writes session state changes to an AttemptRepository.
type Journal struct {
	repo    *repository.AttemptRepository
	preview func() string
	log     logging.Logger

	entries chan entry
	done    chan struct{}
}

// New creates a Journal and starts its writer.
func New(repo *repository.AttemptRepository, opts ...Option) *Journal {
	j := &Journal{
		repo:    repo,
		log:     logging.Nop(),
		entries: make(chan entry, queueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.log = j.log.With(logging.Field{Key: "component", Value: "journal"})

	go j.run()
	return j
}

// OnStateChange implements session.Observer. It never blocks; when the
// queue is full the change is dropped and logged.
func (j *Journal) OnStateChange(info session.Info) {
	e := entry{info: info}
	if info.State == session.StateClosed && j.preview != nil {
		e.preview = j.preview()
	}

	select {
	case j.entries <- e:
	default:
		j.log.Warn("journal queue full, dropping entry",
			logging.Field{Key: "session", Value: info.ID},
			logging.Field{Key: "state", Value: info.State.String()})
	}
}

// Close flushes queued entries and stops the writer. OnStateChange must not
// be called afterwards.
func (j *Journal) Close() {
	close(j.entries)
	<-j.done
}

func (j *Journal) run() {
	defer close(j.done)

	for e := range j.entries {
		if err := j.write(e); err != nil {
			j.log.Warn("failed to journal state change",
				logging.Field{Key: "session", Value: e.info.ID},
				logging.Field{Key: "state", Value: e.info.State.String()},
				logging.Err(err))
		}
	}
}

func (j *Journal) write(e entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	info := e.info
	switch info.State {
	case session.StateConnecting:
		return j.repo.Create(ctx, &model.Attempt{
			ID:        info.ID,
			Attempt:   info.Attempt,
			URL:       info.URL,
			State:     model.AttemptStateConnecting,
			StartedAt: info.StartedAt,
		})

	case session.StateActive:
		return j.repo.MarkActive(ctx, info.ID, info.ActiveAt)

	case session.StateClosed:
		reason := ""
		if info.Err != nil {
			reason = info.Err.Error()
		}
		if err := j.repo.MarkClosed(ctx, info.ID, info.ClosedAt, reason, info.ReconnectDelay); err != nil {
			return err
		}
		if e.preview == "" {
			return nil
		}
		return j.repo.UpdatePreviewLine(ctx, info.ID, e.preview)
	}

	return errors.New("unknown session state " + info.State.String())
}
