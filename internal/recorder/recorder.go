// Package recorder writes terminal sessions as asciinema v2 recordings.
package recorder

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/remote-agent-terminal/ttyclient/internal/bridge"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// Header is the first line of an asciinema v2 recording.
type Header struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp"`
	Title     string            `json:"title,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// Event is one line of an asciinema v2 recording: [offset, type, data].
type Event struct {
	TimeOffset float64
	EventType  string // "o" output, "i" input, "r" resize
	Data       string
}

// MarshalJSON encodes the event as a three element array.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.TimeOffset, e.EventType, e.Data})
}

// UnmarshalJSON decodes a three element array.
func (e *Event) UnmarshalJSON(data []byte) error {
	var arr []interface{}
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if len(arr) != 3 {
		return fmt.Errorf("invalid event format: expected 3 elements, got %d", len(arr))
	}

	offset, ok := arr[0].(float64)
	if !ok {
		return fmt.Errorf("invalid time offset type")
	}
	eventType, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid event type")
	}
	eventData, ok := arr[2].(string)
	if !ok {
		return fmt.Errorf("invalid event data type")
	}

	e.TimeOffset, e.EventType, e.Data = offset, eventType, eventData
	return nil
}

// Recorder appends session traffic to a cast. The header is written lazily
// so that the first resize, when it arrives before any output, sets the
// recorded size.
type Recorder struct {
	writer io.Writer
	file   *os.File
	clock  clockwork.Clock
	title  string

	mu      sync.Mutex
	start   time.Time
	started bool
	width   int
	height  int
	err     error
}

// Open creates a Recorder writing to the file at path.
func Open(path, title string) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}
	r := New(file, title, nil)
	r.file = file
	return r, nil
}

// New creates a Recorder writing to w. A nil clock uses the real clock.
func New(w io.Writer, title string, clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{
		writer: w,
		clock:  clock,
		title:  title,
		width:  defaultWidth,
		height: defaultHeight,
	}
}

// Output records text rendered to the terminal.
func (r *Recorder) Output(text string) {
	r.record("o", text)
}

// Input records keystrokes sent to the remote process.
func (r *Recorder) Input(text string) {
	r.record("i", text)
}

// Resize records a terminal size change. Before the header is written it
// sets the recorded size instead.
func (r *Recorder) Resize(columns, rows int) {
	r.mu.Lock()
	if !r.started {
		r.width, r.height = columns, rows
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.record("r", strconv.Itoa(columns)+"x"+strconv.Itoa(rows))
}

// Observe records a bridge event; it matches bridge.WithEventTap.
func (r *Recorder) Observe(ev bridge.Event) {
	switch ev.Kind {
	case bridge.EventInput:
		r.Input(ev.Text)
	case bridge.EventResize:
		r.Resize(ev.Columns, ev.Rows)
	}
}

// Err returns the first write error, if any. Recording stops after it.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close closes the recording file if the Recorder owns it.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *Recorder) record(eventType, data string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return
	}
	if !r.started {
		if r.err = r.writeHeaderLocked(); r.err != nil {
			return
		}
	}

	event := Event{
		TimeOffset: r.clock.Since(r.start).Seconds(),
		EventType:  eventType,
		Data:       data,
	}
	r.err = r.writeLineLocked(event)
}

func (r *Recorder) writeHeaderLocked() error {
	r.start = r.clock.Now()
	r.started = true

	return r.writeLineLocked(Header{
		Version:   2,
		Width:     r.width,
		Height:    r.height,
		Timestamp: r.start.Unix(),
		Title:     r.title,
		Env:       map[string]string{"TERM": os.Getenv("TERM")},
	})
}

func (r *Recorder) writeLineLocked(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal recording line: %w", err)
	}
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write recording: %w", err)
	}
	return nil
}

// Sink wraps next so that every output written to it is also recorded.
func Sink(next bridge.Sink, r *Recorder) bridge.Sink {
	return &recordingSink{Sink: next, rec: r}
}

type recordingSink struct {
	bridge.Sink
	rec *Recorder
}

func (s *recordingSink) WriteUTF8(text string) {
	s.rec.Output(text)
	s.Sink.WriteUTF8(text)
}
