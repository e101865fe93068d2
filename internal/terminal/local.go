// Package terminal provides terminal collaborators for the session bridge:
// Local drives the process's own TTY and Memory is a headless stand-in.
package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/remote-agent-terminal/ttyclient/internal/bridge"
	"github.com/remote-agent-terminal/ttyclient/internal/buffer"
	"golang.org/x/term"
)

const (
	// ScrollbackSize is the amount of recent output kept for previews.
	ScrollbackSize = 64 * 1024

	readBufferSize = 4096
)

// Local renders to the process's stdout and reads keystrokes from stdin.
// Keyboard capture puts stdin in raw mode; without it keystrokes are
// discarded and the TTY keeps its normal line discipline.
type Local struct {
	in    *os.File
	out   io.Writer
	outMu sync.Mutex

	mu       sync.Mutex
	raw      *term.State
	keyboard bool
	title    string
	prefs    map[string]any

	scrollback *buffer.RingBuffer
	events     chan bridge.Event
	ready      chan struct{}
	startOnce  sync.Once
}

// NewLocal creates a Local terminal on in and out.
func NewLocal(in *os.File, out io.Writer) *Local {
	return &Local{
		in:  in,
		out: out,
		prefs: map[string]any{
			"send-encoding": "raw",
		},
		scrollback: buffer.NewRingBuffer(ScrollbackSize),
		events:     make(chan bridge.Event, 64),
		ready:      make(chan struct{}),
	}
}

// Start begins reading stdin and watching for window size changes, then
// marks the terminal ready. Both stop when ctx is done.
func (t *Local) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		go t.readInput(ctx)
		go watchResize(ctx, t.emitSize)
		close(t.ready)
	})
}

// Close restores the TTY if keyboard capture is still enabled.
func (t *Local) Close() error {
	t.UninstallKeyboard()
	return nil
}

// WriteUTF8 implements bridge.Sink and keeps a copy for the preview line.
func (t *Local) WriteUTF8(text string) {
	t.scrollback.Write([]byte(text))
	t.write(text)
}

// SetWindowTitle sets the title with an OSC 0 sequence.
func (t *Local) SetWindowTitle(title string) {
	t.mu.Lock()
	t.title = title
	t.mu.Unlock()
	t.write(fmt.Sprintf("\x1b]0;%s\x07", title))
}

// SetPreference implements bridge.Sink.
func (t *Local) SetPreference(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prefs[key] = value
}

// ShowOverlay prints message in reverse video on its own line.
func (t *Local) ShowOverlay(message string) {
	t.write(fmt.Sprintf("\r\n\x1b[7m %s \x1b[0m\r\n", message))
}

// InstallKeyboard switches stdin to raw mode and reports the current size.
func (t *Local) InstallKeyboard() {
	t.mu.Lock()
	if !t.keyboard {
		t.keyboard = true
		fd := int(t.in.Fd())
		if term.IsTerminal(fd) {
			if state, err := term.MakeRaw(fd); err == nil {
				t.raw = state
			}
		}
	}
	t.mu.Unlock()

	t.emitSize()
}

// UninstallKeyboard restores stdin to its previous mode.
func (t *Local) UninstallKeyboard() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.keyboard = false
	if t.raw != nil {
		term.Restore(int(t.in.Fd()), t.raw)
		t.raw = nil
	}
}

// Events implements bridge.Terminal.
func (t *Local) Events() <-chan bridge.Event {
	return t.events
}

// Ready is closed once Start has begun reading input.
func (t *Local) Ready() <-chan struct{} {
	return t.ready
}

// Title returns the last title set by the server.
func (t *Local) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

// Preferences returns a copy of the preference state.
func (t *Local) Preferences() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]any, len(t.prefs))
	for k, v := range t.prefs {
		out[k] = v
	}
	return out
}

// PreviewLine returns the last non-blank line of recent output.
func (t *Local) PreviewLine() string {
	return t.scrollback.LastLine()
}

func (t *Local) keyboardInstalled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.keyboard
}

func (t *Local) write(s string) {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	io.WriteString(t.out, s)
}

func (t *Local) readInput(ctx context.Context) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := t.in.Read(buf)
		if n > 0 && t.keyboardInstalled() {
			select {
			case t.events <- bridge.InputEvent(string(buf[:n])):
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// emitSize queues the current window size without blocking.
func (t *Local) emitSize() {
	cols, rows, err := term.GetSize(int(t.in.Fd()))
	if f, ok := t.out.(*os.File); ok && err != nil {
		cols, rows, err = term.GetSize(int(f.Fd()))
	}
	if err != nil || cols <= 0 || rows <= 0 {
		return
	}

	select {
	case t.events <- bridge.ResizeEvent(cols, rows):
	default:
	}
}
